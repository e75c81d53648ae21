package chanlog

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttLogger publishes channel events to an MQTT topic. Target has the
// form "tcp://broker:1883|ham2mon/channels".
type mqttLogger struct {
	client mqtt.Client
	topic  string
}

func clientID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "ham2mon_" + hex.EncodeToString(b)
}

func newMQTT(target string) (*mqttLogger, error) {
	broker, topic, ok := strings.Cut(target, "|")
	if !ok || broker == "" || topic == "" {
		return nil, fmt.Errorf("mqtt target must be broker-url|topic, got %q", target)
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID()).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	client := mqtt.NewClient(opts)
	if tok := client.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", tok.Error())
	}
	return &mqttLogger{client: client, topic: topic}, nil
}

func (l *mqttLogger) Log(m *Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	tok := l.client.Publish(l.topic, 0, false, b)
	tok.Wait()
	return tok.Error()
}

func (l *mqttLogger) Close() error {
	l.client.Disconnect(250)
	return nil
}
