package radio

import (
	"encoding/binary"
	"fmt"
	"net"
)

var dongleMagic = [...]byte{'R', 'T', 'L', '0'}

// TunerConn is the control and sample connection to an rtl_tcp server.
// Tuning commands are fire-and-forget; the server never acknowledges them
// and the sample stream simply reflects the new tuning once it settles.
type TunerConn struct {
	*net.TCPConn
	Info DongleInfo
}

// Connect dials the rtl_tcp server at addr and reads the dongle banner.
// The caller is responsible for closing the connection.
func (c *TunerConn) Connect(addr *net.TCPAddr) (err error) {
	if c.TCPConn, err = net.DialTCP("tcp", nil, addr); err != nil {
		return fmt.Errorf("error connecting to spectrum server: %v", err)
	}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()
	if err = binary.Read(c.TCPConn, binary.BigEndian, &c.Info); err != nil {
		return fmt.Errorf("error getting dongle information: %v", err)
	}
	if !c.Info.Valid() {
		return fmt.Errorf("bad magic number: %q", c.Info.Magic)
	}
	return nil
}

// DongleInfo is the banner sent by rtl_tcp on connect.
type DongleInfo struct {
	Magic     [4]byte
	Tuner     uint32
	GainCount uint32
}

func (d DongleInfo) Valid() bool {
	return d.Magic == dongleMagic
}

type command struct {
	Command   uint8
	Parameter uint32
}

// Command codes defined in rtl_tcp.c.
const (
	cmdCenterFreq = iota + 1
	cmdSampleRate
	cmdTunerGainMode
	cmdTunerGain
	cmdFreqCorrection
	cmdTunerIfGain
	cmdTestMode
	cmdAGCMode
	cmdDirectSampling
	cmdOffsetTuning
	cmdRTLXtalFreq
	cmdTunerXtalFreq
	cmdGainByIndex
)

func (c *TunerConn) do(cmd uint8, v uint32) error {
	return binary.Write(c.TCPConn, binary.BigEndian, command{cmd, v})
}

// SetCenterFreq sets the hardware center frequency in Hz.
func (c *TunerConn) SetCenterFreq(freq uint32) error {
	return c.do(cmdCenterFreq, freq)
}

// SetSampleRate sets the hardware sample rate in Hz.
func (c *TunerConn) SetSampleRate(rate uint32) error {
	return c.do(cmdSampleRate, rate)
}

// SetFreqCorrection adjusts the oscillator by ppm parts per million.
func (c *TunerConn) SetFreqCorrection(ppm uint32) error {
	return c.do(cmdFreqCorrection, ppm)
}

// SetAGCMode toggles hardware automatic gain.
func (c *TunerConn) SetAGCMode(on bool) error {
	var v uint32
	if on {
		v = 1
	}
	return c.do(cmdAGCMode, v)
}

// SetGainMode toggles manual tuner gain.
func (c *TunerConn) SetGainMode(manual bool) error {
	var v uint32
	if manual {
		v = 1
	}
	return c.do(cmdTunerGainMode, v)
}
