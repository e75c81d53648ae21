// Package classify labels finished recordings as voice, data, or skip by
// running an external classifier over the audio file.
package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/kr/pty"
)

type Class string

const (
	Voice Class = "V"
	Data  Class = "D"
	Skip  Class = "S"
)

var ErrBadOutput = errors.New("classifier produced no class label")

// Classifier labels one recording. Detail carries any extra text the
// classifier printed, e.g. decoded data bursts.
type Classifier interface {
	Classify(ctx context.Context, wavPath string) (Class, string, error)
}

// Nop labels nothing; recordings keep their plain name.
type Nop struct{}

func (Nop) Classify(context.Context, string) (Class, string, error) {
	return "", "", nil
}

// Exec runs an external command with the recording path as its last
// argument. The first token of the output must be the class letter; the
// rest is detail. Classifiers run under a pty since some only produce
// output on a terminal.
type Exec struct {
	Path string
	Args []string
}

func (e *Exec) Classify(ctx context.Context, wavPath string) (Class, string, error) {
	args := append(append([]string{}, e.Args...), wavPath)
	cmd := exec.CommandContext(ctx, e.Path, args...)
	f, err := pty.Start(cmd)
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	// The pty returns EIO once the child exits; output up to that point is
	// still complete.
	b, _ := io.ReadAll(f)
	if err := cmd.Wait(); err != nil {
		return "", "", fmt.Errorf("classifier %s: %w", e.Path, err)
	}
	label, detail, _ := strings.Cut(strings.TrimSpace(string(b)), " ")
	switch Class(label) {
	case Voice, Data, Skip:
		return Class(label), strings.TrimSpace(detail), nil
	}
	return "", "", ErrBadOutput
}
