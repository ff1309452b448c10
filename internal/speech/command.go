// ABOUTME: External-command adapters for audio playback and local speech synthesis
// ABOUTME: Placeholders in the argv are substituted; an empty argv means unsupported

package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long a killed command's children may hold its output open.
const waitDelay = 500 * time.Millisecond

// Player plays an audio URL through an external command such as ffplay or mpv.
type Player struct {
	argv []string
}

// NewPlayer creates a player. "{url}" in argv is replaced with the audio URL;
// without a placeholder the URL is appended.
func NewPlayer(argv []string) *Player {
	return &Player{argv: argv}
}

// Play blocks until playback finishes or ctx is cancelled.
func (p *Player) Play(ctx context.Context, url string) error {
	if len(p.argv) == 0 {
		return ErrUnsupported
	}
	if strings.TrimSpace(url) == "" {
		return ErrEmptyURL
	}
	args, used := substitute(p.argv[1:], "{url}", url)
	if !used {
		args = append(args, url)
	}
	cmd := exec.CommandContext(ctx, p.argv[0], args...)
	cmd.WaitDelay = waitDelay
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("playing audio: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// LocalVoice speaks text with an on-host synthesizer such as espeak or say.
type LocalVoice struct {
	argv []string
}

// NewLocalVoice creates a local synthesizer. "{text}" in argv is replaced
// with the text; without a placeholder the text is written to stdin.
func NewLocalVoice(argv []string) *LocalVoice {
	return &LocalVoice{argv: argv}
}

// Speak blocks until speech finishes or ctx is cancelled.
func (v *LocalVoice) Speak(ctx context.Context, text string) error {
	if len(v.argv) == 0 {
		return ErrUnsupported
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	args, used := substitute(v.argv[1:], "{text}", text)
	cmd := exec.CommandContext(ctx, v.argv[0], args...)
	cmd.WaitDelay = waitDelay
	if !used {
		cmd.Stdin = strings.NewReader(text)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("local speech: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func substitute(args []string, placeholder, value string) ([]string, bool) {
	out := make([]string, len(args))
	used := false
	for i, a := range args {
		if strings.Contains(a, placeholder) {
			used = true
			a = strings.ReplaceAll(a, placeholder, value)
		}
		out[i] = a
	}
	return out, used
}
