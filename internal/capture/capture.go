// ABOUTME: Speech capture through an external recognizer emitting JSON lines
// ABOUTME: Streams transcript fragments and classifies recognizer errors as fatal or not

package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrUnsupported is returned by Start when no recognizer is configured.
var ErrUnsupported = errors.New("speech recognition not supported")

// Event is one recognizer output. Exactly one of the fragment fields or Err
// is meaningful.
type Event struct {
	Transcript string
	Final      bool
	Confidence float64

	Err   error
	Fatal bool // capture cannot work on this host; do not restart
}

type line struct {
	Transcript string  `json:"transcript"`
	Final      bool    `json:"final"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

// fatalCodes are recognizer error codes that mean capture will never work.
var fatalCodes = map[string]bool{
	"not-allowed":         true,
	"service-not-allowed": true,
	"unsupported":         true,
	"audio-capture":       true,
}

// Recognizer runs a capture command per listening stretch.
type Recognizer struct {
	argv   []string
	logger *slog.Logger
}

// New creates a recognizer for argv. An empty argv means capture is unsupported.
func New(argv []string, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{argv: argv, logger: logger.With("component", "capture")}
}

// Supported reports whether a command is configured.
func (r *Recognizer) Supported() bool {
	return len(r.argv) > 0
}

// Start launches the recognizer. The returned channel is closed when the
// command exits or ctx is cancelled.
func (r *Recognizer) Start(ctx context.Context) (<-chan Event, error) {
	if !r.Supported() {
		return nil, ErrUnsupported
	}

	cmd := exec.CommandContext(ctx, r.argv[0], r.argv[1:]...)
	cmd.WaitDelay = time.Second
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return nil, fmt.Errorf("starting capture: %w", err)
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			ev, ok := r.parse(scanner.Text())
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				_ = cmd.Wait()
				return
			}
		}
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			r.logger.Debug("capture command exited", "error", err)
		}
	}()

	return events, nil
}

func (r *Recognizer) parse(raw string) (Event, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Event{}, false
	}
	var l line
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		r.logger.Warn("ignoring malformed capture line", "error", err)
		return Event{}, false
	}
	if l.Error != "" {
		return Event{Err: fmt.Errorf("recognition error: %s", l.Error), Fatal: fatalCodes[l.Error]}, true
	}
	return Event{Transcript: l.Transcript, Final: l.Final, Confidence: l.Confidence}, true
}
