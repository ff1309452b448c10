// ABOUTME: Event loop that serializes every widget state transition
// ABOUTME: Timers and network completions post closures back onto the loop

package widget

import (
	"context"
	"time"

	"github.com/google/uuid"
	"tailscale.com/tstime"
)

// timerSet holds every cancellable timer handle the widget may arm.
type timerSet struct {
	slowInit       tstime.TimerController
	initRetry      tstime.TimerController
	greeting       tstime.TimerController
	reopenGreeting tstime.TimerController
	silence        tstime.TimerController
	pause          tstime.TimerController
	ttsFallback    tstime.TimerController
	captureRestart tstime.TimerController
}

func stop(t *tstime.TimerController) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// Run processes posted work until ctx is cancelled, then releases timers,
// speech and capture.
func (w *Widget) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return ctx.Err()
		case fn := <-w.queue:
			w.exec(fn)
		}
	}
}

// post queues fn for the loop. It reports false once the loop has shut down.
func (w *Widget) post(fn func()) bool {
	select {
	case <-w.done:
		return false
	default:
	}
	select {
	case w.queue <- fn:
		return true
	case <-w.done:
		return false
	}
}

func (w *Widget) exec(fn func()) {
	fn()
	w.publish()
}

// after arms a timer whose callback runs on the loop.
func (w *Widget) after(d time.Duration, fn func()) tstime.TimerController {
	return w.clock.AfterFunc(d, func() { w.post(fn) })
}

func (w *Widget) shutdown() {
	w.closeOnce.Do(func() {
		w.stopAllTimers()
		w.stopSpeech()
		w.stopCapture()
		w.cancel()
		close(w.done)
		w.logger.Debug("widget stopped")
	})
}

func (w *Widget) stopAllTimers() {
	stop(&w.timers.slowInit)
	stop(&w.timers.initRetry)
	stop(&w.timers.greeting)
	stop(&w.timers.reopenGreeting)
	w.stopVoiceTimers()
	w.cancelReveals()
}

func (w *Widget) publish() {
	w.version++
	s := Snapshot{
		Version:  w.version,
		Messages: w.log.Snapshot(),

		SessionID:    w.sess.id,
		Initialized:  w.sess.initialized,
		Initializing: w.sess.initializing,
		Ending:       w.sess.ending,
		InFlight:     w.pipe.inFlight,
		Revealing:    len(w.reveals) > 0,

		Surface:          w.ui.surface,
		Minimized:        w.ui.minimized,
		Ended:            w.ui.ended,
		Expanded:         w.ui.expanded,
		DarkMode:         w.ui.darkMode,
		SearchMode:       w.cfg.Widget.SearchMode,
		FirstUserMessage: w.ui.firstUserMessage,

		AllowVoice:  w.cfg.Voice.Allow,
		VoiceMode:   w.voice.active,
		Voice:       w.voice.state,
		MicMuted:    w.voice.micMuted(),
		ManualMute:  w.voice.manualMute,
		VoiceStatus: w.voice.status,
		VoiceLevel:  w.voice.level,

		AgentName:         w.agentName(),
		HeaderText:        w.cfg.Widget.HeaderText,
		ThemeColor:        w.cfg.Widget.ThemeColor,
		Position:          w.cfg.Widget.Position,
		SearchWelcomeText: w.cfg.Widget.SearchWelcomeText,
	}
	w.snap.Store(&s)
	if w.deps.Sink != nil {
		w.deps.Sink.Publish(s)
	}
}

func tempSessionID() string {
	return "session_" + uuid.NewString()
}
