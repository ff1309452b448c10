// ABOUTME: Session manager: initialization handshake with retry, status lines and teardown
// ABOUTME: Also owns the surface transitions (open, minimize, new chat, end chat)

package widget

import (
	"fmt"
	"strings"

	"github.com/2389/coven-chat/internal/chaterr"
	"github.com/2389/coven-chat/internal/store"
)

type sessionState struct {
	id           string // temporary client id until the backend issues one
	initialized  bool
	initializing bool
	ending       bool
	greeted      bool
	statusID     string // current initialization status line
	generation   uint64 // bumped whenever the session is torn down
	waiters      []func(error)
}

const (
	msgAgentIDMissing = "Error: Agent ID not configured. Please ask your administrator to configure an Agent ID in the chat settings."
	msgCredsMissing   = "Error: Authentication credentials not configured. Please ask your administrator to configure the Consumer Key and Consumer Secret in the chat settings."
	msgEndingChat     = "Ending chat session."
)

// initialize runs the init handshake. silent suppresses status lines and
// the greeting turn. done, if set, is called once with the outcome unless
// the session is torn down first.
func (w *Widget) initialize(silent bool, done func(error)) {
	if w.sess.initialized {
		w.logger.Info("skipping initialization, already initialized", "session_id", w.sess.id)
		if done != nil {
			done(nil)
		}
		return
	}
	if done != nil {
		w.sess.waiters = append(w.sess.waiters, done)
	}
	if w.sess.initializing {
		w.logger.Debug("initialization already in progress")
		return
	}

	if w.cfg.Agent.ID == "" {
		w.logger.Error("agent id is not configured")
		w.appendMessage(SenderAgent, KindError, msgAgentIDMissing)
		w.finishInit(chaterr.Config("agent id is not configured"))
		return
	}
	if !w.creds.Valid() {
		w.logger.Error("agent credentials are not configured")
		w.appendMessage(SenderAgent, KindError, msgCredsMissing)
		w.finishInit(chaterr.Config("agent credentials are not configured"))
		return
	}

	w.sess.initializing = true
	if !silent {
		m := w.appendMessage(SenderAgent, KindStatus, fmt.Sprintf("Welcome! Initializing %s...", w.agentName()))
		w.sess.statusID = m.ID
	}
	w.attemptInit(w.sess.generation, 0, silent)
}

func (w *Widget) attemptInit(gen uint64, attempt int, silent bool) {
	w.logger.Info("initializing agent session", "agent_id", w.cfg.Agent.ID, "attempt", attempt+1)

	stop(&w.timers.slowInit)
	w.timers.slowInit = w.after(w.cfg.Timing.SlowInitNotice, func() {
		w.timers.slowInit = nil
		if gen != w.sess.generation || !w.sess.initializing || silent {
			return
		}
		w.logger.Info("initialization is taking longer than expected")
		w.setStatus(fmt.Sprintf("Still working on connecting to %s...", w.agentName()))
	})

	agentID, creds := w.cfg.Agent.ID, w.creds
	ctx := w.ctx
	w.spawn(func() {
		id, err := w.deps.Backend.InitSession(ctx, agentID, creds)
		w.post(func() { w.onInitResult(gen, attempt, silent, id, err) })
	})
}

func (w *Widget) onInitResult(gen uint64, attempt int, silent bool, id string, err error) {
	if gen != w.sess.generation {
		w.logger.Debug("discarding stale initialization result")
		return
	}
	stop(&w.timers.slowInit)

	if err == nil && id == "" {
		err = chaterr.New(chaterr.KindTransport, "Session initialization failed - no session ID returned")
	}

	if err == nil {
		w.sess.id = id
		w.sess.initialized = true
		w.sess.initializing = false
		w.logger.Info("session initialized", "session_id", id)

		if !silent {
			w.setStatus(fmt.Sprintf("Connected to %s successfully!", w.agentName()))
			if !w.sess.greeted {
				w.sess.greeted = true
				stop(&w.timers.greeting)
				w.timers.greeting = w.after(w.cfg.Timing.GreetingDelay, func() {
					w.timers.greeting = nil
					if gen != w.sess.generation {
						return
					}
					w.log.RemoveWhere(OfKind(KindStatus))
					w.sess.statusID = ""
					w.requestResponse(w.cfg.Widget.Greeting, false)
				})
			}
		} else {
			w.sess.greeted = true
		}
		w.finishInit(nil)
		return
	}

	e := chaterr.Normalize(err)
	w.logger.Error("error initializing agent session", "error", e, "status", e.Status, "attempt", attempt+1)

	maxRetries := w.cfg.Timing.InitMaxRetries
	if attempt < maxRetries {
		next := attempt + 1
		if !silent {
			w.setStatus(fmt.Sprintf("Reconnecting to %s (attempt %d of %d)...", w.agentName(), next, maxRetries))
		}
		stop(&w.timers.initRetry)
		w.timers.initRetry = w.after(w.cfg.Timing.InitRetryDelay, func() {
			w.timers.initRetry = nil
			if gen != w.sess.generation {
				return
			}
			w.attemptInit(gen, next, silent)
		})
		return
	}

	w.sess.initializing = false
	w.sess.initialized = false
	if !silent {
		w.setStatus(fmt.Sprintf("Couldn't connect to %s. Please contact your administrator.", w.agentName()))
	}
	w.appendMessage(SenderAgent, KindDiagnostic, w.diagnostic(e))
	w.logger.Error("all initialization attempts failed", "error", e)
	w.finishInit(e)
}

func (w *Widget) diagnostic(e *chaterr.Error) string {
	status := "unknown status"
	if e.Status != 0 {
		status = fmt.Sprintf("%d", e.Status)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Error connecting to %s (%s): %s\n\n", w.agentName(), status, e.Message)
	b.WriteString("Additional troubleshooting:\n")
	fmt.Fprintf(&b, "1. Check the agent endpoint is reachable: %s\n", w.cfg.Agent.BaseURL)
	fmt.Fprintf(&b, "2. Check Agent ID is valid: %s\n", w.cfg.Agent.ID)
	b.WriteString("3. Verify Consumer Key and Consumer Secret are correct")
	return b.String()
}

func (w *Widget) finishInit(err error) {
	waiters := w.sess.waiters
	w.sess.waiters = nil
	for _, fn := range waiters {
		fn(err)
	}
}

// setStatus rewrites the initialization status line if it is still shown.
func (w *Widget) setStatus(text string) {
	if w.sess.statusID == "" {
		return
	}
	w.log.Update(w.sess.statusID, func(m *Message) { m.Text = text })
}

// clearSession forgets the backend session and invalidates every pending
// completion and timer tied to it.
func (w *Widget) clearSession() {
	w.sess.generation++
	w.sess.id = ""
	w.sess.initialized = false
	w.sess.initializing = false
	w.sess.statusID = ""
	w.sess.waiters = nil
	stop(&w.timers.slowInit)
	stop(&w.timers.initRetry)
	stop(&w.timers.greeting)
	stop(&w.timers.reopenGreeting)
}

// resetSession tears down the session along with any in-flight request.
func (w *Widget) resetSession() {
	w.clearSession()
	w.pipe.inFlight = false
	w.pipe.indicatorID = ""
}

func (w *Widget) open() {
	if w.cfg.Widget.SearchMode {
		if w.ui.minimized {
			w.ui.minimized = false
			w.ui.surface = SurfaceWindow
		}
		return
	}

	w.ui.surface = SurfaceWindow
	w.ui.ended = false
	if w.ui.minimized {
		w.ui.minimized = false
		return
	}

	w.flushReveals()
	w.log.Reset()
	w.pipe.firstIndicator = true
	w.sess.greeted = false

	if !w.sess.initialized || w.sess.id == "" {
		w.resetSession()
		w.initialize(false, nil)
		return
	}

	gen := w.sess.generation
	stop(&w.timers.reopenGreeting)
	w.timers.reopenGreeting = w.after(w.cfg.Timing.ReopenGreetingDelay, func() {
		w.timers.reopenGreeting = nil
		if gen != w.sess.generation || w.sess.greeted {
			return
		}
		w.sess.greeted = true
		w.requestResponse(w.cfg.Widget.Greeting, false)
	})
}

func (w *Widget) minimize() {
	if w.cfg.Widget.SearchMode && w.ui.expanded {
		w.ui.expanded = false
		return
	}
	w.ui.surface = SurfaceBubble
	w.ui.minimized = true
}

func (w *Widget) toggleTheme() {
	w.ui.darkMode = !w.ui.darkMode
	if w.deps.Theme == nil {
		return
	}
	dark := w.ui.darkMode
	w.spawn(func() {
		if err := w.deps.Theme.SaveDarkMode(dark); err != nil {
			w.logger.Warn("error saving theme preference", "error", err)
		}
	})
}

func (w *Widget) newChat() {
	w.deactivateVoice()
	w.stopSpeech()
	w.flushReveals()
	w.saveTranscript(store.ReasonNewChat)

	w.resetSession()
	w.log.Reset()
	w.ui.surface = SurfaceBubble
	w.ui.ended = false
	w.ui.minimized = false
	w.ui.firstUserMessage = true
	w.pipe.firstIndicator = true
	w.sess.greeted = false
}

// endChat ends the session once. The backend is told about real sessions
// only; local state is reset whatever it answers.
func (w *Widget) endChat() {
	if w.sess.ending {
		w.logger.Debug("end already in progress")
		return
	}
	w.sess.ending = true

	if w.voice.active {
		w.deactivateVoice()
	}
	w.flushReveals()
	w.appendMessage(SenderAgent, KindChat, msgEndingChat)
	w.stopSpeech()
	w.saveTranscript(store.ReasonEnd)

	id, wasReal := w.sess.id, w.sess.initialized
	w.resetSession()

	if !wasReal || id == "" {
		w.finishEnd()
		return
	}

	ctx, creds := w.ctx, w.creds
	w.spawn(func() {
		if err := w.deps.Backend.EndSession(ctx, id, creds); err != nil {
			w.logger.Error("error ending session", "session_id", id, "error", err)
		}
		if !w.post(w.finishEnd) {
			w.logger.Debug("widget stopped before end completed")
		}
	})
}

func (w *Widget) finishEnd() {
	w.sess.ending = false
	if w.cfg.Widget.SearchMode {
		w.resetForSearchMode()
		return
	}
	w.ui.surface = SurfaceBubble
	w.ui.ended = true
	w.ui.minimized = false
}

func (w *Widget) resetForSearchMode() {
	w.log.Reset()
	w.ui.ended = false
	w.ui.expanded = false
	w.ui.firstUserMessage = true
	w.ui.surface = SurfaceWindow
	w.ui.minimized = false
	w.ui.darkMode = false
	w.sess.greeted = false
	w.pipe.firstIndicator = true
	w.sess.id = tempSessionID()
	w.initialize(true, nil)
}
