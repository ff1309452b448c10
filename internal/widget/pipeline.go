// ABOUTME: Response pipeline: input gating, single in-flight request, typing indicator
// ABOUTME: Session-expired responses trigger one silent re-init and a single resubmission

package widget

import (
	"fmt"
	"strings"

	"github.com/2389/coven-chat/internal/chaterr"
	"github.com/2389/coven-chat/internal/markup"
)

type pipelineState struct {
	inFlight       bool
	firstIndicator bool   // next indicator reads "incoming" instead of "thinking"
	indicatorID    string // typing indicator for the in-flight request
}

const (
	msgNoResponse      = "I'm sorry, I don't have a response for that."
	msgRequestFailed   = "I'm sorry, I encountered an error while processing your request."
	msgReconnectFailed = "I'm sorry, I couldn't reconnect to the agent. Please try again later."
)

func (w *Widget) appendMessage(sender Sender, kind Kind, text string) Message {
	return w.log.Append(Message{
		Sender:    sender,
		Kind:      kind,
		Text:      text,
		Timestamp: timestamp(w.clock.Now()),
	})
}

// inputBlocked reports whether typed input is currently refused.
func (w *Widget) inputBlocked() bool {
	switch {
	case w.cfg.Widget.SearchMode && w.ui.firstUserMessage && !w.sess.initialized:
		return true
	case w.sess.initializing, w.voice.active, len(w.reveals) > 0, w.pipe.inFlight:
		return true
	}
	return false
}

func (w *Widget) send(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if w.inputBlocked() {
		w.logger.Debug("input rejected while busy")
		return
	}

	w.appendMessage(SenderUser, KindChat, text)

	if w.ui.firstUserMessage {
		w.ui.firstUserMessage = false
		if w.cfg.Voice.DefaultOn && w.cfg.Voice.Allow && !w.voice.active {
			w.activateVoiceForPendingResponse()
		}
	}
	w.requestResponse(text, false)
}

// requestResponse sends text to the agent unless a request is already in
// flight. retried marks the resubmission after a silent re-init.
func (w *Widget) requestResponse(text string, retried bool) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if w.pipe.inFlight {
		w.logger.Debug("request already in flight, ignoring")
		return false
	}
	w.pipe.inFlight = true

	if !w.voice.active {
		label := fmt.Sprintf("%s is thinking...", w.agentName())
		if w.pipe.firstIndicator {
			label = fmt.Sprintf("%s incoming...", w.agentName())
			w.pipe.firstIndicator = false
		}
		m := w.log.Append(Message{
			Sender:    SenderAgent,
			Kind:      KindTyping,
			Text:      label,
			Timestamp: timestamp(w.clock.Now()),
			IsTyping:  true,
		})
		w.pipe.indicatorID = m.ID
	}

	if !w.sess.initialized || w.sess.id == "" {
		w.reinitAndResubmit(text, retried, chaterr.New(chaterr.KindSession, "No active session"))
		return true
	}

	gen, sid, ctx, creds := w.sess.generation, w.sess.id, w.ctx, w.creds
	w.spawn(func() {
		reply, err := w.deps.Backend.GetResponse(ctx, sid, text, creds)
		w.post(func() { w.onResponse(gen, text, retried, reply, err) })
	})
	return true
}

func (w *Widget) onResponse(gen uint64, text string, retried bool, reply string, err error) {
	if gen != w.sess.generation {
		w.logger.Debug("discarding stale response")
		return
	}

	if err != nil {
		if chaterr.IsSession(err) {
			w.reinitAndResubmit(text, retried, err)
			return
		}
		w.logger.Error("error getting response", "error", err)
		w.settleRequest()
		w.emitAgent(msgRequestFailed)
		w.appendMessage(SenderSystem, KindError, "Error: "+chaterr.Normalize(err).Message)
		return
	}

	w.settleRequest()
	if strings.TrimSpace(reply) == "" {
		w.emitAgent(msgNoResponse)
		return
	}
	w.emitAgent(reply)
}

// reinitAndResubmit recovers from a lost session once per request.
func (w *Widget) reinitAndResubmit(text string, retried bool, cause error) {
	if retried {
		w.logger.Error("session lost again after re-initialization", "error", cause)
		w.settleRequest()
		w.emitAgent(msgReconnectFailed)
		return
	}

	w.logger.Warn("session lost, re-initializing", "error", cause)
	if w.pipe.indicatorID != "" {
		label := fmt.Sprintf("Reconnecting to %s...", w.agentName())
		w.log.Update(w.pipe.indicatorID, func(m *Message) { m.Text = label })
	}

	w.clearSession()
	gen := w.sess.generation
	w.initialize(true, func(err error) {
		if gen != w.sess.generation {
			return
		}
		w.settleRequest()
		if err != nil {
			w.emitAgent(msgReconnectFailed)
			return
		}
		w.requestResponse(text, true)
	})
}

// settleRequest clears the in-flight flag and retracts the typing indicator.
func (w *Widget) settleRequest() {
	w.pipe.inFlight = false
	w.pipe.indicatorID = ""
	w.log.RemoveWhere(OfKind(KindTyping))
}

// emitAgent delivers an agent reply: spoken in voice mode, revealed
// progressively otherwise.
func (w *Widget) emitAgent(text string) {
	if !w.voice.active {
		w.reveal(text)
		return
	}
	display, thinking := markup.ExtractThinking(text)
	w.log.Append(Message{
		Sender:          SenderAgent,
		Kind:            KindChat,
		Text:            w.markup.Sanitize(w.markup.PrepareDisplay(display)),
		Timestamp:       timestamp(w.clock.Now()),
		ThinkingProcess: thinking,
		RawHTML:         true,
	})
	w.speak(w.markup.StripToText(display))
}
