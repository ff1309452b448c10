// ABOUTME: Progressive reveal of agent replies a few characters per tick
// ABOUTME: Reveals halt when their message leaves the log and can be flushed to completion

package widget

import (
	"tailscale.com/tstime"

	"github.com/2389/coven-chat/internal/markup"
)

type revealJob struct {
	timer    tstime.TimerController
	runes    []rune
	pos      int
	thinking string
}

// reveal appends a placeholder agent message and fills it in on the reveal
// tick until the full reply is shown.
func (w *Widget) reveal(text string) {
	display, thinking := markup.ExtractThinking(text)
	source := w.markup.PrepareDisplay(display)

	m := w.log.Append(Message{
		Sender:    SenderAgent,
		Kind:      KindChat,
		Timestamp: timestamp(w.clock.Now()),
		IsTyping:  true,
		RawHTML:   true,
	})
	job := &revealJob{runes: []rune(source), thinking: thinking}
	w.reveals[m.ID] = job

	if len(job.runes) == 0 {
		w.completeReveal(m.ID, job)
		return
	}
	w.scheduleReveal(m.ID, job)
}

func (w *Widget) scheduleReveal(id string, job *revealJob) {
	job.timer = w.after(w.cfg.Timing.RevealTick, func() { w.revealStep(id, job) })
}

func (w *Widget) revealStep(id string, job *revealJob) {
	if w.reveals[id] != job {
		return
	}
	if _, ok := w.log.Get(id); !ok {
		w.logger.Debug("reveal target removed, halting", "message_id", id)
		delete(w.reveals, id)
		return
	}

	job.pos += w.cfg.Timing.RevealCharsPerTick
	if job.pos >= len(job.runes) {
		w.completeReveal(id, job)
		return
	}
	prefix := w.markup.Sanitize(string(job.runes[:job.pos]))
	w.log.Update(id, func(m *Message) { m.Text = prefix })
	w.scheduleReveal(id, job)
}

func (w *Widget) completeReveal(id string, job *revealJob) {
	if job.timer != nil {
		job.timer.Stop()
	}
	delete(w.reveals, id)
	full := w.markup.Sanitize(string(job.runes))
	w.log.Update(id, func(m *Message) {
		m.Text = full
		m.IsTyping = false
		m.ThinkingProcess = job.thinking
	})
}

// flushReveals shows every pending reply in full immediately.
func (w *Widget) flushReveals() {
	for id, job := range w.reveals {
		w.completeReveal(id, job)
	}
}

// cancelReveals stops every reveal where it is.
func (w *Widget) cancelReveals() {
	for id, job := range w.reveals {
		if job.timer != nil {
			job.timer.Stop()
		}
		delete(w.reveals, id)
	}
}
