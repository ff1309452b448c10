// ABOUTME: Hands the finished message log to the transcript store when a chat ends
// ABOUTME: Saving is fire-and-forget; failures are logged and never reach the chat

package widget

import (
	"context"
	"encoding/json"
	"time"

	"github.com/2389/coven-chat/internal/store"
)

const transcriptSaveTimeout = 10 * time.Second

func (w *Widget) saveTranscript(reason string) {
	if w.deps.Transcripts == nil || w.log.Len() == 0 {
		return
	}
	msgs := w.log.Snapshot()
	payload, err := json.Marshal(msgs)
	if err != nil {
		w.logger.Error("error encoding transcript", "error", err)
		return
	}

	t := &store.Transcript{
		AgentName:    w.agentName(),
		Reason:       reason,
		MessageCount: len(msgs),
		Payload:      payload,
		CreatedAt:    w.clock.Now(),
	}
	if w.sess.initialized {
		t.SessionID = w.sess.id
	}

	saver := w.deps.Transcripts
	ctx := context.WithoutCancel(w.ctx)
	w.spawn(func() {
		ctx, cancel := context.WithTimeout(ctx, transcriptSaveTimeout)
		defer cancel()
		if err := saver.SaveTranscript(ctx, t); err != nil {
			w.logger.Error("error saving transcript", "reason", reason, "error", err)
			return
		}
		w.logger.Info("transcript saved", "id", t.ID, "reason", reason, "messages", t.MessageCount)
	})
}
