// ABOUTME: Tests for the response pipeline and input gating
// ABOUTME: Covers the single in-flight rule, error branches, and session-expiry recovery

package widget

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/chaterr"
	"github.com/2389/coven-chat/internal/config"
)

func TestRequestResponse_SingleInFlight(t *testing.T) {
	h := newHarness(t, nil)
	h.initialized()
	h.deferSpawn = true

	h.do(func() { h.w.send("first") })
	var second bool
	h.do(func() { second = h.w.requestResponse("second", false) })
	h.do(func() { h.w.send("third") })

	assert.False(t, second)
	assert.Len(t, h.messagesOf(KindTyping), 1, "no duplicate typing indicator")
	assert.True(t, h.snap().InFlight)

	h.runSpawned()
	h.advance(time.Second)

	assert.Equal(t, []string{"Hello", "first"}, h.backend.Messages())
	assert.False(t, h.snap().InFlight)
	assert.Empty(t, h.messagesOf(KindTyping))
}

func TestRequestResponse_IndicatorLabels(t *testing.T) {
	h := newHarness(t, nil)
	h.do(h.w.open)
	h.deferSpawn = true

	h.advance(h.cfg.Timing.GreetingDelay)
	typing := h.messagesOf(KindTyping)
	require.Len(t, typing, 1)
	assert.Equal(t, "Agentforce incoming...", typing[0].Text)
	assert.True(t, typing[0].IsTyping)

	h.runSpawned()
	h.advance(time.Second)

	h.do(func() { h.w.send("hi") })
	typing = h.messagesOf(KindTyping)
	require.Len(t, typing, 1)
	assert.Equal(t, "Agentforce is thinking...", typing[0].Text)
}

func TestRequestResponse_EmptyText(t *testing.T) {
	h := newHarness(t, nil)
	h.initialized()

	var ok bool
	h.do(func() { ok = h.w.requestResponse("", false) })
	assert.False(t, ok)

	h.do(func() { h.w.send("   ") })
	assert.Equal(t, []string{"Hello"}, h.backend.Messages())
}

func TestResponse_ThinkingSeparated(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.replies = []fakeReply{{text: "<think>reasoning text</think>Hello there"}}
	h.initialized()

	chat := h.messagesOf(KindChat)
	require.Len(t, chat, 1)
	assert.Equal(t, "Hello there", chat[0].Text)
	assert.Equal(t, "reasoning text", chat[0].ThinkingProcess)
	assert.False(t, chat[0].IsTyping)
}

func TestResponse_EmptyPayload(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.replies = []fakeReply{{text: "  "}}
	h.initialized()

	assert.Equal(t, []string{msgNoResponse}, h.agentChat())
	assert.False(t, h.snap().InFlight)
}

func TestResponse_GenericError(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.replies = []fakeReply{{err: errBoom}}
	h.initialized()

	assert.Equal(t, []string{msgRequestFailed}, h.agentChat())
	errs := h.messagesOf(KindError)
	require.Len(t, errs, 1)
	assert.Equal(t, SenderSystem, errs[0].Sender)
	assert.Equal(t, "Error: boom", errs[0].Text)

	s := h.snap()
	assert.False(t, s.InFlight)
	assert.True(t, s.Initialized, "generic errors keep the session")
	assert.Empty(t, h.messagesOf(KindTyping))
}

func TestResponse_NetworkTimeoutTakesGenericPath(t *testing.T) {
	h := newHarness(t, nil)
	h.initialized()
	timeout := chaterr.Normalize(&url.Error{
		Op:  "Post",
		URL: "http://agent.test/sessions/sess-1/messages",
		Err: context.DeadlineExceeded,
	})
	h.backend.replies = []fakeReply{{err: timeout}}

	h.do(func() { h.w.send("hi") })
	h.advance(5 * time.Second)

	assert.Equal(t, []string{"Hello", "hi"}, h.backend.Messages(), "no resubmit")
	assert.Equal(t, []string{"sess-1", "sess-1"}, h.backend.sessions)
	assert.Equal(t, msgRequestFailed, h.agentChat()[len(h.agentChat())-1])
	errs := h.messagesOf(KindError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Error: context deadline exceeded", errs[0].Text)
	assert.True(t, h.snap().Initialized)
	assert.Equal(t, "sess-1", h.snap().SessionID)
}

func TestResponse_SessionExpiredReinitializesAndResubmits(t *testing.T) {
	h := newHarness(t, nil)
	h.initialized()
	h.backend.replies = []fakeReply{{err: errExpired}}
	h.deferSpawn = true

	h.do(func() { h.w.send("hi") })
	h.runOnce()

	typing := h.messagesOf(KindTyping)
	require.Len(t, typing, 1)
	assert.Equal(t, "Reconnecting to Agentforce...", typing[0].Text)
	assert.True(t, h.snap().InFlight)

	h.runSpawned()
	h.advance(time.Second)

	assert.Equal(t, []string{"Hello", "hi", "hi"}, h.backend.Messages())
	assert.Equal(t, []string{"sess-1", "sess-1", "sess-2"}, h.backend.sessions)
	assert.Equal(t, "Echo: hi", h.agentChat()[len(h.agentChat())-1])
	assert.Equal(t, "sess-2", h.snap().SessionID)
	assert.Empty(t, h.messagesOf(KindStatus), "silent re-init adds no status lines")
}

func TestResponse_SessionExpiredTwiceGivesUp(t *testing.T) {
	h := newHarness(t, nil)
	h.initialized()
	h.backend.replies = []fakeReply{{err: errExpired}, {err: errExpired}, {text: "never"}}

	h.do(func() { h.w.send("hi") })
	h.advance(time.Second)

	assert.Equal(t, []string{"Hello", "hi", "hi"}, h.backend.Messages(), "the resubmission is not retried")
	chat := h.agentChat()
	assert.Equal(t, msgReconnectFailed, chat[len(chat)-1])
	assert.False(t, h.snap().InFlight)
}

func TestResponse_ReinitFailureApologizes(t *testing.T) {
	h := newHarness(t, nil)
	h.initialized()
	h.backend.replies = []fakeReply{{err: errExpired}}
	h.backend.initErrs = []error{errTransport, errTransport, errTransport}

	h.do(func() { h.w.send("hi") })
	h.advance(10 * time.Second)

	chat := h.agentChat()
	assert.Equal(t, msgReconnectFailed, chat[len(chat)-1])
	assert.Len(t, h.messagesOf(KindDiagnostic), 1)
	s := h.snap()
	assert.False(t, s.InFlight)
	assert.False(t, s.Initialized)
	assert.Empty(t, h.messagesOf(KindTyping))
}

func TestResponse_StaleAfterNewChatDropped(t *testing.T) {
	h := newHarness(t, nil)
	h.initialized()
	h.deferSpawn = true

	h.do(func() { h.w.send("hi") })
	h.do(h.w.newChat)
	h.runSpawned()
	h.advance(time.Second)

	assert.Empty(t, h.snap().Messages)
	assert.False(t, h.snap().InFlight)
}

func TestSend_Gating(t *testing.T) {
	t.Run("search mode before init", func(t *testing.T) {
		h := newHarness(t, func(c *config.Config) { c.Widget.SearchMode = true })
		h.do(func() { h.w.send("hi") })
		assert.Empty(t, h.snap().Messages)
	})

	t.Run("while revealing", func(t *testing.T) {
		h := newHarness(t, nil)
		h.initialized()
		h.do(func() { h.w.send("first") })
		require.True(t, h.snap().Revealing)

		h.do(func() { h.w.send("second") })
		assert.Equal(t, []string{"Hello", "first"}, h.backend.Messages())
	})

	t.Run("while initializing", func(t *testing.T) {
		h := newHarness(t, nil)
		h.deferSpawn = true
		h.do(h.w.open)
		h.do(func() { h.w.send("hi") })
		assert.Empty(t, h.messagesOf(KindChat))
	})

	t.Run("in voice mode", func(t *testing.T) {
		h := newHarness(t, nil)
		h.initialized()
		h.do(h.w.toggleVoice)
		h.do(func() { h.w.send("typed") })
		assert.Equal(t, []string{"Hello"}, h.backend.Messages())
	})
}

func TestSend_AfterFailedInitReinitializes(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.initErrs = []error{errTransport, errTransport, errTransport}
	h.do(h.w.open)
	h.advance(10 * time.Second)
	require.False(t, h.snap().Initialized)

	h.do(func() { h.w.send("hi") })
	h.advance(time.Second)

	assert.True(t, h.snap().Initialized)
	assert.Equal(t, []string{"hi"}, h.backend.Messages())
	assert.Equal(t, "Echo: hi", h.agentChat()[len(h.agentChat())-1])
}
