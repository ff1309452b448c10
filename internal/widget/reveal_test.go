// ABOUTME: Tests for progressive reveal of agent replies
// ABOUTME: Steps the reveal tick with the fake clock

package widget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/markup"
)

func TestReveal_ThinkBlockStrippedAndStored(t *testing.T) {
	h := newHarness(t, nil)

	h.do(func() { h.w.reveal("<think>x</think>Hi") })
	chat := h.messagesOf(KindChat)
	require.Len(t, chat, 1)
	assert.Empty(t, chat[0].Text, "placeholder starts empty")
	assert.True(t, chat[0].IsTyping)
	assert.True(t, h.snap().Revealing)

	h.advance(3 * time.Millisecond)
	chat = h.messagesOf(KindChat)
	assert.Equal(t, "H", chat[0].Text)
	assert.Empty(t, chat[0].ThinkingProcess)

	h.advance(3 * time.Millisecond)
	chat = h.messagesOf(KindChat)
	assert.Equal(t, "Hi", chat[0].Text)
	assert.Equal(t, "x", chat[0].ThinkingProcess)
	assert.False(t, chat[0].IsTyping)
	assert.False(t, h.snap().Revealing)
}

func TestReveal_SanitizesPrefixEachTick(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Timing.RevealCharsPerTick = 4 })

	h.do(func() { h.w.reveal("<b>bold</b><script>alert(1)</script>") })
	h.advance(3 * time.Millisecond)
	first := h.messagesOf(KindChat)[0].Text
	assert.Contains(t, first, "b")
	assert.True(t, h.snap().Revealing)

	h.advance(time.Second)
	text := h.messagesOf(KindChat)[0].Text
	assert.Equal(t, "<b>bold</b>", text)
	assert.NotContains(t, text, "alert")
}

func TestReveal_HaltsWhenMessageRemoved(t *testing.T) {
	h := newHarness(t, nil)

	h.do(func() { h.w.reveal("a long reply that takes a while") })
	h.advance(6 * time.Millisecond)

	h.do(func() { h.w.log.RemoveWhere(OfKind(KindChat)) })
	h.advance(10 * time.Millisecond)

	assert.False(t, h.snap().Revealing)
	assert.Empty(t, h.snap().Messages)
}

func TestReveal_FlushCompletesImmediately(t *testing.T) {
	h := newHarness(t, nil)

	h.do(func() { h.w.reveal("<think>why</think>complete text") })
	h.do(h.w.flushReveals)

	chat := h.messagesOf(KindChat)
	require.Len(t, chat, 1)
	assert.Equal(t, "complete text", chat[0].Text)
	assert.Equal(t, "why", chat[0].ThinkingProcess)
	assert.False(t, h.snap().Revealing)
}

func TestReveal_MarkdownRendered(t *testing.T) {
	h := newHarness(t, nil)
	h.w.markup = markup.NewProcessor(true)

	h.do(func() { h.w.reveal("**bold**") })
	h.do(h.w.flushReveals)

	assert.Equal(t, "<p><strong>bold</strong></p>", h.messagesOf(KindChat)[0].Text)
}

func TestReveal_EmptyReplyCompletes(t *testing.T) {
	h := newHarness(t, nil)

	h.do(func() { h.w.reveal("<think>only thoughts</think>") })

	chat := h.messagesOf(KindChat)
	require.Len(t, chat, 1)
	assert.False(t, chat[0].IsTyping)
	assert.Equal(t, "only thoughts", chat[0].ThinkingProcess)
	assert.False(t, h.snap().Revealing)
}
