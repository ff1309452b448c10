// ABOUTME: Tests for error normalization and session classification
// ABOUTME: Covers status-based, message-based and wrapped error shapes

package chaterr

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_PlainError(t *testing.T) {
	e := Normalize(errors.New("connection refused"))
	require.NotNil(t, e)
	assert.Equal(t, KindTransport, e.Kind)
	assert.Equal(t, "connection refused", e.Message)
	assert.Equal(t, 0, e.Status)
}

func TestNormalize_KeepsTaggedError(t *testing.T) {
	orig := FromStatus(500, "boom")
	wrapped := fmt.Errorf("getting response: %w", orig)

	e := Normalize(wrapped)
	assert.Same(t, orig, e)
}

func TestNormalize_Nil(t *testing.T) {
	assert.Nil(t, Normalize(nil))
}

func TestFromStatus_EmptyMessage(t *testing.T) {
	e := FromStatus(503, "")
	assert.Equal(t, "HTTP Error: 503 Service Unavailable", e.Message)
	assert.Equal(t, KindTransport, e.Kind)
}

func TestIsSession(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"status 404", FromStatus(404, "not here"), true},
		{"backend mentions session", FromStatus(400, "Invalid Session ID"), true},
		{"backend mentions expired", FromStatus(401, "token EXPIRED"), true},
		{"local error mentioning session", errors.New("dial /sessions/abc: refused"), false},
		{"request url with session path", &url.Error{Op: "Post", URL: "http://agent/sessions/abc/messages", Err: context.DeadlineExceeded}, false},
		{"session kind", New(KindSession, "gone"), true},
		{"generic transport", FromStatus(500, "internal"), false},
		{"plain error", errors.New("timeout"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSession(tt.err))
		})
	}
}

func TestNormalize_DropsRequestURL(t *testing.T) {
	err := &url.Error{Op: "Post", URL: "http://agent/sessions/abc/messages", Err: errors.New("connection refused")}

	e := Normalize(err)
	assert.Equal(t, KindTransport, e.Kind)
	assert.Equal(t, "connection refused", e.Message)
	assert.ErrorIs(t, e, err)
}

func TestFromStatus_ClassifiesSession(t *testing.T) {
	assert.Equal(t, KindSession, FromStatus(404, "").Kind)
	assert.Equal(t, KindSession, FromStatus(400, "session expired").Kind)
}

func TestError_Format(t *testing.T) {
	assert.Equal(t, "transport error (status 502): bad gateway", FromStatus(502, "bad gateway").Error())
	assert.Equal(t, "config error: missing agent id", Config("missing agent id").Error())
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(Unsupported("no mic"), KindUnsupported))
	assert.False(t, IsKind(errors.New("x"), KindUnsupported))
}
