// ABOUTME: Tests for the agent HTTP client against httptest servers
// ABOUTME: Covers the session lifecycle, auth headers, and error normalization

package agentapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/chaterr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second)
}

func bearerSubject(t *testing.T, r *http.Request) string {
	t.Helper()
	auth := r.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(auth, "Bearer "), "missing bearer token")
	_, sub, err := Verify(strings.TrimPrefix(auth, "Bearer "), lookupFor(testCreds))
	require.NoError(t, err)
	return sub
}

func TestInitSession_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sessions", r.URL.Path)
		assert.Equal(t, "agent-1", bearerSubject(t, r))

		var req initRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "agent-1", req.AgentID)

		_ = json.NewEncoder(w).Encode(initResponse{SessionID: "sess-42"})
	})

	id, err := c.InitSession(context.Background(), "agent-1", testCreds)
	require.NoError(t, err)
	assert.Equal(t, "sess-42", id)
}

func TestInitSession_EmptyIDIsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(initResponse{})
	})

	_, err := c.InitSession(context.Background(), "agent-1", testCreds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session ID returned")
}

func TestInitSession_MissingConfigMakesNoRequest(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.InitSession(context.Background(), "", testCreds)
	assert.True(t, chaterr.IsKind(err, chaterr.KindConfig))

	_, err = c.InitSession(context.Background(), "agent-1", Credentials{})
	assert.True(t, chaterr.IsKind(err, chaterr.KindConfig))

	assert.False(t, called)
}

func TestGetResponse_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/sess-1/messages", r.URL.Path)
		assert.Equal(t, "sess-1", bearerSubject(t, r))

		var req messageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hello", req.Message)

		_ = json.NewEncoder(w).Encode(messageResponse{Text: "<think>hm</think>Hi there"})
	})

	text, err := c.GetResponse(context.Background(), "sess-1", "Hello", testCreds)
	require.NoError(t, err)
	assert.Equal(t, "<think>hm</think>Hi there", text)
}

func TestGetResponse_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    chaterr.Kind
		wantMessage string
	}{
		{"expired session message", http.StatusBadRequest, `{"error":"Session expired"}`, chaterr.KindSession, "Session expired"},
		{"not found", http.StatusNotFound, ``, chaterr.KindSession, "HTTP Error: 404 Not Found"},
		{"server error with message field", http.StatusInternalServerError, `{"message":"boom"}`, chaterr.KindTransport, "boom"},
		{"non-json body", http.StatusBadGateway, `<html>`, chaterr.KindTransport, "HTTP Error: 502 Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.GetResponse(context.Background(), "sess-1", "hi", testCreds)
			require.Error(t, err)
			e := chaterr.Normalize(err)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.wantMessage, e.Message)
		})
	}
}

func TestGetResponse_EmptyText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	text, err := c.GetResponse(context.Background(), "sess-1", "hi", testCreds)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestEndSession(t *testing.T) {
	var gotMethod, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.EndSession(context.Background(), "sess-9", testCreds))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/sessions/sess-9", gotPath)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.InitSession(context.Background(), "agent-1", testCreds)
	require.Error(t, err)
	assert.True(t, chaterr.IsKind(err, chaterr.KindTransport))
}

func TestGetResponse_TimeoutIsNotSessionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, 50*time.Millisecond)
	_, err := c.GetResponse(context.Background(), "abc123", "hi", testCreds)
	require.Error(t, err)

	assert.True(t, chaterr.IsKind(err, chaterr.KindTransport))
	assert.False(t, chaterr.IsSession(err))
	assert.NotContains(t, chaterr.Normalize(err).Message, "/sessions/")
}

func TestGetResponse_RefusedIsNotSessionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.GetResponse(context.Background(), "abc123", "hi", testCreds)
	require.Error(t, err)

	assert.True(t, chaterr.IsKind(err, chaterr.KindTransport))
	assert.False(t, chaterr.IsSession(err))
}
