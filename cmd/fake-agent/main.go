// ABOUTME: Minimal fake agent backend for E2E testing: serves the session API over HTTP and echoes messages.
// ABOUTME: Usage: fake-agent [-addr localhost:8090] [-id e2e-echo-agent] [-key dev-key] [-secret dev-secret]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-chat/internal/agentapi"
)

func main() {
	addr := flag.String("addr", "localhost:8090", "HTTP listen address")
	agentID := flag.String("id", "e2e-echo-agent", "Agent ID")
	key := flag.String("key", "dev-key", "Consumer key")
	secret := flag.String("secret", "dev-secret", "Consumer secret")
	delay := flag.Duration("delay", 300*time.Millisecond, "Simulated thinking time per reply")
	flag.Parse()

	if err := run(*addr, newAgent(*agentID, *key, *secret, *delay)); err != nil {
		log.Fatal(err)
	}
}

func run(addr string, a *agent) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	fmt.Fprintf(os.Stderr, "fake agent %s listening on %s\n", a.id, addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type agent struct {
	id     string
	key    string
	secret []byte
	delay  time.Duration

	mu       sync.Mutex
	sessions map[string]int // session id -> messages received
}

func newAgent(id, key, secret string, delay time.Duration) *agent {
	return &agent{
		id:       id,
		key:      key,
		secret:   []byte(secret),
		delay:    delay,
		sessions: make(map[string]int),
	}
}

func (a *agent) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", a.handleInit)
	mux.HandleFunc("POST /sessions/{id}/messages", a.handleMessage)
	mux.HandleFunc("DELETE /sessions/{id}", a.handleEnd)
	mux.HandleFunc("POST /tts", a.handleTTS)
	return mux
}

func (a *agent) lookup(consumerKey string) ([]byte, bool) {
	if consumerKey != a.key {
		return nil, false
	}
	return a.secret, true
}

// authorize checks the bearer token and that it addresses subject.
func (a *agent) authorize(w http.ResponseWriter, r *http.Request, subject string) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return false
	}
	_, sub, err := agentapi.Verify(token, a.lookup)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, agentapi.ErrUnknownKey) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return false
	}
	if sub != subject {
		writeError(w, http.StatusForbidden, "token subject mismatch")
		return false
	}
	return true
}

func (a *agent) handleInit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !a.authorize(w, r, req.AgentID) {
		return
	}
	if req.AgentID != a.id {
		writeError(w, http.StatusNotFound, "unknown agent "+req.AgentID)
		return
	}

	id := uuid.NewString()
	a.mu.Lock()
	a.sessions[id] = 0
	a.mu.Unlock()

	log.Printf("session opened: %s", id)
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

func (a *agent) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !a.authorize(w, r, id) {
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	a.mu.Lock()
	_, ok := a.sessions[id]
	if ok {
		a.sessions[id]++
	}
	// "expire" drops the session so the client exercises its re-init path.
	if ok && strings.EqualFold(strings.TrimSpace(req.Message), "expire") {
		delete(a.sessions, id)
		ok = false
	}
	a.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Invalid session ID")
		return
	}

	log.Printf("received message [%s]: %s", id, req.Message)

	select {
	case <-time.After(a.delay):
	case <-r.Context().Done():
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": echoReply(req.Message)})
}

func (a *agent) handleEnd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !a.authorize(w, r, id) {
		return
	}
	a.mu.Lock()
	n, ok := a.sessions[id]
	delete(a.sessions, id)
	a.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Invalid session ID")
		return
	}
	log.Printf("session ended: %s after %d messages", id, n)
	w.WriteHeader(http.StatusNoContent)
}

// handleTTS pretends to synthesize speech and returns a stable audio URL.
func (a *agent) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	url := fmt.Sprintf("http://%s/audio/%s.mp3", r.Host, uuid.NewSHA1(uuid.NameSpaceURL, []byte(req.Text)))
	writeJSON(w, http.StatusOK, map[string]string{"audioFile": url})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func echoReply(input string) string {
	lower := strings.ToLower(input)
	think := fmt.Sprintf("<think>The user said %q. Echo it back.</think>", input)
	if strings.Contains(lower, "markdown") || strings.Contains(lower, "bullet") || strings.Contains(lower, "list") {
		return think + "Here is a **markdown** response:\n\n- First item\n- Second item with `code`\n- Third item\n\n> This is a blockquote.\n"
	}
	if strings.Contains(lower, "silent") {
		return ""
	}
	return think + fmt.Sprintf("Echo: **%s**\n\nI received your message and am responding with some *formatted* text.", input)
}
