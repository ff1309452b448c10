// ABOUTME: Test harness driving a widget with a fake clock and fake collaborators
// ABOUTME: Queued work is drained on the test goroutine so every step is deterministic

package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/agentapi"
	"github.com/2389/coven-chat/internal/capture"
	"github.com/2389/coven-chat/internal/chaterr"
	"github.com/2389/coven-chat/internal/clocktest"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/prefs"
	"github.com/2389/coven-chat/internal/store"
)

type fakeReply struct {
	text string
	err  error
}

type fakeBackend struct {
	mu        sync.Mutex
	initErrs  []error // consumed per InitSession call; nil entries succeed
	initCalls int
	nextID    int
	replies   []fakeReply
	messages  []string
	sessions  []string
	endCalls  []string
	endErr    error
}

func (b *fakeBackend) InitSession(ctx context.Context, agentID string, creds agentapi.Credentials) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initCalls++
	if len(b.initErrs) > 0 {
		err := b.initErrs[0]
		b.initErrs = b.initErrs[1:]
		if err != nil {
			return "", err
		}
	}
	b.nextID++
	return fmt.Sprintf("sess-%d", b.nextID), nil
}

func (b *fakeBackend) GetResponse(ctx context.Context, sessionID, message string, creds agentapi.Credentials) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message)
	b.sessions = append(b.sessions, sessionID)
	if len(b.replies) > 0 {
		r := b.replies[0]
		b.replies = b.replies[1:]
		return r.text, r.err
	}
	return "Echo: " + message, nil
}

func (b *fakeBackend) EndSession(ctx context.Context, sessionID string, creds agentapi.Credentials) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endCalls = append(b.endCalls, sessionID)
	return b.endErr
}

func (b *fakeBackend) Messages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.messages...)
}

func (b *fakeBackend) InitCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initCalls
}

type fakeTTS struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return "", f.err
	}
	return "https://audio.test/" + fmt.Sprint(len(f.texts)) + ".mp3", nil
}

type fakePlayer struct {
	mu     sync.Mutex
	played []string
	err    error
}

func (f *fakePlayer) Play(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, url)
	return f.err
}

type fakeLocal struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (f *fakeLocal) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return f.err
}

type fakeRecognizer struct {
	mu     sync.Mutex
	starts int
	err    error
}

func (f *fakeRecognizer) Start(ctx context.Context) (<-chan capture.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.err != nil {
		return nil, f.err
	}
	return make(chan capture.Event), nil
}

func (f *fakeRecognizer) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type fakeTheme struct {
	mu    sync.Mutex
	prefs prefs.Prefs
	saves []bool
}

func (f *fakeTheme) Load() (prefs.Prefs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefs, nil
}

func (f *fakeTheme) SaveDarkMode(dark bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, dark)
	return nil
}

type countingSink struct {
	mu    sync.Mutex
	count int
	last  Snapshot
}

func (s *countingSink) Publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	s.last = snap
}

type harness struct {
	t       *testing.T
	w       *Widget
	cfg     *config.Config
	clock   *clocktest.Clock
	backend *fakeBackend
	tts     *fakeTTS
	player  *fakePlayer
	local   *fakeLocal
	rec     *fakeRecognizer
	theme   *fakeTheme
	store   *store.MockStore
	sink    *countingSink

	deferSpawn bool
	spawned    []func()
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Agent.ID = "agent-1"
	cfg.Agent.BaseURL = "https://agent.test/api"
	cfg.Agent.ConsumerKey = "key"
	cfg.Agent.ConsumerSecret = "secret"
	cfg.Voice.Allow = true
	return cfg
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	h := &harness{
		t:       t,
		cfg:     cfg,
		clock:   clocktest.New(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)),
		backend: &fakeBackend{},
		tts:     &fakeTTS{},
		player:  &fakePlayer{},
		local:   &fakeLocal{},
		rec:     &fakeRecognizer{},
		theme:   &fakeTheme{},
		store:   store.NewMockStore(),
		sink:    &countingSink{},
	}

	w, err := New(cfg, Deps{
		Backend:     h.backend,
		TTS:         h.tts,
		Player:      h.player,
		Local:       h.local,
		Recognizer:  h.rec,
		Theme:       h.theme,
		Transcripts: h.store,
		Sink:        h.sink,
		Clock:       h.clock,
	})
	require.NoError(t, err)

	w.spawn = func(f func()) {
		if h.deferSpawn {
			h.spawned = append(h.spawned, f)
			return
		}
		f()
	}
	w.goReader = func(func()) {}
	h.w = w
	t.Cleanup(w.shutdown)
	return h
}

// do runs fn on the loop the way a posted closure would.
func (h *harness) do(fn func()) {
	h.t.Helper()
	require.True(h.t, h.w.post(fn))
	h.drain()
}

// drain runs queued closures until the queue is empty.
func (h *harness) drain() {
	for {
		select {
		case fn := <-h.w.queue:
			h.w.exec(fn)
		default:
			return
		}
	}
}

// advance moves the clock forward in small steps, draining after each so
// that timers armed by callbacks are scheduled before the next step.
func (h *harness) advance(d time.Duration) {
	const step = time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		h.clock.Advance(step)
		h.drain()
	}
}

// runOnce executes the currently deferred calls once, leaving any calls
// they trigger deferred.
func (h *harness) runOnce() {
	pending := h.spawned
	h.spawned = nil
	for _, f := range pending {
		f()
	}
	h.drain()
}

// runSpawned executes deferred blocking calls and drains their results
// until nothing is left.
func (h *harness) runSpawned() {
	for len(h.spawned) > 0 {
		pending := h.spawned
		h.spawned = nil
		for _, f := range pending {
			f()
		}
		h.drain()
	}
}

func (h *harness) snap() Snapshot {
	return h.w.Snapshot()
}

func (h *harness) messagesOf(kind Kind) []Message {
	var out []Message
	for _, m := range h.snap().Messages {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func (h *harness) agentChat() []string {
	var out []string
	for _, m := range h.messagesOf(KindChat) {
		if m.Sender == SenderAgent {
			out = append(out, m.Text)
		}
	}
	return out
}

// initialized opens the window and runs initialization and the greeting.
func (h *harness) initialized() {
	h.t.Helper()
	h.do(h.w.open)
	h.advance(h.cfg.Timing.GreetingDelay + time.Second)
	require.True(h.t, h.snap().Initialized)
}

// capture feeds a recognizer event into the current capture stream.
func (h *harness) capture(ev capture.Event) {
	h.do(func() { h.w.onCaptureEvent(h.w.voice.captureGen, ev) })
}

var (
	errTransport = chaterr.FromStatus(503, "upstream unavailable")
	errExpired   = chaterr.New(chaterr.KindSession, "Session expired")
	errBoom      = errors.New("boom")
)
