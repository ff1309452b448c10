// ABOUTME: Widget aggregate that owns the session, message log, voice turn and surface state
// ABOUTME: Public methods post work to the event loop; collaborators are injected via Deps

package widget

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"tailscale.com/tstime"

	"github.com/2389/coven-chat/internal/agentapi"
	"github.com/2389/coven-chat/internal/capture"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/markup"
	"github.com/2389/coven-chat/internal/prefs"
	"github.com/2389/coven-chat/internal/store"
)

// Backend is the remote agent session API.
type Backend interface {
	InitSession(ctx context.Context, agentID string, creds agentapi.Credentials) (string, error)
	GetResponse(ctx context.Context, sessionID, message string, creds agentapi.Credentials) (string, error)
	EndSession(ctx context.Context, sessionID string, creds agentapi.Credentials) error
}

// Synthesizer turns text into a playable audio URL.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// AudioPlayer plays an audio URL to completion.
type AudioPlayer interface {
	Play(ctx context.Context, url string) error
}

// LocalSpeaker is the on-host speech fallback.
type LocalSpeaker interface {
	Speak(ctx context.Context, text string) error
}

// Recognizer starts a speech capture stream.
type Recognizer interface {
	Start(ctx context.Context) (<-chan capture.Event, error)
}

// ThemeStore persists the dark mode preference.
type ThemeStore interface {
	Load() (prefs.Prefs, error)
	SaveDarkMode(dark bool) error
}

// TranscriptSaver persists finished chats.
type TranscriptSaver interface {
	SaveTranscript(ctx context.Context, t *store.Transcript) error
}

// Deps are the widget's collaborators. Only Backend is required.
type Deps struct {
	Backend     Backend
	TTS         Synthesizer
	Player      AudioPlayer
	Local       LocalSpeaker
	Recognizer  Recognizer
	Theme       ThemeStore
	Transcripts TranscriptSaver
	Sink        Sink
	Markup      *markup.Processor
	Clock       tstime.Clock
	Logger      *slog.Logger
}

// queueSize bounds pending work posted to the event loop.
const queueSize = 256

// Widget is the chat session state machine. All fields below the queue are
// owned by the event loop goroutine.
type Widget struct {
	cfg    *config.Config
	creds  agentapi.Credentials
	deps   Deps
	markup *markup.Processor
	clock  tstime.Clock
	logger *slog.Logger

	// spawn runs a blocking call off the loop; goReader runs the capture reader.
	spawn    func(func())
	goReader func(func())

	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc

	log     *Log
	sess    sessionState
	ui      surfaceState
	pipe    pipelineState
	voice   voiceState
	timers  timerSet
	reveals map[string]*revealJob

	version uint64
	snap    atomic.Pointer[Snapshot]
}

type surfaceState struct {
	surface          Surface
	minimized        bool
	ended            bool
	expanded         bool
	darkMode         bool
	firstUserMessage bool
}

// New creates a widget. Call Run to start processing and Start or Open to
// begin a chat.
func New(cfg *config.Config, deps Deps) (*Widget, error) {
	if cfg == nil {
		return nil, errors.New("widget: config is required")
	}
	if deps.Backend == nil {
		return nil, errors.New("widget: backend is required")
	}
	if deps.Clock == nil {
		deps.Clock = tstime.StdClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Markup == nil {
		deps.Markup = markup.NewProcessor(cfg.Widget.RenderMarkdown)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Widget{
		cfg: cfg,
		creds: agentapi.Credentials{
			ConsumerKey:    cfg.Agent.ConsumerKey,
			ConsumerSecret: cfg.Agent.ConsumerSecret,
		},
		deps:     deps,
		markup:   deps.Markup,
		clock:    deps.Clock,
		logger:   deps.Logger.With("component", "widget"),
		spawn:    func(f func()) { go f() },
		goReader: func(f func()) { go f() },
		queue:    make(chan func(), queueSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		log:      NewLog(),
		reveals:  make(map[string]*revealJob),
	}

	w.ui.firstUserMessage = true
	w.pipe.firstIndicator = true
	if cfg.Widget.SearchMode {
		w.ui.surface = SurfaceWindow
	} else {
		w.ui.surface = SurfaceBubble
		w.ui.darkMode = cfg.Widget.DefaultDarkMode
		if deps.Theme != nil {
			p, err := deps.Theme.Load()
			if err != nil {
				w.logger.Warn("loading theme preference", "error", err)
			} else {
				w.ui.darkMode = p.DarkMode(cfg.Widget.DefaultDarkMode)
			}
		}
	}
	w.sess.id = tempSessionID()

	w.publish()
	return w, nil
}

func (w *Widget) agentName() string {
	if w.cfg.Agent.Name == "" {
		return "Agent"
	}
	return w.cfg.Agent.Name
}

// Snapshot returns the most recently published state.
func (w *Widget) Snapshot() Snapshot {
	return *w.snap.Load()
}

// Start performs the search-mode silent initialization. It does nothing
// outside search mode.
func (w *Widget) Start() {
	w.post(func() {
		if !w.cfg.Widget.SearchMode {
			return
		}
		w.initialize(true, nil)
	})
}

// Open shows the chat window, restoring a minimized chat or starting fresh.
func (w *Widget) Open() { w.post(w.open) }

// Minimize collapses the window to the bubble, keeping the conversation.
func (w *Widget) Minimize() { w.post(w.minimize) }

// ToggleExpand switches between the normal and expanded window.
func (w *Widget) ToggleExpand() {
	w.post(func() { w.ui.expanded = !w.ui.expanded })
}

// ToggleTheme flips dark mode and persists the choice.
func (w *Widget) ToggleTheme() { w.post(w.toggleTheme) }

// Send submits user text through input gating and the response pipeline.
func (w *Widget) Send(text string) {
	w.post(func() { w.send(text) })
}

// NewChat discards the current conversation and returns to the bubble.
func (w *Widget) NewChat() { w.post(w.newChat) }

// EndChat ends the session. Calls made while an end is in flight are ignored.
func (w *Widget) EndChat() { w.post(w.endChat) }

// ToggleVoice enters or leaves voice mode.
func (w *Widget) ToggleVoice() { w.post(w.toggleVoice) }

// ToggleMute mutes or unmutes the microphone in voice mode.
func (w *Widget) ToggleMute() { w.post(w.toggleMute) }

// ContinueSpeaking interrupts speech output and resumes listening.
func (w *Widget) ContinueSpeaking() { w.post(w.continueSpeaking) }
