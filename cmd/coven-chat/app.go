// ABOUTME: Builds the widget and its adapters from configuration
// ABOUTME: Owns the lifetime of the transcript database, audio cache and broadcaster

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tailscale.com/tstime"

	"github.com/2389/coven-chat/internal/agentapi"
	"github.com/2389/coven-chat/internal/capture"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/markup"
	"github.com/2389/coven-chat/internal/prefs"
	"github.com/2389/coven-chat/internal/presenter"
	"github.com/2389/coven-chat/internal/speech"
	"github.com/2389/coven-chat/internal/store"
	"github.com/2389/coven-chat/internal/widget"
)

// app bundles a running widget with the resources it depends on.
type app struct {
	widget      *widget.Widget
	broadcaster *presenter.Broadcaster
	store       *store.SQLiteStore
	cache       *speech.AudioCache
	logger      *slog.Logger
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	clock := tstime.StdClock{}

	transcripts, err := store.NewSQLiteStore(cfg.Storage.TranscriptDB)
	if err != nil {
		return nil, fmt.Errorf("opening transcript store: %w", err)
	}

	cache := speech.NewAudioCache(cfg.TTS.CacheTTL, cfg.TTS.CacheSize, clock)
	tts := speech.NewRemoteTTS(speech.RemoteConfig{
		URL:     cfg.TTS.URL,
		APIKey:  cfg.TTS.APIKey,
		VoiceID: cfg.TTS.VoiceID,
		Format:  cfg.TTS.Format,
		Timeout: cfg.Agent.RequestTimeout,
	}, cache, logger)

	broadcaster := presenter.NewBroadcaster(logger)

	w, err := widget.New(cfg, widget.Deps{
		Backend:     agentapi.New(cfg.Agent.BaseURL, cfg.Agent.RequestTimeout, agentapi.WithLogger(logger)),
		TTS:         tts,
		Player:      speech.NewPlayer(cfg.TTS.PlayerCommand),
		Local:       speech.NewLocalVoice(cfg.TTS.LocalVoiceCommand),
		Recognizer:  capture.New(cfg.Capture.Command, logger),
		Theme:       prefs.NewStore(cfg.Storage.PrefsPath),
		Transcripts: transcripts,
		Sink:        broadcaster,
		Markup:      markup.NewProcessor(cfg.Widget.RenderMarkdown),
		Clock:       clock,
		Logger:      logger,
	})
	if err != nil {
		cache.Close()
		broadcaster.Close()
		_ = transcripts.Close()
		return nil, fmt.Errorf("creating widget: %w", err)
	}

	return &app{
		widget:      w,
		broadcaster: broadcaster,
		store:       transcripts,
		cache:       cache,
		logger:      logger,
	}, nil
}

// run drives the widget event loop until ctx is done.
func (a *app) run(ctx context.Context) error {
	err := a.widget.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) close() {
	a.broadcaster.Close()
	a.cache.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing transcript store", "error", err)
	}
}
