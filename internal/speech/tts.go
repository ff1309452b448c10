// ABOUTME: Client for the remote text-to-speech service
// ABOUTME: Returns a playable audio URL and caches results by text

package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/2389/coven-chat/internal/chaterr"
)

// RemoteTTS requests synthesized audio from an HTTP service.
type RemoteTTS struct {
	url        string
	apiKey     string
	voiceID    string
	format     string
	httpClient *http.Client
	cache      *AudioCache
	logger     *slog.Logger
}

// RemoteConfig holds the service endpoint and voice selection.
type RemoteConfig struct {
	URL     string
	APIKey  string
	VoiceID string
	Format  string
	Timeout time.Duration
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId,omitempty"`
	Format  string `json:"format,omitempty"`
}

type synthesizeResponse struct {
	AudioFile string `json:"audioFile"`
}

// NewRemoteTTS creates a client. cache may be nil.
func NewRemoteTTS(cfg RemoteConfig, cache *AudioCache, logger *slog.Logger) *RemoteTTS {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteTTS{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		voiceID:    cfg.VoiceID,
		format:     cfg.Format,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		logger:     logger.With("component", "tts"),
	}
}

// Synthesize returns an audio URL for text.
func (r *RemoteTTS) Synthesize(ctx context.Context, text string) (string, error) {
	if r.url == "" {
		return "", ErrUnsupported
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if r.cache != nil {
		if url, ok := r.cache.Get(text); ok {
			r.logger.Debug("tts cache hit", "chars", len(text))
			return url, nil
		}
	}

	data, err := json.Marshal(synthesizeRequest{Text: text, VoiceID: r.voiceID, Format: r.format})
	if err != nil {
		return "", fmt.Errorf("encoding tts request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("building tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("api-key", r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", chaterr.Normalize(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", chaterr.FromStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding tts response: %w", err)
	}
	if out.AudioFile == "" {
		return "", fmt.Errorf("tts response had no audio file")
	}

	if r.cache != nil {
		r.cache.Put(text, out.AudioFile)
	}
	return out.AudioFile, nil
}
