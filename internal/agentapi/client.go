// ABOUTME: HTTP client for the remote agent session API
// ABOUTME: Normalizes every failure into a chaterr.Error at the boundary

package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389/coven-chat/internal/chaterr"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// Client talks to the agent backend over HTTP+JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithSigner replaces the default token signer.
func WithSigner(s *Signer) Option {
	return func(c *Client) { c.signer = s }
}

// New creates a client rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		signer:     NewSigner(DefaultTokenTTL),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "agentapi")
	return c
}

type initRequest struct {
	AgentID string `json:"agent_id"`
}

type initResponse struct {
	SessionID string `json:"session_id"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// InitSession opens a session for agentID and returns the backend-issued id.
// An empty id in an otherwise successful reply is reported as an error.
func (c *Client) InitSession(ctx context.Context, agentID string, creds Credentials) (string, error) {
	if agentID == "" {
		return "", chaterr.Config("agent id is not configured")
	}
	if !creds.Valid() {
		return "", chaterr.Config("agent credentials are not configured")
	}

	var resp initResponse
	if err := c.do(ctx, http.MethodPost, "/sessions", creds, agentID, initRequest{AgentID: agentID}, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", chaterr.New(chaterr.KindTransport, "Failed to initialize session - no session ID returned")
	}
	c.logger.Debug("session initialized", "agent_id", agentID, "session_id", resp.SessionID)
	return resp.SessionID, nil
}

// GetResponse sends message on sessionID and returns the agent's reply text.
// An empty reply is not an error.
func (c *Client) GetResponse(ctx context.Context, sessionID, message string, creds Credentials) (string, error) {
	if sessionID == "" {
		return "", chaterr.New(chaterr.KindSession, "No active session")
	}
	var resp messageResponse
	path := "/sessions/" + url.PathEscape(sessionID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, creds, sessionID, messageRequest{Message: message}, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// EndSession tells the backend the session is over.
func (c *Client) EndSession(ctx context.Context, sessionID string, creds Credentials) error {
	if sessionID == "" {
		return nil
	}
	return c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), creds, sessionID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, creds Credentials, subject string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return chaterr.Normalize(fmt.Errorf("encoding request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return chaterr.Normalize(fmt.Errorf("building request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	token, err := c.signer.Sign(creds, subject)
	if err != nil {
		return chaterr.Config(fmt.Sprintf("signing request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("agent request failed", "method", method, "path", path, "error", err)
		return chaterr.Normalize(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return chaterr.Normalize(fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorResponse
	msg := ""
	if json.Unmarshal(data, &body) == nil {
		msg = body.Error
		if msg == "" {
			msg = body.Message
		}
	}
	return chaterr.FromStatus(resp.StatusCode, msg)
}
