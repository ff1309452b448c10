// ABOUTME: Configuration loading and parsing for coven-chat
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete coven-chat configuration
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Widget  WidgetConfig  `yaml:"widget"`
	Voice   VoiceConfig   `yaml:"voice"`
	TTS     TTSConfig     `yaml:"tts"`
	Capture CaptureConfig `yaml:"capture"`
	Timing  TimingConfig  `yaml:"timing"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// AgentConfig identifies the remote agent and the credentials used to reach it.
// ID and the consumer credentials may be empty; the widget reports that as a
// configuration message at initialization time instead of refusing to start.
type AgentConfig struct {
	Name           string        `yaml:"name"`
	ID             string        `yaml:"id"`
	BaseURL        string        `yaml:"base_url"`
	ConsumerKey    string        `yaml:"consumer_key"`
	ConsumerSecret string        `yaml:"consumer_secret"`
	RequestTimeout time.Duration `yaml:"-"`

	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// WidgetConfig holds the static presentation inputs
type WidgetConfig struct {
	HeaderText        string `yaml:"header_text"`
	Greeting          string `yaml:"greeting"`
	DefaultDarkMode   bool   `yaml:"default_dark_mode"`
	ThemeColor        string `yaml:"theme_color"`
	Position          string `yaml:"position"`
	SearchMode        bool   `yaml:"search_mode"`
	SearchWelcomeText string `yaml:"search_welcome_text"`
	RenderMarkdown    bool   `yaml:"render_markdown"`
}

// VoiceConfig controls voice-mode availability
type VoiceConfig struct {
	Allow     bool `yaml:"allow"`
	DefaultOn bool `yaml:"default_on"` // enter voice mode after the first user message
}

// TTSConfig holds the remote speech service and local playback settings
type TTSConfig struct {
	URL               string        `yaml:"url"`
	APIKey            string        `yaml:"api_key"`
	VoiceID           string        `yaml:"voice_id"`
	Format            string        `yaml:"format"`
	CacheSize         int           `yaml:"cache_size"`
	CacheTTL          time.Duration `yaml:"-"`
	PlayerCommand     []string      `yaml:"player_command"`      // {url} is replaced with the audio URL
	LocalVoiceCommand []string      `yaml:"local_voice_command"` // {text} is replaced, or text is written to stdin

	CacheTTLRaw string `yaml:"cache_ttl"`
}

// CaptureConfig holds the speech capture command
type CaptureConfig struct {
	Command []string `yaml:"command"`
}

// TimingConfig holds every timer the widget runs
type TimingConfig struct {
	SlowInitNotice      time.Duration `yaml:"-"`
	InitRetryDelay      time.Duration `yaml:"-"`
	InitMaxRetries      int           `yaml:"init_max_retries"`
	GreetingDelay       time.Duration `yaml:"-"`
	ReopenGreetingDelay time.Duration `yaml:"-"`
	RevealTick          time.Duration `yaml:"-"`
	RevealCharsPerTick  int           `yaml:"reveal_chars_per_tick"`
	SilenceWindow       time.Duration `yaml:"-"`
	PauseWindow         time.Duration `yaml:"-"`
	TTSFallbackDelay    time.Duration `yaml:"-"`
	CaptureRestartDelay time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	SlowInitNoticeRaw      string `yaml:"slow_init_notice"`
	InitRetryDelayRaw      string `yaml:"init_retry_delay"`
	GreetingDelayRaw       string `yaml:"greeting_delay"`
	ReopenGreetingDelayRaw string `yaml:"reopen_greeting_delay"`
	RevealTickRaw          string `yaml:"reveal_tick"`
	SilenceWindowRaw       string `yaml:"silence_window"`
	PauseWindowRaw         string `yaml:"pause_window"`
	TTSFallbackDelayRaw    string `yaml:"tts_fallback_delay"`
	CaptureRestartDelayRaw string `yaml:"capture_restart_delay"`
}

// StorageConfig holds local persistence paths
type StorageConfig struct {
	TranscriptDB string `yaml:"transcript_db"`
	PrefsPath    string `yaml:"prefs_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns a configuration populated with the built-in defaults.
// The timing values mirror the behaviour users expect from the chat widget.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:           "Agentforce",
			RequestTimeout: 60 * time.Second,
		},
		Widget: WidgetConfig{
			HeaderText:        "Agentforce",
			Greeting:          "Hello",
			ThemeColor:        "#0076d3",
			Position:          "bottom-right",
			SearchWelcomeText: "How can Agentforce help?",
		},
		TTS: TTSConfig{
			Format:    "MP3",
			CacheSize: 64,
			CacheTTL:  30 * time.Minute,
		},
		Timing: TimingConfig{
			SlowInitNotice:      5 * time.Second,
			InitRetryDelay:      2 * time.Second,
			InitMaxRetries:      2,
			GreetingDelay:       1500 * time.Millisecond,
			ReopenGreetingDelay: 300 * time.Millisecond,
			RevealTick:          3 * time.Millisecond,
			RevealCharsPerTick:  1,
			SilenceWindow:       time.Second,
			PauseWindow:         2500 * time.Millisecond,
			TTSFallbackDelay:    300 * time.Millisecond,
			CaptureRestartDelay: 200 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the path to the chat config file.
// Priority: COVEN_CHAT_CONFIG env var > XDG_CONFIG_HOME/coven/chat.yaml > ~/.config/coven/chat.yaml
func DefaultPath() string {
	if envPath := os.Getenv("COVEN_CHAT_CONFIG"); envPath != "" {
		return envPath
	}
	return filepath.Join(configDir(), "coven", "chat.yaml")
}

// DataDir returns the coven data directory.
// Priority: XDG_DATA_HOME/coven > ~/.local/share/coven
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "coven")
}

func configDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		dir = filepath.Join(homeDir, ".config")
	}
	return dir
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
// Fields absent from the file keep their Default() values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration content over the defaults.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyPathDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyPathDefaults() {
	if c.Storage.TranscriptDB == "" {
		c.Storage.TranscriptDB = filepath.Join(DataDir(), "transcripts.db")
	}
	if c.Storage.PrefsPath == "" {
		c.Storage.PrefsPath = filepath.Join(configDir(), "coven", "chat-prefs.toml")
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Agent.BaseURL == "" {
		return fmt.Errorf("agent.base_url is required")
	}
	u, err := url.Parse(c.Agent.BaseURL)
	if err != nil {
		return fmt.Errorf("agent.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("agent.base_url must use http or https scheme")
	}

	if c.TTS.URL != "" {
		if _, err := url.Parse(c.TTS.URL); err != nil {
			return fmt.Errorf("tts.url is not a valid URL: %w", err)
		}
	}

	if c.Timing.InitMaxRetries < 0 {
		return fmt.Errorf("timing.init_max_retries must not be negative")
	}
	if c.Timing.RevealCharsPerTick < 1 {
		return fmt.Errorf("timing.reveal_chars_per_tick must be at least 1")
	}
	if c.Timing.RevealTick <= 0 {
		return fmt.Errorf("timing.reveal_tick must be positive")
	}
	if c.Timing.PauseWindow <= 0 {
		return fmt.Errorf("timing.pause_window must be positive")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"request_timeout", cfg.Agent.RequestTimeoutRaw, &cfg.Agent.RequestTimeout},
		{"cache_ttl", cfg.TTS.CacheTTLRaw, &cfg.TTS.CacheTTL},
		{"slow_init_notice", cfg.Timing.SlowInitNoticeRaw, &cfg.Timing.SlowInitNotice},
		{"init_retry_delay", cfg.Timing.InitRetryDelayRaw, &cfg.Timing.InitRetryDelay},
		{"greeting_delay", cfg.Timing.GreetingDelayRaw, &cfg.Timing.GreetingDelay},
		{"reopen_greeting_delay", cfg.Timing.ReopenGreetingDelayRaw, &cfg.Timing.ReopenGreetingDelay},
		{"reveal_tick", cfg.Timing.RevealTickRaw, &cfg.Timing.RevealTick},
		{"silence_window", cfg.Timing.SilenceWindowRaw, &cfg.Timing.SilenceWindow},
		{"pause_window", cfg.Timing.PauseWindowRaw, &cfg.Timing.PauseWindow},
		{"tts_fallback_delay", cfg.Timing.TTSFallbackDelayRaw, &cfg.Timing.TTSFallbackDelay},
		{"capture_restart_delay", cfg.Timing.CaptureRestartDelayRaw, &cfg.Timing.CaptureRestartDelay},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
