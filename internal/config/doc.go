// Package config handles configuration loading for coven-chat.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// Values missing from the file keep the defaults returned by Default().
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from the --config flag
//  2. Path from COVEN_CHAT_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/coven/chat.yaml
//  4. ~/.config/coven/chat.yaml
//
// # Environment Variable Expansion
//
//	agent:
//	  consumer_secret: "${AGENT_CONSUMER_SECRET}"
//
// # Configuration Sections
//
// Agent:
//
//	agent:
//	  name: "Agentforce"
//	  id: "0XxABC"
//	  base_url: "https://agent.example.com/api"
//	  consumer_key: "${AGENT_CONSUMER_KEY}"
//	  consumer_secret: "${AGENT_CONSUMER_SECRET}"
//	  request_timeout: "60s"
//
// Widget:
//
//	widget:
//	  default_dark_mode: false
//	  search_mode: false
//	  render_markdown: false
//
// Voice, speech output and capture:
//
//	voice:
//	  allow: true
//	  default_on: false
//	tts:
//	  url: "https://api.murf.ai/v1/speech/generate"
//	  api_key: "${MURF_API_KEY}"
//	  player_command: ["ffplay", "-nodisp", "-autoexit", "{url}"]
//	  local_voice_command: ["espeak", "{text}"]
//	capture:
//	  command: ["whisper-stream", "--jsonl"]
//
// Timing (Go duration syntax):
//
//	timing:
//	  slow_init_notice: "5s"
//	  init_retry_delay: "2s"
//	  init_max_retries: 2
//	  pause_window: "2.5s"
//	  silence_window: "1s"
//
// # Validation
//
// Load() requires agent.base_url and sane timing values. A missing agent id
// or credentials is reported by the widget at initialization instead.
package config
