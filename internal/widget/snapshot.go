// ABOUTME: Immutable widget state snapshots handed to the presentation layer
// ABOUTME: Defines the surface and voice-turn enums and the Sink interface

package widget

// Surface is which chrome the widget currently shows.
type Surface string

const (
	SurfaceBubble Surface = "bubble"
	SurfaceWindow Surface = "window"
)

// VoiceState is the voice-turn state machine position.
type VoiceState int

const (
	VoiceIdle VoiceState = iota
	VoiceListening
	VoiceActivelyCapturing
	VoicePendingPauseConfirmation
	VoiceThinking
	VoiceSpeaking
	VoiceMuted
)

func (s VoiceState) String() string {
	switch s {
	case VoiceIdle:
		return "idle"
	case VoiceListening:
		return "listening"
	case VoiceActivelyCapturing:
		return "actively_capturing"
	case VoicePendingPauseConfirmation:
		return "pending_pause_confirmation"
	case VoiceThinking:
		return "thinking"
	case VoiceSpeaking:
		return "speaking"
	case VoiceMuted:
		return "muted"
	default:
		return "unknown"
	}
}

// listening reports whether capture should be running in this state.
func (s VoiceState) listening() bool {
	return s == VoiceListening || s == VoiceActivelyCapturing || s == VoicePendingPauseConfirmation
}

// Snapshot is a point-in-time copy of everything the presentation layer
// needs. It never aliases widget-owned memory.
type Snapshot struct {
	Version uint64

	Messages []Message

	SessionID    string
	Initialized  bool
	Initializing bool
	Ending       bool
	InFlight     bool
	Revealing    bool

	Surface          Surface
	Minimized        bool
	Ended            bool
	Expanded         bool
	DarkMode         bool
	SearchMode       bool
	FirstUserMessage bool

	AllowVoice  bool
	VoiceMode   bool
	Voice       VoiceState
	MicMuted    bool // manual mute or the automatic mute while thinking
	ManualMute  bool
	VoiceStatus string
	VoiceLevel  float64

	AgentName         string
	HeaderText        string
	ThemeColor        string
	Position          string
	SearchWelcomeText string
}

// Sink receives a snapshot after every state change. Publish is called on
// the widget event loop and must not block.
type Sink interface {
	Publish(Snapshot)
}
