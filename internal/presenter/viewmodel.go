// ABOUTME: Derives a render-ready view model from a widget snapshot
// ABOUTME: Holds every display rule (labels, placeholders, gating) so front-ends stay dumb

package presenter

import (
	"fmt"

	"github.com/2389/coven-chat/internal/widget"
)

// MessageView is one chat line ready to draw.
type MessageView struct {
	ID          string
	Sender      widget.Sender
	Kind        widget.Kind
	Body        string
	Timestamp   string
	Typing      bool
	IsHTML      bool
	Thinking    string
	HasThinking bool
	Transient   bool // status and typing lines that will be retracted
}

// Menu holds the labels for the chat header actions.
type Menu struct {
	ShowVoice   bool
	VoiceLabel  string
	ThemeLabel  string
	ExpandLabel string
	MuteLabel   string
	ShowMute    bool
}

// ViewModel is everything a front-end needs to render one frame.
type ViewModel struct {
	Version uint64

	ShowBubble bool
	ShowWindow bool
	Minimized  bool
	Ended      bool
	Expanded   bool
	DarkMode   bool
	SearchMode bool

	Title       string
	ThemeColor  string
	Position    string
	ShowWelcome bool
	WelcomeText string

	Messages []MessageView

	InputDisabled bool
	Placeholder   string

	VoiceMode   bool
	VoiceState  string
	VoiceClass  string
	VoiceStatus string
	VoiceLevel  float64
	MicMuted    bool

	Menu Menu
}

const (
	placeholderDefault    = "Type a message..."
	placeholderWaiting    = "Waiting for response..."
	placeholderConnecting = "Connecting..."
	placeholderVoice      = "Voice mode is on"
)

// Build derives the view model for s.
func Build(s widget.Snapshot) ViewModel {
	vm := ViewModel{
		Version:    s.Version,
		ShowBubble: s.Surface == widget.SurfaceBubble,
		ShowWindow: s.Surface == widget.SurfaceWindow && !s.Minimized,
		Minimized:  s.Minimized,
		Ended:      s.Ended,
		Expanded:   s.Expanded,
		DarkMode:   s.DarkMode,
		SearchMode: s.SearchMode,

		Title:      s.HeaderText,
		ThemeColor: s.ThemeColor,
		Position:   s.Position,

		VoiceMode:   s.VoiceMode,
		VoiceState:  s.Voice.String(),
		VoiceClass:  voiceClass(s),
		VoiceStatus: s.VoiceStatus,
		VoiceLevel:  s.VoiceLevel,
		MicMuted:    s.MicMuted,
	}
	if vm.Title == "" {
		vm.Title = s.AgentName
	}
	if s.SearchMode && s.FirstUserMessage {
		vm.ShowWelcome = true
		vm.WelcomeText = s.SearchWelcomeText
	}

	vm.Messages = make([]MessageView, 0, len(s.Messages))
	for _, m := range s.Messages {
		vm.Messages = append(vm.Messages, messageView(m))
	}

	vm.InputDisabled, vm.Placeholder = input(s)
	vm.Menu = menu(s)
	return vm
}

func messageView(m widget.Message) MessageView {
	return MessageView{
		ID:          m.ID,
		Sender:      m.Sender,
		Kind:        m.Kind,
		Body:        m.Text,
		Timestamp:   m.Timestamp,
		Typing:      m.IsTyping,
		IsHTML:      m.RawHTML,
		Thinking:    m.ThinkingProcess,
		HasThinking: m.ThinkingProcess != "",
		Transient:   m.Kind == widget.KindStatus || m.Kind == widget.KindTyping,
	}
}

// input mirrors the widget's send gating so the box is disabled exactly when
// a send would be refused.
func input(s widget.Snapshot) (bool, string) {
	switch {
	case s.VoiceMode:
		return true, placeholderVoice
	case s.Initializing, s.SearchMode && s.FirstUserMessage && !s.Initialized:
		return true, placeholderConnecting
	case s.InFlight, s.Revealing:
		return true, placeholderWaiting
	case s.Ending:
		return true, ""
	}
	if s.SearchMode && s.FirstUserMessage && s.SearchWelcomeText != "" {
		return false, s.SearchWelcomeText
	}
	return false, placeholderDefault
}

func voiceClass(s widget.Snapshot) string {
	if !s.VoiceMode {
		return ""
	}
	switch s.Voice {
	case widget.VoiceActivelyCapturing, widget.VoicePendingPauseConfirmation:
		return "voice-capturing"
	case widget.VoiceThinking:
		return "voice-thinking"
	case widget.VoiceSpeaking:
		return "voice-speaking"
	case widget.VoiceMuted:
		return "voice-muted"
	default:
		return "voice-listening"
	}
}

func menu(s widget.Snapshot) Menu {
	m := Menu{
		ShowVoice:   s.AllowVoice,
		VoiceLabel:  "Switch to Voice Mode",
		ThemeLabel:  "Switch to Dark Mode",
		ExpandLabel: "Expand Chat",
		MuteLabel:   "Mute",
		ShowMute:    s.VoiceMode,
	}
	if s.VoiceMode {
		m.VoiceLabel = "Switch to Text Mode"
	}
	if s.DarkMode {
		m.ThemeLabel = "Switch to Light Mode"
	}
	if s.Expanded {
		m.ExpandLabel = "Minimize Chat"
	}
	if s.ManualMute {
		m.MuteLabel = "Unmute"
	}
	return m
}

// String renders a one-line summary, used in logs.
func (vm ViewModel) String() string {
	return fmt.Sprintf("view v%d: %d messages, voice=%s, input_disabled=%t",
		vm.Version, len(vm.Messages), vm.VoiceState, vm.InputDisabled)
}
