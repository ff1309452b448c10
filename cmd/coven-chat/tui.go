// ABOUTME: Bubbletea model rendering presenter view models in the terminal
// ABOUTME: Translates keys and slash commands into widget intents

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/markup"
	"github.com/2389/coven-chat/internal/presenter"
	"github.com/2389/coven-chat/internal/widget"
)

// controls is the set of widget intents the terminal UI can trigger.
type controls interface {
	Send(text string)
	Open()
	Minimize()
	ToggleExpand()
	ToggleTheme()
	NewChat()
	EndChat()
	ToggleVoice()
	ToggleMute()
	ContinueSpeaking()
}

type updateMsg presenter.Update

type updatesClosedMsg struct{}

func waitUpdate(ch <-chan presenter.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(u)
	}
}

type chatModel struct {
	ctl     controls
	updates <-chan presenter.Update
	text    *markup.Processor

	view         presenter.ViewModel
	input        textinput.Model
	log          viewport.Model
	showThinking bool
	notice       string
	width        int
	height       int
	ready        bool
}

func newChatModel(ctl controls, updates <-chan presenter.Update, cfg *config.Config) chatModel {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Type a message..."
	input.Focus()

	return chatModel{
		ctl:     ctl,
		updates: updates,
		text:    markup.NewProcessor(cfg.Widget.RenderMarkdown),
		input:   input,
		log:     viewport.New(0, 0),
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitUpdate(m.updates))
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.input.Width = max(msg.Width-4, 10)
		m.log.Width = msg.Width
		m.log.Height = max(msg.Height-5, 3)
		m.log.SetContent(m.renderMessages())
		return m, nil

	case updateMsg:
		atBottom := m.log.AtBottom()
		m.view = msg.View
		if m.view.Placeholder != "" {
			m.input.Placeholder = m.view.Placeholder
		}
		m.log.SetContent(m.renderMessages())
		if atBottom || len(msg.Diff.Added) > 0 {
			m.log.GotoBottom()
		}
		return m, waitUpdate(m.updates)

	case updatesClosedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.ctl.Minimize()
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			return m.submit(text)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.log, cmd = m.log.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) submit(text string) (tea.Model, tea.Cmd) {
	m.notice = ""
	if text == "" {
		if m.view.ShowBubble {
			m.ctl.Open()
		}
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		return m.command(text)
	}
	if m.view.ShowBubble {
		m.notice = "The chat is closed. Press enter or type /open to start."
		return m, nil
	}
	if m.view.InputDisabled {
		m.notice = "Please wait, " + strings.ToLower(m.view.Placeholder)
		return m, nil
	}
	m.ctl.Send(text)
	return m, nil
}

func (m chatModel) command(text string) (tea.Model, tea.Cmd) {
	name, _, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	switch name {
	case "voice":
		m.ctl.ToggleVoice()
	case "mute":
		m.ctl.ToggleMute()
	case "continue":
		m.ctl.ContinueSpeaking()
	case "end":
		m.ctl.EndChat()
	case "new":
		m.ctl.NewChat()
	case "open":
		m.ctl.Open()
	case "min":
		m.ctl.Minimize()
	case "expand":
		m.ctl.ToggleExpand()
	case "theme":
		m.ctl.ToggleTheme()
	case "think":
		m.showThinking = !m.showThinking
		m.log.SetContent(m.renderMessages())
	case "quit", "exit":
		return m, tea.Quit
	default:
		m.notice = fmt.Sprintf("Unknown command /%s", name)
	}
	return m, nil
}

func (m chatModel) View() string {
	if !m.ready {
		return "starting..."
	}
	st := newStyles(m.view.DarkMode, m.view.ThemeColor)

	if m.view.ShowBubble {
		line := st.bubble.Render("💬 " + m.view.Title)
		hint := st.muted.Render("  enter or /open to chat, /quit to exit")
		if m.view.Ended {
			hint = st.muted.Render("  chat ended. enter to start again")
		}
		return lipgloss.JoinVertical(lipgloss.Left, line+hint, m.input.View(), st.muted.Render(m.notice))
	}

	var b strings.Builder
	b.WriteString(m.header(st))
	b.WriteString("\n")
	b.WriteString(m.log.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.footer(st))
	return st.root.Render(b.String())
}

func (m chatModel) header(st styles) string {
	title := st.title.Render(m.view.Title)
	var parts []string
	if m.view.VoiceMode {
		status := m.view.VoiceStatus
		if m.view.MicMuted {
			status += " 🔇"
		}
		parts = append(parts, st.voice.Render(fmt.Sprintf("[%s] %s %s", m.view.VoiceState, status, levelBar(m.view.VoiceLevel))))
	}
	if m.view.Expanded {
		parts = append(parts, st.muted.Render("(expanded)"))
	}
	return strings.Join(append([]string{title}, parts...), "  ")
}

func (m chatModel) footer(st styles) string {
	menu := m.view.Menu
	items := []string{"/theme " + menu.ThemeLabel, "/expand " + menu.ExpandLabel}
	if menu.ShowVoice {
		items = append(items, "/voice "+menu.VoiceLabel)
	}
	if menu.ShowMute {
		items = append(items, "/mute "+menu.MuteLabel)
	}
	line := st.muted.Render(strings.Join(items, " · "))
	if m.notice != "" {
		line = st.notice.Render(m.notice) + "\n" + line
	}
	return line
}

func (m chatModel) renderMessages() string {
	st := newStyles(m.view.DarkMode, m.view.ThemeColor)
	var b strings.Builder
	if m.view.ShowWelcome {
		b.WriteString(st.title.Render(m.view.WelcomeText))
		b.WriteString("\n\n")
	}
	for _, mv := range m.view.Messages {
		b.WriteString(m.renderMessage(st, mv))
		b.WriteString("\n")
	}
	return b.String()
}

func (m chatModel) renderMessage(st styles, mv presenter.MessageView) string {
	body := mv.Body
	if mv.IsHTML {
		body = m.text.StripToText(body)
	}
	if mv.Typing && body == "" {
		body = "…"
	}
	width := max(m.width-4, 20)

	var out string
	switch mv.Kind {
	case widget.KindStatus, widget.KindTyping:
		out = st.status.Render(body)
	case widget.KindError:
		out = st.err.Render(body)
	case widget.KindDiagnostic:
		out = st.diagnostic.Width(width).Render(body)
	case widget.KindNotice:
		out = st.notice.Render(body)
	default:
		who := st.agent.Render(m.view.Title)
		if mv.Sender == widget.SenderUser {
			who = st.user.Render("You")
		}
		out = fmt.Sprintf("%s %s\n%s", who, st.muted.Render(mv.Timestamp), lipgloss.NewStyle().Width(width).Render(body))
	}

	if m.showThinking && mv.HasThinking {
		out += "\n" + st.thinking.Width(width).Render("thinking: "+mv.Thinking)
	}
	return out
}

// levelBar draws the capture confidence as a short meter.
func levelBar(level float64) string {
	const slots = 5
	filled := int(level*slots + 0.5)
	filled = min(max(filled, 0), slots)
	return strings.Repeat("▮", filled) + strings.Repeat("▯", slots-filled)
}

type styles struct {
	root       lipgloss.Style
	title      lipgloss.Style
	bubble     lipgloss.Style
	user       lipgloss.Style
	agent      lipgloss.Style
	status     lipgloss.Style
	err        lipgloss.Style
	diagnostic lipgloss.Style
	notice     lipgloss.Style
	thinking   lipgloss.Style
	voice      lipgloss.Style
	muted      lipgloss.Style
}

func newStyles(dark bool, accent string) styles {
	if accent == "" {
		accent = "#0076d3"
	}
	text := lipgloss.Color("#1b1b1b")
	muted := lipgloss.Color("#6b6b6b")
	if dark {
		text = lipgloss.Color("#f3f3ff")
		muted = lipgloss.Color("#9ca3d8")
	}
	brand := lipgloss.Color(accent)

	return styles{
		root:       lipgloss.NewStyle().Foreground(text),
		title:      lipgloss.NewStyle().Foreground(brand).Bold(true),
		bubble:     lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(brand).Padding(0, 1),
		user:       lipgloss.NewStyle().Foreground(lipgloss.Color("#05a167")).Bold(true),
		agent:      lipgloss.NewStyle().Foreground(brand).Bold(true),
		status:     lipgloss.NewStyle().Foreground(muted).Italic(true),
		err:        lipgloss.NewStyle().Foreground(lipgloss.Color("#e5484d")).Bold(true),
		diagnostic: lipgloss.NewStyle().Foreground(lipgloss.Color("#d4a017")).BorderStyle(lipgloss.RoundedBorder()).Padding(0, 1),
		notice:     lipgloss.NewStyle().Foreground(lipgloss.Color("#d4a017")),
		thinking:   lipgloss.NewStyle().Foreground(muted).Italic(true).PaddingLeft(2),
		voice:      lipgloss.NewStyle().Foreground(brand),
		muted:      lipgloss.NewStyle().Foreground(muted),
	}
}
