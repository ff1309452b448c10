// ABOUTME: Message model for the chat log: sender, kind, text and reveal metadata
// ABOUTME: Kinds let transient lines be retracted by predicate instead of text matching

package widget

import "time"

// Sender identifies who a message is attributed to.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAgent  Sender = "agent"
	SenderSystem Sender = "system"
)

// Kind classifies a message so transient entries can be removed by predicate.
type Kind string

const (
	KindChat       Kind = "chat"       // conversation turn
	KindTyping     Kind = "typing"     // typing indicator
	KindStatus     Kind = "status"     // session initialization progress
	KindError      Kind = "error"      // user-visible failure
	KindDiagnostic Kind = "diagnostic" // detailed troubleshooting text
	KindNotice     Kind = "notice"     // informational notice, e.g. voice unavailable
)

// Message is one entry in the chat log.
type Message struct {
	ID              string `json:"id"`
	Sender          Sender `json:"sender"`
	Kind            Kind   `json:"kind"`
	Text            string `json:"text"`
	Timestamp       string `json:"timestamp"`
	IsTyping        bool   `json:"is_typing,omitempty"`
	ThinkingProcess string `json:"thinking_process,omitempty"`
	RawHTML         bool   `json:"raw_html,omitempty"`
}

// OfKind returns a predicate matching messages of kind k.
func OfKind(k Kind) func(Message) bool {
	return func(m Message) bool { return m.Kind == k }
}

// WithID returns a predicate matching the message with the given id.
func WithID(id string) func(Message) bool {
	return func(m Message) bool { return m.ID == id }
}

// timestamp renders t as the HH:MM string shown next to a message.
func timestamp(t time.Time) string {
	return t.Format("15:04")
}
