// Package chat implements the ChatTransport capability (spec.md §6) against
// two real front ends, Discord and Telegram, so the session layer above
// never depends on either concretely.
package chat

import "context"

// MessageHandle identifies a sent message for later editing. Declared as an
// alias so it is identical to internal/progress.MessageHandle — any
// ChatTransport implementation satisfies progress.Transport for free.
type MessageHandle = interface{}

// Embed is a structured, multi-field message body (Discord embeds natively;
// Telegram's implementation renders it as formatted text).
type Embed struct {
	Title       string
	Description string
	Fields      []EmbedField
	Color       int
}

// EmbedField is one row of an Embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Button is one clickable action attached to a message.
type Button struct {
	Label string
	Data  string
}

// IncomingMessage is a plain text message from a user, not yet routed to any
// workspace or session — that mapping belongs to internal/pool.
type IncomingMessage struct {
	Channel string
	UserID  string
	Text    string
}

// ButtonClick is a user's click on a Button attached to a previously sent
// message.
type ButtonClick struct {
	Channel string
	UserID  string
	Data    string
	Message MessageHandle
}

// ChatTransport is the capability SessionBridge and ProgressSink consume;
// any system satisfying it composes (spec.md §6).
type ChatTransport interface {
	SendMessage(ctx context.Context, channel string, content string) (MessageHandle, error)
	EditMessage(ctx context.Context, handle MessageHandle, content string) error
	SendRich(ctx context.Context, channel string, embed Embed, buttons []Button) (MessageHandle, error)
	OnIncomingMessage(handler func(IncomingMessage))
	OnButtonClick(handler func(ButtonClick))
	Start(ctx context.Context) error
	Stop() error
}
