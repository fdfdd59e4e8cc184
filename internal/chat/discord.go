package chat

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// DiscordTransport is a ChatTransport backed by a discordgo session. Unlike
// the teacher's bot.go, it owns no session/channel mapping — that belongs to
// internal/pool — only message I/O and event dispatch.
type DiscordTransport struct {
	session *discordgo.Session
	guildID string

	mu         sync.RWMutex
	onIncoming func(IncomingMessage)
	onButton   func(ButtonClick)
}

// NewDiscordTransport authenticates a bot session but does not open the
// gateway connection; call Start to connect.
func NewDiscordTransport(token, guildID string) (*DiscordTransport, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("chat: create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	t := &DiscordTransport{session: session, guildID: guildID}
	session.AddHandler(t.handleMessageCreate)
	session.AddHandler(t.handleInteractionCreate)
	return t, nil
}

func (t *DiscordTransport) Start(ctx context.Context) error {
	if err := t.session.Open(); err != nil {
		return fmt.Errorf("chat: open discord gateway: %w", err)
	}
	go func() {
		<-ctx.Done()
		t.session.Close()
	}()
	return nil
}

func (t *DiscordTransport) Stop() error {
	return t.session.Close()
}

func (t *DiscordTransport) SendMessage(_ context.Context, channel, content string) (MessageHandle, error) {
	msg, err := t.session.ChannelMessageSend(channel, content)
	if err != nil {
		return nil, fmt.Errorf("chat: discord send: %w", err)
	}
	return discordMessageRef{channel: channel, id: msg.ID}, nil
}

func (t *DiscordTransport) EditMessage(_ context.Context, handle MessageHandle, content string) error {
	ref, ok := handle.(discordMessageRef)
	if !ok {
		return fmt.Errorf("chat: discord edit: handle %v is not a discord message reference", handle)
	}
	_, err := t.session.ChannelMessageEdit(ref.channel, ref.id, content)
	if err != nil {
		return fmt.Errorf("chat: discord edit: %w", err)
	}
	return nil
}

func (t *DiscordTransport) SendRich(_ context.Context, channel string, embed Embed, buttons []Button) (MessageHandle, error) {
	fields := make([]*discordgo.MessageEmbedField, 0, len(embed.Fields))
	for _, f := range embed.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}

	send := &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title:       embed.Title,
			Description: embed.Description,
			Color:       embed.Color,
			Fields:      fields,
		},
	}

	if len(buttons) > 0 {
		row := discordgo.ActionsRow{}
		for _, b := range buttons {
			row.Components = append(row.Components, discordgo.Button{
				Label:    b.Label,
				CustomID: b.Data,
				Style:    discordgo.PrimaryButton,
			})
		}
		send.Components = []discordgo.MessageComponent{row}
	}

	msg, err := t.session.ChannelMessageSendComplex(channel, send)
	if err != nil {
		return nil, fmt.Errorf("chat: discord send rich: %w", err)
	}
	return discordMessageRef{channel: channel, id: msg.ID}, nil
}

func (t *DiscordTransport) OnIncomingMessage(handler func(IncomingMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onIncoming = handler
}

func (t *DiscordTransport) OnButtonClick(handler func(ButtonClick)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onButton = handler
}

func (t *DiscordTransport) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}
	if t.guildID != "" && m.GuildID != t.guildID {
		return
	}

	t.mu.RLock()
	handler := t.onIncoming
	t.mu.RUnlock()
	if handler == nil {
		return
	}
	handler(IncomingMessage{Channel: m.ChannelID, UserID: m.Author.ID, Text: m.Content})
}

func (t *DiscordTransport) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})

	t.mu.RLock()
	handler := t.onButton
	t.mu.RUnlock()
	if handler == nil {
		return
	}
	handler(ButtonClick{
		Channel: i.ChannelID,
		UserID:  i.Member.User.ID,
		Data:    i.MessageComponentData().CustomID,
		Message: discordMessageRef{channel: i.ChannelID, id: i.Message.ID},
	})
}

// discordMessageRef is the MessageHandle DiscordTransport hands back:
// discordgo's edit call needs the channel ID alongside the message ID, so
// the bare snowflake alone is not enough to round-trip through EditMessage.
type discordMessageRef struct {
	channel string
	id      string
}
