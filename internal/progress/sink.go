// Package progress turns a stream of ResponseMonitor progress callbacks into
// a throttled, length-bounded sequence of chat messages: edits in place while
// a message has room, splits into a new message on overflow.
package progress

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MessageHandle identifies a previously sent message for later editing. Its
// concrete shape is owned by the Transport implementation (e.g. a reference
// holding the channel or chat ID plus the message ID); ProgressSink only threads it
// through. Declared as an alias (not a defined type) so any ChatTransport
// implementation's identical bare `any` signature satisfies Transport
// without an adapter.
type MessageHandle = interface{}

// Transport is the subset of ChatTransport (spec.md §6) ProgressSink needs:
// sending and editing a message in a channel. Scoped narrowly here rather
// than importing internal/chat's full interface, per the "accept interfaces,
// define them where used" convention already established for CdpClient.
type Transport interface {
	SendMessage(ctx context.Context, channel string, content string) (MessageHandle, error)
	EditMessage(ctx context.Context, handle MessageHandle, content string) error
}

// Config tunes ProgressSink's throttling and message-splitting behavior.
type Config struct {
	ThrottleInterval time.Duration
	MaxMessageLen    int
	WrapCodeBlock    bool
	Language         string
}

func (c Config) withDefaults() Config {
	if c.ThrottleInterval <= 0 {
		c.ThrottleInterval = 3 * time.Second
	}
	if c.MaxMessageLen <= 0 {
		c.MaxMessageLen = 4000
	}
	return c
}

// Sink is a per-prompt outbound stream bound to one chat channel. Not safe
// for use across multiple concurrent prompts on the same channel; the
// gravitybridge daemon keeps one Sink per channel and calls Reset when a
// prompt completes or times out.
type Sink struct {
	mu        sync.Mutex
	transport Transport
	channel   string
	cfg       Config

	pending     string
	activeStart int
	active      MessageHandle
	hasActive   bool
	lastEmit    time.Time
}

// New builds a Sink that streams progress for one prompt into channel.
func New(transport Transport, channel string, cfg Config) *Sink {
	return &Sink{
		transport: transport,
		channel:   channel,
		cfg:       cfg.withDefaults(),
	}
}

// Append buffers the latest cumulative response text. If the throttle
// interval has elapsed since the last emitted edit, it flushes immediately;
// otherwise the text is held until the next Append clears the throttle or
// ForceEmit is called.
func (s *Sink) Append(ctx context.Context, text string) error {
	s.mu.Lock()
	s.pending = text
	now := time.Now()
	throttled := !s.lastEmit.IsZero() && now.Sub(s.lastEmit) < s.cfg.ThrottleInterval
	s.mu.Unlock()

	if throttled {
		return nil
	}
	return s.flush(ctx)
}

// ForceEmit flushes the buffered text unconditionally, bypassing the
// throttle. The daemon's OnComplete callback calls this so the final chunk
// of a response is never left sitting in the buffer.
func (s *Sink) ForceEmit(ctx context.Context) error {
	return s.flush(ctx)
}

func (s *Sink) flush(ctx context.Context) error {
	s.mu.Lock()
	text := s.pending
	s.mu.Unlock()

	if text == "" || s.activeStart >= len(text) {
		return nil
	}

	for {
		s.mu.Lock()
		segment := text[s.activeStart:]
		overflow := len(segment) > s.cfg.MaxMessageLen
		var chunk string
		if overflow {
			chunk = segment[:s.cfg.MaxMessageLen]
		} else {
			chunk = segment
		}
		content := s.wrap(chunk)
		hasActive := s.hasActive
		active := s.active
		channel := s.channel
		s.mu.Unlock()

		if overflow {
			// This chunk fills the active message to its cap; the active
			// message's content is now final and a fresh message carries
			// the remainder.
			if hasActive {
				if err := s.transport.EditMessage(ctx, active, content); err != nil {
					return fmt.Errorf("progress: edit before overflow: %w", err)
				}
			} else {
				handle, err := s.transport.SendMessage(ctx, channel, content)
				if err != nil {
					return fmt.Errorf("progress: send overflow message: %w", err)
				}
				_ = handle
			}
			s.mu.Lock()
			s.activeStart += len(chunk)
			s.hasActive = false
			s.active = nil
			s.mu.Unlock()
			continue
		}

		if hasActive {
			if err := s.transport.EditMessage(ctx, active, content); err != nil {
				return fmt.Errorf("progress: edit active message: %w", err)
			}
		} else {
			handle, err := s.transport.SendMessage(ctx, channel, content)
			if err != nil {
				return fmt.Errorf("progress: send initial message: %w", err)
			}
			s.mu.Lock()
			s.active = handle
			s.hasActive = true
			s.mu.Unlock()
		}

		s.mu.Lock()
		s.lastEmit = time.Now()
		s.mu.Unlock()
		return nil
	}
}

func (s *Sink) wrap(content string) string {
	if !s.cfg.WrapCodeBlock {
		return content
	}
	return fmt.Sprintf("```%s\n%s\n```", s.cfg.Language, content)
}

// Reset clears the active-message pointer and buffered text, for reuse
// across prompts on the same channel.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = ""
	s.activeStart = 0
	s.active = nil
	s.hasActive = false
	s.lastEmit = time.Time{}
}
