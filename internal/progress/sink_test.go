package progress

import (
	"context"
	"strings"
	"testing"
	"time"
)

type sentMessage struct {
	channel string
	content string
}

type fakeTransport struct {
	sent    []sentMessage
	edits   []string
	nextID  int
	failSnd bool
	failEd  bool
}

func (f *fakeTransport) SendMessage(_ context.Context, channel, content string) (MessageHandle, error) {
	if f.failSnd {
		return nil, errSend
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{channel: channel, content: content})
	return f.nextID, nil
}

func (f *fakeTransport) EditMessage(_ context.Context, handle MessageHandle, content string) error {
	if f.failEd {
		return errEdit
	}
	f.edits = append(f.edits, content)
	return nil
}

var (
	errSend = &sinkTestError{"send failed"}
	errEdit = &sinkTestError{"edit failed"}
)

type sinkTestError struct{ msg string }

func (e *sinkTestError) Error() string { return e.msg }

func TestAppendSendsFirstMessageImmediately(t *testing.T) {
	tr := &fakeTransport{}
	s := New(tr, "chan-1", Config{})

	if err := s.Append(context.Background(), "hello"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if len(tr.sent) != 1 || tr.sent[0].content != "hello" {
		t.Fatalf("sent = %+v, want one message with content hello", tr.sent)
	}
}

func TestAppendThrottlesSubsequentEdits(t *testing.T) {
	tr := &fakeTransport{}
	s := New(tr, "chan-1", Config{ThrottleInterval: time.Hour})

	ctx := context.Background()
	if err := s.Append(ctx, "hello"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, "hello world"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if len(tr.edits) != 0 {
		t.Fatalf("edits = %v, want none while throttled", tr.edits)
	}

	if err := s.ForceEmit(ctx); err != nil {
		t.Fatalf("ForceEmit: %v", err)
	}
	if len(tr.edits) != 1 || tr.edits[0] != "hello world" {
		t.Fatalf("edits after ForceEmit = %v, want [hello world]", tr.edits)
	}
}

func TestAppendEditsInPlaceUnderCap(t *testing.T) {
	tr := &fakeTransport{}
	s := New(tr, "chan-1", Config{ThrottleInterval: time.Millisecond})

	ctx := context.Background()
	s.Append(ctx, "first")
	time.Sleep(2 * time.Millisecond)
	s.Append(ctx, "first and second")

	if len(tr.sent) != 1 {
		t.Fatalf("sent = %v, want exactly one message (edited in place)", tr.sent)
	}
	if len(tr.edits) != 1 || tr.edits[0] != "first and second" {
		t.Fatalf("edits = %v, want [first and second]", tr.edits)
	}
}

func TestOverflowStartsNewMessage(t *testing.T) {
	tr := &fakeTransport{}
	s := New(tr, "chan-1", Config{ThrottleInterval: time.Millisecond, MaxMessageLen: 10})

	ctx := context.Background()
	if err := s.Append(ctx, strings.Repeat("a", 5)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := s.Append(ctx, strings.Repeat("a", 25)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if len(tr.sent) != 3 {
		t.Fatalf("sent = %d messages, want 3 (initial + two overflow messages of at most 10)", len(tr.sent))
	}
	if len(tr.edits) != 1 {
		t.Fatalf("edits = %d, want 1 (final edit of the first message before overflow)", len(tr.edits))
	}
	if tr.edits[0] != strings.Repeat("a", 10) {
		t.Fatalf("final edit of first message = %q, want 10 a's", tr.edits[0])
	}
	if tr.sent[1].content != strings.Repeat("a", 10) {
		t.Fatalf("second message content = %q, want 10 a's", tr.sent[1].content)
	}
}

func TestForceEmitWrapsCodeBlock(t *testing.T) {
	tr := &fakeTransport{}
	s := New(tr, "chan-1", Config{WrapCodeBlock: true, Language: "go"})

	if err := s.Append(context.Background(), "x := 1"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if len(tr.sent) != 1 {
		t.Fatalf("sent = %v, want one message", tr.sent)
	}
	want := "```go\nx := 1\n```"
	if tr.sent[0].content != want {
		t.Fatalf("content = %q, want %q", tr.sent[0].content, want)
	}
}

func TestForceEmitNoopOnEmptyBuffer(t *testing.T) {
	tr := &fakeTransport{}
	s := New(tr, "chan-1", Config{})

	if err := s.ForceEmit(context.Background()); err != nil {
		t.Fatalf("ForceEmit on empty sink: %v", err)
	}
	if len(tr.sent) != 0 || len(tr.edits) != 0 {
		t.Fatalf("expected no transport calls, got sent=%v edits=%v", tr.sent, tr.edits)
	}
}

func TestResetClearsActiveMessage(t *testing.T) {
	tr := &fakeTransport{}
	s := New(tr, "chan-1", Config{})

	ctx := context.Background()
	s.Append(ctx, "first prompt response")
	s.Reset()
	s.Append(ctx, "second prompt response")

	if len(tr.sent) != 2 {
		t.Fatalf("sent = %d messages, want 2 (Reset should start a fresh active message)", len(tr.sent))
	}
	if len(tr.edits) != 0 {
		t.Fatalf("edits = %v, want none (each prompt got its own message)", tr.edits)
	}
}
