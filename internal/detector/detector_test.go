package detector

import (
	"encoding/json"
	"testing"
)

// TestBaseDedup verifies property 8: for a stream of results K, K, K,
// null, K, the callback fires exactly twice.
func TestBaseDedup(t *testing.T) {
	var fires int
	b := newBase(0, 0, nil, func(json.RawMessage) { fires++ }, nil)

	results := []string{"K", "K", "K", "", "K"}
	for _, key := range results {
		b.applyResult(key, json.RawMessage(`{}`))
	}

	if fires != 2 {
		t.Fatalf("fires = %d, want 2", fires)
	}
}

// TestS5ApprovalPagination matches spec scenario S5: the same approval
// object is returned on polls 1-3, null on poll 4, and the same object
// again on poll 5. Expect exactly two callback invocations.
func TestS5ApprovalPagination(t *testing.T) {
	var got []Signal
	b := newBase(0, 0, nil, func(payload json.RawMessage) {
		var sig Signal
		if err := json.Unmarshal(payload, &sig); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got = append(got, sig)
	}, nil)

	sig := Signal{ButtonText: "Allow", Description: "write file.ts"}
	payload, _ := json.Marshal(sig)
	key := sig.ButtonText + "::" + sig.Description

	sequence := []struct {
		key     string
		payload json.RawMessage
	}{
		{key, payload},
		{key, payload},
		{key, payload},
		{"", nil},
		{key, payload},
	}
	for _, s := range sequence {
		b.applyResult(s.key, s.payload)
	}

	if len(got) != 2 {
		t.Fatalf("callback fired %d times, want 2", len(got))
	}
	for i, g := range got {
		if g != sig {
			t.Errorf("fire[%d] = %+v, want %+v", i, g, sig)
		}
	}
}

// TestErrorPopupCooldown verifies the 10s cooldown suppresses a second
// fire even for a distinct key when it arrives before the cooldown
// elapses.
func TestErrorPopupCooldown(t *testing.T) {
	var fires int
	b := newBase(0, errorPopupCooldown, nil, func(json.RawMessage) { fires++ }, nil)

	b.applyResult("err-a", json.RawMessage(`{}`))
	b.applyResult("err-b", json.RawMessage(`{}`)) // distinct key, still within cooldown

	if fires != 1 {
		t.Fatalf("fires = %d, want 1 (second distinct key arrived within cooldown)", fires)
	}
}

type fakeEcho struct {
	echoes map[string]bool
}

func (f *fakeEcho) IsEcho(text string) bool { return f.echoes[text] }

// TestUserMessagePriming verifies that the first non-empty detection seeds
// state without firing, per the spec's priming-pass rule.
func TestUserMessagePriming(t *testing.T) {
	var fired []string
	d := NewUserMessageDetector(nil, 0, nil, func(text string) { fired = append(fired, text) })

	d.applyText("pre-existing message")
	if len(fired) != 0 {
		t.Fatalf("priming pass fired: %v", fired)
	}

	d.applyText("a genuinely new message")
	if len(fired) != 1 || fired[0] != "a genuinely new message" {
		t.Fatalf("fired = %v, want one new message", fired)
	}
}

// TestUserMessageEchoSuppression verifies a message matching the echo
// table is never forwarded, per property 7 (tested at the detector's
// layer; SessionBridge's 60s TTL lives in the session package).
func TestUserMessageEchoSuppression(t *testing.T) {
	var fired []string
	echo := &fakeEcho{echoes: map[string]bool{"hello": true}}
	d := NewUserMessageDetector(nil, 0, echo, func(text string) { fired = append(fired, text) })

	d.applyText("priming")
	d.applyText("hello")
	if len(fired) != 0 {
		t.Fatalf("echoed message was forwarded: %v", fired)
	}

	d.applyText("not an echo")
	if len(fired) != 1 || fired[0] != "not an echo" {
		t.Fatalf("fired = %v, want one genuine message", fired)
	}
}

// TestUserMessageRingDedup verifies a hash that already fired does not
// fire again even after other messages cycle through, without relying on
// the EchoTable.
func TestUserMessageRingDedup(t *testing.T) {
	var fired []string
	d := NewUserMessageDetector(nil, 0, nil, func(text string) { fired = append(fired, text) })

	d.applyText("priming")
	d.applyText("first")
	d.applyText("second")
	d.applyText("first") // reappearance of an already-forwarded message

	if len(fired) != 2 || fired[0] != "first" || fired[1] != "second" {
		t.Fatalf("fired = %v, want [first second]", fired)
	}
}
