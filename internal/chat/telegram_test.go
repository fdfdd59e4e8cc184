package chat

import "testing"

func TestParseChatID(t *testing.T) {
	got, err := parseChatID("12345")
	if err != nil {
		t.Fatalf("parseChatID: %v", err)
	}
	if got != 12345 {
		t.Errorf("parseChatID = %d, want 12345", got)
	}

	if _, err := parseChatID("not-a-number"); err == nil {
		t.Error("parseChatID(\"not-a-number\") = nil error, want error")
	}
}

func TestTelegramTransportAllowed(t *testing.T) {
	tr := &TelegramTransport{allowedUserIDs: map[int64]bool{}}
	if !tr.allowed(1, 2) {
		t.Error("allowed with empty allowlist = false, want true")
	}

	tr.allowedUserIDs[42] = true
	if !tr.allowed(42, 999) {
		t.Error("allowed(42, 999) = false, want true (user ID matches)")
	}
	if !tr.allowed(999, 42) {
		t.Error("allowed(999, 42) = false, want true (chat ID matches)")
	}
	if tr.allowed(1, 2) {
		t.Error("allowed(1, 2) = true, want false (neither ID in allowlist)")
	}
}
