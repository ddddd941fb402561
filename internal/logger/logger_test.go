package logger

import (
	"strings"
	"testing"
)

func TestSanitizeRedactsAndHashes(t *testing.T) {
	l := &Logger{redact: true, salt: "pepper"}

	out := l.sanitize([]any{"jwt_token", "abc.def.ghi", "owner_id", "user-1", "chat_id", "c1"})
	if out[1] != "[REDACTED]" {
		t.Fatalf("expected token to be redacted, got %v", out[1])
	}
	hashed, ok := out[3].(string)
	if !ok || !strings.HasPrefix(hashed, "hash:") || strings.Contains(hashed, "user-1") {
		t.Fatalf("expected hashed owner id, got %v", out[3])
	}
	if out[5] != "c1" {
		t.Fatalf("chat id must pass through, got %v", out[5])
	}
}

func TestSanitizeDisabledPassesThrough(t *testing.T) {
	l := &Logger{}
	out := l.sanitize([]any{"token", "secret-value"})
	if out[1] != "secret-value" {
		t.Fatalf("expected raw value when redaction is off, got %v", out[1])
	}
}
