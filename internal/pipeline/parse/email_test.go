package parse

import (
	"strings"
	"testing"
	"time"

	"github.com/jhillyerd/enmime"
)

const sampleEmail = "From: Alice <alice@example.com>\r\n" +
	"To: Bob <bob@example.com>\r\n" +
	"Date: Mon, 15 Jan 2024 09:30:00 +0200\r\n" +
	"Subject: hello\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"hello bob\r\n"

func TestEmailDateSent(t *testing.T) {
	env, err := enmime.ReadEnvelope(strings.NewReader(sampleEmail))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := emailDateSent(env)
	want := time.Date(2024, 1, 15, 7, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEmailDateSentMissingHeader(t *testing.T) {
	raw := strings.Replace(sampleEmail, "Date: Mon, 15 Jan 2024 09:30:00 +0200\r\n", "", 1)
	env, err := enmime.ReadEnvelope(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := emailDateSent(env); !got.Equal(time.Unix(0, 0).UTC()) {
		t.Fatalf("expected epoch fallback, got %v", got)
	}
}
