package stdout

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shineum/careers-relay/internal/channel"
	"github.com/shineum/careers-relay/internal/email"
)

func TestSend_Envelope(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewWithWriter(&buf)

	env := &email.Envelope{
		From:     "careers@example.com",
		To:       "hr@example.com",
		ReplyTo:  "jane@x.com",
		Subject:  "New Application – Backend – Jane Doe",
		HTMLBody: "<p>New job application received.</p>",
		Attachments: []email.Attachment{
			{Filename: "cv.pdf", ContentType: "application/pdf", Content: make([]byte, 46080)},
		},
	}

	if err := c.Send(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"From: careers@example.com",
		"To: hr@example.com",
		"Reply-To: jane@x.com",
		"Subject: New Application – Backend – Jane Doe",
		"<p>New job application received.</p>",
		"Attachments: cv.pdf (application/pdf, 45.0 KB)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if !strings.HasPrefix(output, separator) || !strings.HasSuffix(output, separator) {
		t.Error("output should be wrapped in separator lines")
	}
}

func TestSend_NoReplyToNoAttachments(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewWithWriter(&buf)

	env := &email.Envelope{From: "a@example.com", To: "b@example.com", Subject: "s", HTMLBody: "b"}
	if err := c.Send(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "Reply-To:") {
		t.Error("output should not contain Reply-To when unset")
	}
	if strings.Contains(output, "Attachments:") {
		t.Error("output should not contain Attachments when there are none")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSend_WriteError(t *testing.T) {
	t.Parallel()

	c := NewWithWriter(failingWriter{})
	err := c.Send(context.Background(), &email.Envelope{})
	if !errors.Is(err, channel.ErrDeliveryFailed) {
		t.Errorf("expected ErrDeliveryFailed, got %v", err)
	}
}

func TestSend_CancelledContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewWithWriter(&buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Send(ctx, &email.Envelope{}); !errors.Is(err, channel.ErrDeliveryFailed) {
		t.Errorf("expected ErrDeliveryFailed, got %v", err)
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written for a cancelled request")
	}
}

func TestVerifyAndName(t *testing.T) {
	t.Parallel()

	c := New()
	if c.Name() != "stdout" {
		t.Errorf("Name: got %q, want %q", c.Name(), "stdout")
	}
	if err := c.Verify(context.Background()); err != nil {
		t.Errorf("Verify: unexpected error: %v", err)
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		bytes int
		want  string
	}{
		{name: "zero bytes", bytes: 0, want: "0 B"},
		{name: "small bytes", bytes: 512, want: "512 B"},
		{name: "kilobytes", bytes: 46080, want: "45.0 KB"},
		{name: "megabytes", bytes: 1258291, want: "1.2 MB"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := formatSize(tt.bytes)
			if got != tt.want {
				t.Errorf("formatSize(%d): got %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
