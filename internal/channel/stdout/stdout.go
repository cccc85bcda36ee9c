// Package stdout implements a Channel that prints envelopes instead of
// sending them. It is meant for local development.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/shineum/careers-relay/internal/channel"
	"github.com/shineum/careers-relay/internal/email"
)

const separator = "========================================\n"

// Channel prints envelopes to a writer in a human-readable format.
type Channel struct {
	mu     sync.Mutex
	writer io.Writer
}

// New creates a stdout Channel that writes to os.Stdout.
func New() *Channel {
	return &Channel{writer: os.Stdout}
}

// NewWithWriter creates a stdout Channel that writes to w.
func NewWithWriter(w io.Writer) *Channel {
	return &Channel{writer: w}
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "stdout"
}

// Verify always succeeds.
func (c *Channel) Verify(context.Context) error {
	return nil
}

// Send prints env. A failed write is reported as a delivery failure.
func (c *Channel) Send(ctx context.Context, env *email.Envelope) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", channel.ErrDeliveryFailed, err)
	}

	var b strings.Builder

	b.WriteString(separator)
	fmt.Fprintf(&b, "From: %s\n", env.From)
	fmt.Fprintf(&b, "To: %s\n", env.To)
	if env.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\n", env.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\n", env.Subject)
	b.WriteString("Body:\n")
	b.WriteString(env.HTMLBody + "\n")

	if len(env.Attachments) > 0 {
		attachments := make([]string, 0, len(env.Attachments))
		for _, att := range env.Attachments {
			attachments = append(attachments, fmt.Sprintf("%s (%s, %s)", att.Filename, att.ContentType, formatSize(att.Size())))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(attachments, ", "))
	}

	b.WriteString(separator)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.writer, b.String()); err != nil {
		return fmt.Errorf("%w: %w", channel.ErrDeliveryFailed, err)
	}
	return nil
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
