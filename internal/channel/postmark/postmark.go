// Package postmark implements a Channel backed by the Postmark
// transactional email API.
package postmark

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/mrz1836/postmark"

	"github.com/shineum/careers-relay/internal/channel"
	"github.com/shineum/careers-relay/internal/email"
)

// API is the subset of the Postmark client used by Channel.
// *postmark.Client satisfies it.
type API interface {
	GetCurrentServer(ctx context.Context) (postmark.Server, error)
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// Config holds the Postmark credentials.
type Config struct {
	ServerToken   string
	AccountToken  string
	MessageStream string
}

// Channel sends envelopes through Postmark.
type Channel struct {
	client API
	stream string
}

// New creates a Postmark Channel from cfg.
func New(cfg Config) *Channel {
	return &Channel{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		stream: cfg.MessageStream,
	}
}

// NewWithClient creates a Channel with a custom API implementation.
func NewWithClient(client API, stream string) *Channel {
	return &Channel{client: client, stream: stream}
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "postmark"
}

// Verify looks up the server the token belongs to, which fails when the API
// is unreachable or the server token is rejected.
func (c *Channel) Verify(ctx context.Context) error {
	server, err := c.client.GetCurrentServer(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", channel.ErrChannelUnavailable, err)
	}
	slog.Debug("postmark server verified", "server", server.Name)
	return nil
}

// Send submits env once.
func (c *Channel) Send(ctx context.Context, env *email.Envelope) error {
	msg := postmark.Email{
		From:          env.From,
		To:            env.To,
		ReplyTo:       env.ReplyTo,
		Subject:       env.Subject,
		HTMLBody:      env.HTMLBody,
		MessageStream: c.stream,
	}
	for _, att := range env.Attachments {
		msg.Attachments = append(msg.Attachments, postmark.Attachment{
			Name:        att.Filename,
			Content:     base64.StdEncoding.EncodeToString(att.Content),
			ContentType: att.ContentType,
		})
	}

	resp, err := c.client.SendEmail(ctx, msg)
	if err != nil {
		return fmt.Errorf("%w: %w", channel.ErrDeliveryFailed, err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("%w: postmark error %d: %s", channel.ErrDeliveryFailed, resp.ErrorCode, resp.Message)
	}

	slog.Debug("postmark message accepted", "message_id", resp.MessageID)
	return nil
}
