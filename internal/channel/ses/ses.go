// Package ses implements a Channel that delivers envelopes via AWS SES v2.
package ses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/shineum/careers-relay/internal/channel"
	"github.com/shineum/careers-relay/internal/email"
)

// errSendingPaused is reported by Verify when the account cannot send.
var errSendingPaused = errors.New("SES sending is disabled for this account")

// Config holds the configuration for creating an SES Channel.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// API is the subset of the SES v2 client used by the channel.
// Tests substitute a fake.
type API interface {
	GetAccount(ctx context.Context, params *sesv2.GetAccountInput, optFns ...func(*sesv2.Options)) (*sesv2.GetAccountOutput, error)
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Channel sends raw MIME messages through SES.
type Channel struct {
	client API
}

// New creates an SES Channel. Static credentials are used when both keys are
// set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config) (*Channel, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Channel{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// NewWithClient creates a Channel around an existing client.
func NewWithClient(client API) *Channel {
	return &Channel{client: client}
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "ses"
}

// Verify reads the account details, which fails on bad credentials or an
// unreachable endpoint, and requires sending to be enabled.
func (c *Channel) Verify(ctx context.Context) error {
	out, err := c.client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		return fmt.Errorf("%w: %w", channel.ErrChannelUnavailable, err)
	}
	if !out.SendingEnabled {
		return fmt.Errorf("%w: %w", channel.ErrChannelUnavailable, errSendingPaused)
	}
	slog.Debug("ses account verified", "production_access", out.ProductionAccessEnabled)
	return nil
}

// Send submits env as a raw message in a single API call.
func (c *Channel) Send(ctx context.Context, env *email.Envelope) error {
	raw, err := email.RenderMIME(env)
	if err != nil {
		return fmt.Errorf("%w: %w", channel.ErrDeliveryFailed, err)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(email.AddressOf(env.From)),
		Destination: &types.Destination{
			ToAddresses: []string{email.AddressOf(env.To)},
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	}
	if env.ReplyTo != "" {
		input.ReplyToAddresses = []string{email.AddressOf(env.ReplyTo)}
	}

	out, err := c.client.SendEmail(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%w: ses %s: %w", channel.ErrDeliveryFailed, apiErr.ErrorCode(), err)
		}
		return fmt.Errorf("%w: %w", channel.ErrDeliveryFailed, err)
	}

	slog.Debug("ses message accepted", "message_id", aws.ToString(out.MessageId))
	return nil
}
