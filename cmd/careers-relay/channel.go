package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shineum/careers-relay/internal/channel"
	"github.com/shineum/careers-relay/internal/channel/graph"
	"github.com/shineum/careers-relay/internal/channel/postmark"
	"github.com/shineum/careers-relay/internal/channel/ses"
	"github.com/shineum/careers-relay/internal/channel/smtp"
	"github.com/shineum/careers-relay/internal/channel/stdout"
	"github.com/shineum/careers-relay/internal/config"
	relaytls "github.com/shineum/careers-relay/internal/tls"
)

// selectChannel builds the mail channel named by MAIL_PROVIDER.
func selectChannel(ctx context.Context, cfg *config.Config) (channel.Channel, error) {
	switch cfg.Mail.Provider {
	case config.ProviderSMTP:
		tlsConfig, err := relaytls.ClientConfig(cfg.Mail.Host, cfg.Mail.TLSCAFile, cfg.Mail.TLSInsecureSkipVerify)
		if err != nil {
			return nil, err
		}
		if cfg.Mail.TLSInsecureSkipVerify {
			slog.Warn("TLS certificate verification disabled for mail relay")
		}
		slog.Info("using SMTP channel",
			"host", cfg.Mail.Host,
			"port", cfg.Mail.Port,
			"secure", cfg.Secure(),
		)
		return smtp.New(smtp.Config{
			Host:      cfg.Mail.Host,
			Port:      cfg.Mail.Port,
			Username:  cfg.Mail.User,
			Password:  cfg.Mail.Password,
			Secure:    cfg.Secure(),
			TLSConfig: tlsConfig,
			Timeout:   cfg.Mail.Timeout,
		}), nil

	case config.ProviderSES:
		slog.Info("using AWS SES channel", "region", cfg.SES.Region)
		ch, err := ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return ch, nil

	case config.ProviderGraph:
		slog.Info("using Microsoft Graph channel", "sender", cfg.Mail.From)
		return graph.New(graph.Config{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Mail.From,
		}), nil

	case config.ProviderPostmark:
		slog.Info("using Postmark channel", "stream", cfg.Postmark.MessageStream)
		return postmark.New(postmark.Config{
			ServerToken:   cfg.Postmark.ServerToken,
			AccountToken:  cfg.Postmark.AccountToken,
			MessageStream: cfg.Postmark.MessageStream,
		}), nil

	case config.ProviderStdout:
		slog.Info("using stdout channel")
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Mail.Provider)
	}
}
