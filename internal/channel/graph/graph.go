// Package graph implements a Channel that sends envelopes through the
// Microsoft Graph sendMail API with OAuth2 client credentials.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shineum/careers-relay/internal/channel"
	"github.com/shineum/careers-relay/internal/email"
)

// Config holds the configuration for creating a Graph Channel.
// Sender is the mailbox the message is sent as.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Sender       string
}

// Channel sends mail as Sender via Graph.
type Channel struct {
	graphURL   string
	httpClient *http.Client
	tokens     *tokenSource
}

// New creates a Graph Channel.
func New(cfg Config) *Channel {
	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(cfg.TenantID))
	graphURL := fmt.Sprintf("https://graph.microsoft.com/v1.0/users/%s/sendMail", url.PathEscape(email.AddressOf(cfg.Sender)))
	return newWithOverrides(cfg, graphURL, tokenURL, &http.Client{Timeout: 30 * time.Second})
}

// newWithOverrides creates a Channel with custom endpoints, used for testing.
func newWithOverrides(cfg Config, graphURL, tokenURL string, client *http.Client) *Channel {
	return &Channel{
		graphURL:   graphURL,
		httpClient: client,
		tokens:     &tokenSource{
			creds:  clientCredentials{endpoint: tokenURL, id: cfg.ClientID, secret: cfg.ClientSecret},
			client: client,
		},
	}
}

// Name returns the channel name.
func (g *Channel) Name() string {
	return "msgraph"
}

// Verify acquires a fresh access token, which fails when the tenant is
// unreachable or the client credentials are rejected.
func (g *Channel) Verify(ctx context.Context) error {
	if _, err := g.tokens.get(ctx, true); err != nil {
		return fmt.Errorf("%w: %w", channel.ErrChannelUnavailable, err)
	}
	return nil
}

// Send posts env to sendMail once. Graph answers 202 Accepted on success.
func (g *Channel) Send(ctx context.Context, env *email.Envelope) error {
	body, err := json.Marshal(buildSendMailRequest(env))
	if err != nil {
		return fmt.Errorf("%w: failed to marshal request body: %w", channel.ErrDeliveryFailed, err)
	}

	token, err := g.tokens.get(ctx, false)
	if err != nil {
		return fmt.Errorf("%w: failed to get access token: %w", channel.ErrDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.graphURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", channel.ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", channel.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		slog.Debug("graph message accepted", "status", resp.StatusCode)
		return nil
	}

	return fmt.Errorf("%w: %w", channel.ErrDeliveryFailed, readSendError(resp))
}

// sendError is a non-success sendMail response.
type sendError struct {
	statusCode int
	code       string
	message    string
}

func (e *sendError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("Graph API error (HTTP %d, %s): %s", e.statusCode, e.code, e.message)
	}
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.statusCode, e.message)
}

func readSendError(resp *http.Response) *sendError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var graphErr graphErrorResponse
	if json.Unmarshal(body, &graphErr) == nil && graphErr.Error.Message != "" {
		return &sendError{statusCode: resp.StatusCode, code: graphErr.Error.Code, message: graphErr.Error.Message}
	}
	return &sendError{statusCode: resp.StatusCode, message: string(body)}
}
