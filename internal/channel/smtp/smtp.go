// Package smtp implements a Channel that submits envelopes to an
// authenticated SMTP relay.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/shineum/careers-relay/internal/channel"
	"github.com/shineum/careers-relay/internal/email"
)

// defaultTimeout bounds dialing and each connection when no timeout is configured.
const defaultTimeout = 30 * time.Second

// Config holds the relay connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// Secure selects implicit TLS. When false the relay must offer
	// STARTTLS.
	Secure bool

	// TLSConfig is used for both implicit TLS and STARTTLS.
	TLSConfig *tls.Config

	// LocalName is sent in EHLO. Defaults to "localhost".
	LocalName string

	Timeout time.Duration
}

// Channel submits mail over SMTP. Every Verify and Send opens a fresh
// connection; nothing is pooled.
type Channel struct {
	cfg Config
}

// New creates an SMTP Channel.
func New(cfg Config) *Channel {
	if cfg.LocalName == "" {
		cfg.LocalName = "localhost"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.TLSConfig == nil {
		cfg.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	return &Channel{cfg: cfg}
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "smtp"
}

// Verify connects, negotiates TLS, authenticates and quits.
func (c *Channel) Verify(ctx context.Context) error {
	client, cleanup, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", channel.ErrChannelUnavailable, err)
	}
	tlsActive := isTLS(client)
	cleanup()

	slog.Debug("smtp relay verified", "addr", c.addr(), "secure", c.cfg.Secure, "tls", tlsActive)
	return nil
}

// Send renders env and submits it in a single SMTP transaction.
func (c *Channel) Send(ctx context.Context, env *email.Envelope) error {
	raw, err := email.RenderMIME(env)
	if err != nil {
		return fmt.Errorf("%w: %w", channel.ErrDeliveryFailed, err)
	}

	client, cleanup, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", channel.ErrDeliveryFailed, err)
	}
	defer cleanup()

	from := email.AddressOf(env.From)
	to := email.AddressOf(env.To)
	if err := client.SendMail(from, []string{to}, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("%w: %w", channel.ErrDeliveryFailed, err)
	}

	slog.Debug("smtp message accepted", "addr", c.addr(), "to", to, "bytes", len(raw))
	return nil
}

// dial opens an authenticated session. The returned cleanup sends QUIT when
// the context is still live and always closes the connection.
func (c *Channel) dial(ctx context.Context) (*gosmtp.Client, func(), error) {
	addr := c.addr()
	dialer := &net.Dialer{Timeout: c.cfg.Timeout}

	var (
		conn net.Conn
		err  error
	)
	if c.cfg.Secure {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: c.cfg.TLSConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dial smtp %s: %w", addr, err)
	}

	if err := conn.SetDeadline(time.Now().Add(c.cfg.Timeout)); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("set deadline: %w", err)
	}

	stopClose := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	client, err := c.newClient(conn)
	if err != nil {
		stopClose()
		_ = conn.Close()
		return nil, nil, err
	}
	fail := func(err error) (*gosmtp.Client, func(), error) {
		stopClose()
		_ = client.Close()
		return nil, nil, err
	}

	if c.cfg.Username != "" {
		if err := client.Auth(c.saslClient(client)); err != nil {
			return fail(fmt.Errorf("auth: %w", err))
		}
	}

	cleanup := func() {
		stopClose()
		if ctx.Err() == nil {
			if err := client.Quit(); err != nil {
				slog.Debug("smtp quit failed", "addr", addr, "error", err)
			}
		}
		_ = client.Close()
	}

	return client, cleanup, nil
}

// newClient greets the relay. Over implicit TLS the session starts
// immediately; otherwise STARTTLS is mandatory and a relay that does not
// advertise it is rejected before any credentials are sent.
func (c *Channel) newClient(conn net.Conn) (*gosmtp.Client, error) {
	if c.cfg.Secure {
		client := gosmtp.NewClient(conn)
		if err := client.Hello(c.cfg.LocalName); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ehlo: %w", err)
		}
		return client, nil
	}

	client, err := gosmtp.NewClientStartTLS(conn, c.cfg.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("starttls: %w", err)
	}
	if err := client.Hello(c.cfg.LocalName); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ehlo: %w", err)
	}
	return client, nil
}

// saslClient prefers PLAIN and falls back to LOGIN for relays that only
// offer the latter.
func (c *Channel) saslClient(client *gosmtp.Client) sasl.Client {
	if !client.SupportsAuth(sasl.Plain) && client.SupportsAuth(sasl.Login) {
		return sasl.NewLoginClient(c.cfg.Username, c.cfg.Password)
	}
	return sasl.NewPlainClient("", c.cfg.Username, c.cfg.Password)
}

func (c *Channel) addr() string {
	return net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
}

func isTLS(client *gosmtp.Client) bool {
	_, ok := client.TLSConnectionState()
	return ok
}
