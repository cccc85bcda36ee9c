// Package channel defines the outbound mail channel used to deliver
// application envelopes.
package channel

import (
	"context"
	"errors"

	"github.com/shineum/careers-relay/internal/email"
)

var (
	// ErrChannelUnavailable is returned by Verify when the relay cannot be
	// reached, the TLS handshake fails, or authentication is rejected.
	ErrChannelUnavailable = errors.New("mail channel unavailable")

	// ErrDeliveryFailed is returned by Send when the relay did not accept the message.
	ErrDeliveryFailed = errors.New("mail delivery failed")
)

// Channel is the interface outbound mail backends must implement.
// Implementations open whatever connection they need per call and hold no
// state between requests beyond immutable configuration.
type Channel interface {
	// Verify checks that the channel is reachable and the credentials are
	// accepted, without sending a message.
	Verify(ctx context.Context) error

	// Send delivers env with a single attempt. It never retries.
	Send(ctx context.Context, env *email.Envelope) error

	// Name returns the human-readable name of this channel.
	Name() string
}
