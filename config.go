package gosettings

import (
	"time"

	"github.com/swiftnav-community/gosettings/wire"
)

// Config collects the numeric constants that govern retry and timeout
// behavior. The zero Config is not meaningful; use DefaultConfig or the
// With* options passed to NewClient.
type Config struct {
	// RegisterTimeout and RegisterRetries bound the register and write
	// exchanges: a fresh attempt is sent on every retry, up to
	// RegisterRetries+1 total attempts, waiting RegisterTimeout between
	// each.
	RegisterTimeout time.Duration
	RegisterRetries int

	// WatchReadTimeout and WatchReadRetries bound the read and
	// read-by-index exchanges, including the priming read issued by
	// RegisterWatch.
	WatchReadTimeout time.Duration
	WatchReadRetries int

	// DaemonSenderID is the well-known sender id of the settings daemon.
	// Inbound protocol frames from any other sender are ignored.
	DaemonSenderID uint16
}

// DefaultConfig returns the constants carried by the reference
// implementation: 500ms timeouts, 5 retries, daemon sender id 0x42.
func DefaultConfig() Config {
	return Config{
		RegisterTimeout:  500 * time.Millisecond,
		RegisterRetries:  5,
		WatchReadTimeout: 500 * time.Millisecond,
		WatchReadRetries: 5,
		DaemonSenderID:   wire.DaemonSenderID,
	}
}

// An Option configures a Client at construction time.
type Option func(*Client)

// WithLogger installs l as the Client's diagnostic logger. A nil Logger
// discards all events.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l == nil {
			l = discardLogger{}
		}
		c.logger = l
	}
}

// WithConfig overrides the Client's retry/timeout configuration.
func WithConfig(cfg Config) Option {
	return func(c *Client) { c.cfg = cfg }
}

// WithClock overrides the Client's timer construction, for deterministic
// tests. A nil after leaves the default (time.After) in place.
func WithClock(after func(time.Duration) <-chan time.Time) Option {
	return func(c *Client) {
		if after != nil {
			c.after = after
		}
	}
}
