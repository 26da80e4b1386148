package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"journal/internal/pubsub"
	"journal/internal/storage"
)

// ErrUpstreamLost is returned by Relay.Run when the store feed could not be
// re-established within the attempt budget. Distinct from per-notification
// issues, which are logged and survived.
var ErrUpstreamLost = errors.New("realtime: upstream notification feed lost")

// BackoffConfig shapes the relay's reconnect policy.
type BackoffConfig struct {
	// Initial is the delay before the first reconnect attempt.
	Initial time.Duration
	// Max caps the exponentially growing delay.
	Max time.Duration
	// MaxAttempts bounds consecutive failed reconnects; 0 means unbounded.
	MaxAttempts int
}

// DefaultBackoff is used when the config leaves the policy empty.
var DefaultBackoff = BackoffConfig{
	Initial:     time.Second,
	Max:         30 * time.Second,
	MaxAttempts: 10,
}

// Relay is the long-lived listener on the store's change feed. Every
// notification is forwarded, unmodified, to the hub; the relay never
// interprets payloads. One relay instance runs per process, on its own
// dedicated store connection.
type Relay struct {
	notifier storage.Notifier
	hub      *Hub
	channel  string
	backoff  BackoffConfig
	mirror   pubsub.Publisher
	logger   *slog.Logger
}

// RelayOption configures optional relay collaborators.
type RelayOption func(*Relay)

// WithMirror additionally publishes each notification to a message bus,
// best effort. Mirror failures are logged and never stop fan-out.
func WithMirror(p pubsub.Publisher) RelayOption {
	return func(r *Relay) { r.mirror = p }
}

// NewRelay creates a relay listening on the named channel.
func NewRelay(notifier storage.Notifier, hub *Hub, channel string, backoff BackoffConfig, logger *slog.Logger, opts ...RelayOption) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if backoff.Initial <= 0 {
		backoff = DefaultBackoff
	}
	r := &Relay{
		notifier: notifier,
		hub:      hub,
		channel:  channel,
		backoff:  backoff,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run subscribes to the change feed and forwards until ctx ends. A failing
// initial subscription is a fatal setup error. A feed that dies mid-run is
// re-established with capped exponential backoff; when the attempt budget
// is exhausted the relay gives up and returns ErrUpstreamLost.
func (r *Relay) Run(ctx context.Context) error {
	feed, err := r.notifier.Watch(ctx, r.channel)
	if err != nil {
		return fmt.Errorf("realtime: subscribe %q: %w", r.channel, err)
	}
	r.logger.Info("relay subscribed", "channel", r.channel)

	for {
		if done := r.forward(ctx, feed); done {
			return ctx.Err()
		}

		feed, err = r.reconnect(ctx)
		if err != nil {
			return err
		}
	}
}

// forward pumps notifications until the feed closes (false) or ctx ends
// (true).
func (r *Relay) forward(ctx context.Context, feed <-chan storage.Notification) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case n, ok := <-feed:
			if !ok {
				return false
			}
			r.hub.Broadcast(n)
			if r.mirror != nil {
				if err := r.mirror.Publish(ctx, n.Channel, []byte(n.Payload)); err != nil {
					r.logger.Warn("mirror publish failed", "channel", n.Channel, "error", err)
				}
			}
		}
	}
}

// reconnect retries the upstream watch with exponential backoff. The
// attempt counter is per outage: it resets once a new feed is obtained.
func (r *Relay) reconnect(ctx context.Context) (<-chan storage.Notification, error) {
	delay := r.backoff.Initial
	for attempt := 1; ; attempt++ {
		if r.backoff.MaxAttempts > 0 && attempt > r.backoff.MaxAttempts {
			return nil, ErrUpstreamLost
		}
		r.logger.Warn("notification feed lost, reconnecting",
			"channel", r.channel,
			"attempt", attempt,
			"delay", delay,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		feed, err := r.notifier.Watch(ctx, r.channel)
		if err == nil {
			r.logger.Info("relay resubscribed", "channel", r.channel, "attempts", attempt)
			return feed, nil
		}
		r.logger.Error("resubscribe failed", "channel", r.channel, "error", err)

		delay *= 2
		if delay > r.backoff.Max {
			delay = r.backoff.Max
		}
	}
}
