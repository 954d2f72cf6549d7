package outbox

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/campus-coord/internal/logger"
)

const (
	DefaultBatchSize   = 20
	DefaultMaxAttempts = 10
	DefaultInterval    = 500 * time.Millisecond
	// claimed rows stay invisible to other relays for this long
	DefaultLease = 30 * time.Second
)

// Message is one claimed outbox row.
type Message struct {
	ID         int64
	MessageID  string
	RoutingKey string
	Body       []byte
	Attempts   int
}

// Source is the durable side of the outbox. Claim must hide returned rows
// from concurrent claimers until lease expires.
type Source interface {
	Claim(ctx context.Context, limit int, lease time.Duration) ([]Message, error)
	MarkSent(ctx context.Context, id int64) error
	MarkRetry(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error
	MarkDead(ctx context.Context, id int64, attempts int, lastErr string) error
}

// Publisher must be idempotent per messageID from the consumer's point of view.
type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

// Observer receives relay outcomes; metrics implement it.
type Observer interface {
	OutboxPublished(routingKey string)
	OutboxFailed(routingKey string, dead bool)
}

type Option func(*Relay)

func WithBatchSize(n int) Option { return func(r *Relay) { r.batch = n } }

func WithInterval(d time.Duration) Option { return func(r *Relay) { r.interval = d } }

func WithMaxAttempts(n int) Option { return func(r *Relay) { r.maxAttempts = n } }

func WithObserver(o Observer) Option { return func(r *Relay) { r.obs = o } }

func WithClock(now func() time.Time) Option { return func(r *Relay) { r.now = now } }

func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(r *Relay) { r.backoff = f }
}

// Relay moves committed outbox rows to the broker: claim, publish, then mark
// sent, retry with backoff, or dead after maxAttempts.
type Relay struct {
	src Source
	pub Publisher
	obs Observer
	log zerolog.Logger

	batch       int
	interval    time.Duration
	maxAttempts int
	lease       time.Duration
	backoff     func(int) time.Duration
	now         func() time.Time
}

func NewRelay(src Source, pub Publisher, opts ...Option) *Relay {
	r := &Relay{
		src:         src,
		pub:         pub,
		log:         logger.Component("outbox_relay"),
		batch:       DefaultBatchSize,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		lease:       DefaultLease,
		backoff:     ComputeNextRetry,
		now:         time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run polls until ctx is done. Repeated identical errors are logged at most every 10s.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var lastErr string
	var lastAt time.Time

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("stopped")
			return
		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil {
				if err.Error() != lastErr || time.Since(lastAt) > 10*time.Second {
					r.log.Warn().Err(err).Msg("outbox batch failed")
					lastErr = err.Error()
					lastAt = time.Now()
				}
			} else {
				lastErr = ""
			}
		}
	}
}

// ProcessBatch handles one claim and returns how many messages were published.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	msgs, err := r.src.Claim(ctx, r.batch, r.lease)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range msgs {
		if err := r.pub.Publish(ctx, m.RoutingKey, m.MessageID, m.Body); err != nil {
			r.fail(ctx, m, err.Error())
			continue
		}
		if err := r.src.MarkSent(ctx, m.ID); err != nil {
			// the lease expires and the row is published again; consumers dedupe on message_id
			r.log.Warn().Err(err).Int64("outbox_id", m.ID).Msg("mark sent failed")
			continue
		}
		sent++
		if r.obs != nil {
			r.obs.OutboxPublished(m.RoutingKey)
		}
		r.log.Debug().
			Int64("outbox_id", m.ID).
			Str("message_id", m.MessageID).
			Str("routing_key", m.RoutingKey).
			Msg("published")
	}
	return sent, nil
}

func (r *Relay) fail(ctx context.Context, m Message, errMsg string) {
	next := m.Attempts + 1
	if next >= r.maxAttempts {
		if err := r.src.MarkDead(ctx, m.ID, next, errMsg); err != nil {
			r.log.Warn().Err(err).Int64("outbox_id", m.ID).Msg("mark dead failed")
		}
		if r.obs != nil {
			r.obs.OutboxFailed(m.RoutingKey, true)
		}
		r.log.Error().
			Int64("outbox_id", m.ID).
			Str("message_id", m.MessageID).
			Str("routing_key", m.RoutingKey).
			Int("attempt", next).
			Str("last_error", errMsg).
			Msg("outbox moved to DEAD")
		return
	}

	delay := r.backoff(next)
	if err := r.src.MarkRetry(ctx, m.ID, next, r.now().Add(delay), errMsg); err != nil {
		r.log.Warn().Err(err).Int64("outbox_id", m.ID).Msg("mark retry failed")
	}
	if r.obs != nil {
		r.obs.OutboxFailed(m.RoutingKey, false)
	}
	r.log.Warn().
		Int64("outbox_id", m.ID).
		Str("message_id", m.MessageID).
		Str("routing_key", m.RoutingKey).
		Int("attempt", next).
		Dur("retry_in", delay).
		Msg("outbox publish failed; scheduled retry")
}

// ComputeNextRetry is 2^attempt seconds, clamped to [5s, 30m], with +/-10% jitter.
func ComputeNextRetry(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	sec := math.Pow(2, float64(attempt))
	if sec < 5 {
		sec = 5
	}
	if sec > 1800 {
		sec = 1800
	}
	d := time.Duration(sec) * time.Second
	j := time.Duration(rand.Int63n(int64(d/5))) - d/10
	return d + j
}
