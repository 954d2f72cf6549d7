package memory

import (
	"context"
	"time"

	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/infrastructure/outbox"
)

const (
	statusPending    = "pending"
	statusProcessing = "processing"
	statusSent       = "sent"
	statusDead       = "dead"
)

type outboxRow struct {
	msg      domain.OutboxMessage
	status   string
	attempts int
	next     time.Time
	lastErr  string
}

// OutboxRecord is a read-only view of one outbox row.
type OutboxRecord struct {
	domain.OutboxMessage
	Status   string
	Attempts int
	LastErr  string
}

// Outbox exposes the store's outbox to the relay.
type Outbox struct {
	s *Store
}

func (s *Store) Outbox() *Outbox { return &Outbox{s: s} }

var _ outbox.Source = (*Outbox)(nil)

// Records returns every row in insertion order.
func (o *Outbox) Records() []OutboxRecord {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	out := make([]OutboxRecord, 0, len(o.s.outbox))
	for _, r := range o.s.outbox {
		out = append(out, OutboxRecord{OutboxMessage: r.msg, Status: r.status, Attempts: r.attempts, LastErr: r.lastErr})
	}
	return out
}

func (o *Outbox) Claim(_ context.Context, limit int, lease time.Duration) ([]outbox.Message, error) {
	s := o.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []outbox.Message
	for i, r := range s.outbox {
		if len(out) == limit {
			break
		}
		if r.status != statusPending && r.status != statusProcessing {
			continue
		}
		if r.next.After(now) {
			continue
		}
		r.status = statusProcessing
		r.next = now.Add(lease)
		out = append(out, outbox.Message{
			ID:         int64(i + 1),
			MessageID:  r.msg.MessageID,
			RoutingKey: r.msg.RoutingKey,
			Body:       r.msg.Body,
			Attempts:   r.attempts,
		})
	}
	return out, nil
}

func (o *Outbox) row(id int64) *outboxRow {
	if id < 1 || int(id) > len(o.s.outbox) {
		return nil
	}
	return o.s.outbox[id-1]
}

func (o *Outbox) MarkSent(_ context.Context, id int64) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if r := o.row(id); r != nil {
		r.status = statusSent
		r.lastErr = ""
	}
	return nil
}

func (o *Outbox) MarkRetry(_ context.Context, id int64, attempts int, next time.Time, lastErr string) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if r := o.row(id); r != nil {
		r.status = statusPending
		r.attempts = attempts
		r.next = next
		r.lastErr = lastErr
	}
	return nil
}

func (o *Outbox) MarkDead(_ context.Context, id int64, attempts int, lastErr string) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if r := o.row(id); r != nil {
		r.status = statusDead
		r.attempts = attempts
		r.lastErr = lastErr
	}
	return nil
}
