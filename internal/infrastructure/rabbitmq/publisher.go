package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/campus-coord/internal/domain"
)

const (
	DefaultExchange = "campus.events"

	// how long to wait for a broker confirm before the outbox retries
	confirmWait = 2 * time.Second
)

var ErrNotConnected = errors.New("publisher channel not ready")

// Publisher sends outbox bodies to a durable topic exchange with publisher
// confirms and mandatory routing. One publish is in flight at a time.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	p.conn = conn
	p.ch = ch
	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	return nil
}

// ensure reconnects after the broker closed the channel. Caller holds mu.
func (p *Publisher) ensure() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.closeLocked()
	if err := p.connect(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Publish sends one message and waits for the broker's confirm. An unroutable
// message, a nack, or no confirm within confirmWait is an error so the outbox retries.
// messageID must be stable across retries.
func (p *Publisher) Publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	if routingKey == "" {
		return errors.New("missing routingKey")
	}
	if strings.TrimSpace(messageID) == "" {
		return errors.New("missing messageID")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensure(); err != nil {
		return err
	}

	err := p.ch.PublishWithContext(ctx, p.exchange, routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    messageID,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			AppId:        domain.Producer,
			Body:         body,
		},
	)
	if err != nil {
		return err
	}

	timer := time.NewTimer(confirmWait)
	defer timer.Stop()

	// a return arrives before the confirm for the same delivery
	var returned *amqp.Return
	for {
		select {
		case ret := <-p.returnCh:
			returned = &ret
		case conf, ok := <-p.confirmCh:
			if !ok {
				return ErrNotConnected
			}
			if returned != nil {
				return fmt.Errorf("NO_ROUTE: code=%d text=%s rk=%s", returned.ReplyCode, returned.ReplyText, returned.RoutingKey)
			}
			if !conf.Ack {
				return fmt.Errorf("NACK: delivery_tag=%d", conf.DeliveryTag)
			}
			return nil
		case <-timer.C:
			return errors.New("confirm timeout")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
