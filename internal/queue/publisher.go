package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/vault-access/internal/model"
)

const (
	publishBuffer  = 256
	dialTimeout    = 2 * time.Second
	publishTimeout = 5 * time.Second
	redialBackoff  = 5 * time.Second
)

var (
	// ErrPublisherBusy is returned by Record when the outbound buffer is
	// full and the event was dropped.
	ErrPublisherBusy = errors.New("audit publisher buffer full")
	// ErrPublisherClosed is returned by Record after Close.
	ErrPublisherClosed = errors.New("audit publisher closed")
)

// Publisher publishes audit events to the audit.events queue.  Record only
// enqueues; a single goroutine owns the broker connection, redials lazily
// and publishes in order.  A slow or unreachable broker therefore never
// holds up the request that produced the event: once the buffer is full
// new events are dropped and reported.
type Publisher struct {
	url  string
	log  *zap.Logger
	send func(ctx context.Context, msg amqp.Publishing) error

	events    chan amqp.Publishing
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// owned by run
	conn     *amqp.Connection
	ch       *amqp.Channel
	nextDial time.Time
}

// NewPublisher returns a running publisher for the broker at url.  No
// connection is made until the first event arrives.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	return newPublisher(url, log, publishBuffer, nil)
}

func newPublisher(url string, log *zap.Logger, buffer int, send func(context.Context, amqp.Publishing) error) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{
		url:    url,
		log:    log,
		events: make(chan amqp.Publishing, buffer),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	p.send = send
	if p.send == nil {
		p.send = p.publishAMQP
	}
	go p.run()
	return p
}

// Record queues ev as a persistent JSON message.  It never blocks.
func (p *Publisher) Record(_ context.Context, ev model.AuditEvent) error {
	body, err := json.Marshal(NewAuditEventMessage(ev))
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	select {
	case <-p.quit:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.events <- msg:
		return nil
	default:
		p.log.Warn("rabbitmq: buffer full, audit event dropped", zap.String("event_id", ev.ID))
		return ErrPublisherBusy
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for {
		select {
		case <-p.quit:
			p.reset()
			return
		case msg := <-p.events:
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			if err := p.send(ctx, msg); err != nil {
				p.log.Warn("rabbitmq: audit event not published", zap.String("event_id", msg.MessageId), zap.Error(err))
			}
			cancel()
		}
	}
}

func (p *Publisher) publishAMQP(ctx context.Context, msg amqp.Publishing) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", AuditQueueName, false, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

// channel returns an open channel, dialling when needed.  After a failed
// dial it refuses to redial for redialBackoff so a dead broker costs one
// dial timeout per backoff period rather than one per event.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if time.Now().Before(p.nextDial) {
		return nil, errors.New("broker unavailable, waiting to redial")
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		p.nextDial = time.Now().Add(redialBackoff)
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.nextDial = time.Now().Add(redialBackoff)
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(AuditQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		p.nextDial = time.Now().Add(redialBackoff)
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close stops the publishing goroutine and releases the broker connection.
// Events still buffered are discarded.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() { close(p.quit) })
	<-p.done
	return nil
}
