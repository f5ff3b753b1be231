package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/orders"
)

const (
	publishTimeout = 10 * time.Second
	queueSize      = 256
)

var (
	ErrQueueFull = errors.New("notify: publish queue full")
	ErrClosed    = errors.New("notify: publisher closed")
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes applied order status changes keyed by reference,
// so every change for one order lands on the same partition.
//
// StatusChanged only enqueues; a single goroutine owns the writer, so a slow
// or unreachable broker never holds up the request that applied the change.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaPublisher(w, logger, queueSize)
}

func newKafkaPublisher(w messageWriter, logger *slog.Logger, size int) *KafkaPublisher {
	p := &KafkaPublisher{
		writer: w,
		logger: logger,
		queue:  make(chan kafka.Message, size),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) StatusChanged(_ context.Context, ch orders.StatusChange) error {
	value, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(ch.Reference),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("order.status_changed")},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		p.publish(msg)
	}
}

func (p *KafkaPublisher) publish(msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WarnContext(ctx, "status change publish failed",
			slog.String("reference", string(msg.Key)),
			slog.Any("err", err),
		)
		return
	}
	p.logger.DebugContext(ctx, "status change published", slog.String("reference", string(msg.Key)))
}

// Close stops accepting changes, drains what is already queued, then closes
// the writer. Safe to call more than once.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}

// Nop discards status changes. Used when no broker is configured.
type Nop struct{}

func (Nop) StatusChanged(context.Context, orders.StatusChange) error { return nil }
func (Nop) Close() error                                             { return nil }

// Publisher is what cmd/web holds: a notifier it must close on shutdown.
type Publisher interface {
	orders.Notifier
	Close() error
}

func FromBrokers(brokers []string, topic string, logger *slog.Logger) Publisher {
	if len(brokers) == 0 {
		return Nop{}
	}
	return NewKafkaPublisher(brokers, topic, logger)
}
