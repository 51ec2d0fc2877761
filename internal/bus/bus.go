// Package bus provides the in-process message bus mediating all agent
// communication: publish/subscribe by message type, request/response with
// timeout, and a bounded message history.
package bus

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/dexos/dex/pkg/models"
)

const (
	defaultHistoryLimit = 1000
	defaultQueueSize    = 64
)

var (
	// ErrTimeout is returned by RequestResponse when no correlated reply
	// arrives before the deadline.
	ErrTimeout = errors.New("bus: request timed out")
	// ErrClosed is returned for operations on a shut-down bus, including
	// pending waiters failed by Shutdown.
	ErrClosed = errors.New("bus: shut down")
)

// Handler consumes a delivered message. Handlers run on a per-subscription
// goroutine in publish order; blocking work inside a handler does not stall
// the bus, only that handler's own queue.
type Handler func(ctx context.Context, msg *models.Message)

// subscription is one registered handler with its delivery queue. done is
// closed on unsubscribe or shutdown; the queue itself is never closed, so
// publishers racing a removal cannot panic.
type subscription struct {
	key MessageKey
	fn  Handler
	// fnPtr identifies the handler function for idempotent registration.
	fnPtr uintptr
	queue chan *models.Message
	done  chan struct{}
}

// MessageKey is what handlers subscribe under: a concrete message type or
// models.Broadcast for broadcast-addressed traffic.
type MessageKey string

// Config tunes a Bus. Zero values pick sensible defaults.
type Config struct {
	HistoryLimit int
	QueueSize    int
	Logger       *slog.Logger
}

// Bus routes messages between agents. All shared structures are guarded by a
// single mutex; handlers are always invoked outside of it.
type Bus struct {
	mu      sync.Mutex
	subs    map[MessageKey][]*subscription
	pending map[string]chan *models.Message
	history []*models.Message
	closed  bool

	historyLimit int
	queueSize    int
	logger       *slog.Logger
	wg           sync.WaitGroup
}

// New creates a Bus ready for use.
func New(cfg Config) *Bus {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Bus{
		subs:         make(map[MessageKey][]*subscription),
		pending:      make(map[string]chan *models.Message),
		historyLimit: cfg.HistoryLimit,
		queueSize:    cfg.QueueSize,
		logger:       cfg.Logger,
	}
}

// Subscribe registers a handler for a message type (or models.Broadcast).
// Registering the same handler twice under the same key is a no-op, so each
// published message invokes it exactly once.
func (b *Bus) Subscribe(key MessageKey, h Handler) {
	ptr := reflect.ValueOf(h).Pointer()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, s := range b.subs[key] {
		if s.fnPtr == ptr {
			return
		}
	}
	sub := &subscription{
		key:   key,
		fn:    h,
		fnPtr: ptr,
		queue: make(chan *models.Message, b.queueSize),
		done:  make(chan struct{}),
	}
	b.subs[key] = append(b.subs[key], sub)

	b.wg.Add(1)
	go b.deliverLoop(sub)
}

// Unsubscribe removes a previously registered handler. Unknown handlers are
// ignored.
func (b *Bus) Unsubscribe(key MessageKey, h Handler) {
	ptr := reflect.ValueOf(h).Pointer()

	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[key]
	for i, s := range list {
		if s.fnPtr == ptr {
			b.subs[key] = append(list[:i], list[i+1:]...)
			close(s.done)
			return
		}
	}
}

// deliverLoop drains one subscription's queue, invoking the handler in
// publish order. Panics are logged and never abort delivery to others.
func (b *Bus) deliverLoop(sub *subscription) {
	defer b.wg.Done()
	for {
		select {
		case msg := <-sub.queue:
			b.invoke(sub, msg)
		case <-sub.done:
			// Drain what was enqueued before removal.
			for {
				select {
				case msg := <-sub.queue:
					b.invoke(sub, msg)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) invoke(sub *subscription, msg *models.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus handler panicked",
				"key", string(sub.key),
				"message_type", string(msg.Type),
				"panic", r)
		}
	}()
	sub.fn(context.Background(), msg)
}

// Publish stamps the message, records it in history, and routes it: every
// handler subscribed to its type receives it, broadcast-addressed messages
// additionally reach broadcast subscribers, and a pending request waiter
// matching its correlation ID is satisfied.
func (b *Bus) Publish(ctx context.Context, msg *models.Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}

	msg.Status = models.StatusSent
	msg.SentAt = time.Now().UTC()
	b.appendHistory(msg)

	targets := make([]*subscription, 0, 4)
	targets = append(targets, b.subs[MessageKey(msg.Type)]...)
	if msg.Recipient == models.Broadcast {
		targets = append(targets, b.subs[MessageKey(models.Broadcast)]...)
	}

	// A request carries its own ID as correlation ID; only replies (whose
	// own ID differs) may satisfy the waiter.
	var waiter chan *models.Message
	if msg.CorrelationID != "" && msg.CorrelationID != msg.ID {
		if ch, ok := b.pending[msg.CorrelationID]; ok {
			waiter = ch
			delete(b.pending, msg.CorrelationID)
		}
	}

	if len(targets) > 0 {
		msg.Status = models.StatusDelivered
		msg.DeliveredAt = time.Now().UTC()
	}
	b.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.queue <- msg:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if waiter != nil {
		waiter <- msg
		b.mu.Lock()
		msg.Status = models.StatusCompleted
		msg.CompletedAt = time.Now().UTC()
		b.mu.Unlock()
	}
	return nil
}

// RequestResponse publishes a request and blocks until the first message
// whose correlation ID equals the request's ID arrives, the timeout expires,
// or the bus shuts down. On timeout the waiter is removed, so a late reply
// is ignored.
func (b *Bus) RequestResponse(ctx context.Context, msg *models.Message, timeout time.Duration) (*models.Message, error) {
	msg.CorrelationID = msg.ID

	ch := make(chan *models.Message, 1)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.pending[msg.ID] = ch
	b.mu.Unlock()

	if err := b.Publish(ctx, msg); err != nil {
		b.removeWaiter(msg.ID)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp == nil {
			msg.Status = models.StatusFailed
			msg.Error = ErrClosed.Error()
			return nil, ErrClosed
		}
		return resp, nil
	case <-timer.C:
		b.removeWaiter(msg.ID)
		b.mu.Lock()
		msg.Status = models.StatusTimeout
		msg.Error = ErrTimeout.Error()
		b.mu.Unlock()
		return nil, ErrTimeout
	case <-ctx.Done():
		b.removeWaiter(msg.ID)
		b.mu.Lock()
		msg.Status = models.StatusCancelled
		msg.Error = ctx.Err().Error()
		b.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (b *Bus) removeWaiter(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// HistoryFilter narrows GetHistory results. Zero fields match everything.
type HistoryFilter struct {
	Sender    string
	Recipient string
	Type      models.MessageType
}

// GetHistory returns up to limit recorded messages, newest first.
func (b *Bus) GetHistory(filter HistoryFilter, limit int) []*models.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	if limit <= 0 {
		limit = len(b.history)
	}
	out := make([]*models.Message, 0, min(limit, len(b.history)))
	for i := len(b.history) - 1; i >= 0 && len(out) < limit; i-- {
		m := b.history[i]
		if filter.Sender != "" && m.Sender != filter.Sender {
			continue
		}
		if filter.Recipient != "" && m.Recipient != filter.Recipient {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		out = append(out, m)
	}
	return out
}

// appendHistory records a message, evicting the oldest past the cap.
// Caller holds b.mu.
func (b *Bus) appendHistory(msg *models.Message) {
	if len(b.history) >= b.historyLimit {
		copy(b.history, b.history[1:])
		b.history[len(b.history)-1] = msg
		return
	}
	b.history = append(b.history, msg)
}

// Shutdown clears all subscriptions and fails every outstanding waiter with
// ErrClosed. It waits for in-flight handler queues to drain.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, list := range b.subs {
		for _, s := range list {
			close(s.done)
		}
	}
	b.subs = make(map[MessageKey][]*subscription)
	for id, ch := range b.pending {
		ch <- nil
		delete(b.pending, id)
	}
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("bus shut down")
}
