package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Handler reacts to one emitted event. A returned error is logged and
// counted; it never stops other handlers.
type Handler func(payload any) error

// AnyHandler receives every emitted event together with its topic.
type AnyHandler func(topic string, payload any) error

// Bus is a synchronous named-event dispatcher. Emit invokes every handler
// subscribed to the topic, in subscription order, on the caller's
// goroutine. A handler that fails or panics is isolated from the others.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]*subscription
	any      []*anySubscription
	logger   *slog.Logger

	failures  atomic.Uint64
	onFailure func(topic string, err error)
}

type subscription struct {
	h Handler
}

type anySubscription struct {
	h AnyHandler
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used for handler failures.
func WithLogger(l *slog.Logger) BusOption {
	return func(b *Bus) { b.logger = l }
}

// WithFailureHook installs a callback invoked after each handler failure.
func WithFailureHook(f func(topic string, err error)) BusOption {
	return func(b *Bus) { b.onFailure = f }
}

// NewBus returns an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		handlers: make(map[string][]*subscription),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// On subscribes h to topic. The returned function removes the subscription.
func (b *Bus) On(topic string, h Handler) (cancel func()) {
	s := &subscription{h: h}
	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], s)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.handlers[topic]
			for i, x := range subs {
				if x == s {
					b.handlers[topic] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

// OnAny subscribes h to every topic. Any-handlers run after the topic's own
// handlers.
func (b *Bus) OnAny(h AnyHandler) (cancel func()) {
	s := &anySubscription{h: h}
	b.mu.Lock()
	b.any = append(b.any, s)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, x := range b.any {
				if x == s {
					b.any = append(b.any[:i:i], b.any[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit dispatches payload to every subscriber of topic. Handlers may emit
// further events; those are dispatched depth-first before Emit returns.
func (b *Bus) Emit(topic string, payload any) {
	b.mu.RLock()
	subs := append([]*subscription(nil), b.handlers[topic]...)
	anys := append([]*anySubscription(nil), b.any...)
	b.mu.RUnlock()

	if !IsKnown(topic) {
		b.logger.Debug("emitting unknown event topic", "topic", topic, "subscribers", len(subs))
	}

	for _, s := range subs {
		b.invoke(topic, func() error { return s.h(payload) })
	}
	for _, s := range anys {
		b.invoke(topic, func() error { return s.h(topic, payload) })
	}
}

// Failures returns the number of handler invocations that failed.
func (b *Bus) Failures() uint64 {
	return b.failures.Load()
}

func (b *Bus) invoke(topic string, call func() error) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		err = call()
	}()
	if err == nil {
		return
	}
	b.failures.Add(1)
	b.logger.Warn("event handler failed", "topic", topic, "err", err)
	if b.onFailure != nil {
		b.onFailure(topic, err)
	}
}

// Typed adapts a handler for a concrete payload type. A payload of any other
// type is reported as a handler error.
func Typed[T any](h func(T) error) Handler {
	return func(payload any) error {
		p, ok := payload.(T)
		if !ok {
			var zero T
			return fmt.Errorf("unexpected payload %T, want %T", payload, zero)
		}
		return h(p)
	}
}

// Mirror forwards every emitted event to p on its NATS subject. Publish
// failures are logged by the bus like any other handler failure.
func (b *Bus) Mirror(ctx context.Context, p Publisher) (cancel func()) {
	return b.OnAny(func(topic string, payload any) error {
		if err := p.Publish(ctx, Subject(topic), payload); err != nil {
			return fmt.Errorf("mirror %s: %w", topic, err)
		}
		return nil
	})
}
