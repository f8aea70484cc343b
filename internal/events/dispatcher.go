package events

import (
	"fmt"
	"strings"
	"sync"

	"github.com/yourusername/modewatch/internal/errors"
	"github.com/yourusername/modewatch/internal/output"
)

// Subscriber receives events. Name identifies the subscriber: one subscriber
// holds at most one subscription per event kind.
type Subscriber interface {
	Name() string
	HandleEvent(Event) error
}

// HandlerFunc adapts a function to the handling half of Subscriber
type HandlerFunc func(Event) error

type funcSubscriber struct {
	name string
	fn   HandlerFunc
}

func (s funcSubscriber) Name() string { return s.name }

func (s funcSubscriber) HandleEvent(ev Event) error { return s.fn(ev) }

// NewSubscriber wraps fn as a Subscriber called name
func NewSubscriber(name string, fn HandlerFunc) Subscriber {
	return funcSubscriber{name: name, fn: fn}
}

type subscription struct {
	sub    Subscriber
	channel string // "" for all channels
}

// Dispatcher is a multicast registry keyed by event kind. Delivery is
// synchronous and in registration order.
type Dispatcher struct {
	mu         sync.RWMutex
	subs       map[Kind][]*subscription
	fold       func(string) string
	logger     output.Logger
	logDropped bool
}

// NewDispatcher creates a dispatcher. Channel filters are compared with
// strings.ToLower until SetFold installs the session's casemapping.
// Filters are kept as given and folded on every Publish, so a casemapping
// change takes effect for existing subscriptions.
func NewDispatcher(logger output.Logger) *Dispatcher {
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Dispatcher{
		subs:   make(map[Kind][]*subscription),
		fold:   strings.ToLower,
		logger: logger,
	}
}

// SetFold sets the function used to compare channel filters
func (d *Dispatcher) SetFold(fold func(string) string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fold = fold
}

// SetLogDropped controls whether SubscriberDispatchError events nobody is
// subscribed to are logged as warnings instead of silently dropped
func (d *Dispatcher) SetLogDropped(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logDropped = enabled
}

// Subscribe registers sub for kind. A non-empty channel limits delivery to
// events on that channel. Subscribing again replaces the filter and handler
// but keeps the original position; subscribing without a channel clears a
// previous filter.
func (d *Dispatcher) Subscribe(kind Kind, sub Subscriber, channel string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range d.subs[kind] {
		if s.sub.Name() == sub.Name() {
			s.sub = sub
			s.channel = channel
			return
		}
	}
	d.subs[kind] = append(d.subs[kind], &subscription{sub: sub, channel: channel})
}

// SubscribeAll registers sub for every event kind
func (d *Dispatcher) SubscribeAll(sub Subscriber, channel string) {
	for _, kind := range Kinds {
		d.Subscribe(kind, sub, channel)
	}
}

// Unsubscribe removes the subscription of sub for kind, reporting whether one existed
func (d *Dispatcher) Unsubscribe(kind Kind, sub Subscriber) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.subs[kind]
	for i, s := range subs {
		if s.sub.Name() == sub.Name() {
			d.subs[kind] = append(subs[:i:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// Count returns the number of subscriptions for kind
func (d *Dispatcher) Count(kind Kind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[kind])
}

// Publish delivers ev to every matching subscription of its kind and reports
// whether at least one subscriber was invoked. A failing subscriber does not
// stop delivery; its error is published afterwards as a
// SubscriberDispatchError.
func (d *Dispatcher) Publish(ev Event) bool {
	d.mu.RLock()
	subs := append([]*subscription(nil), d.subs[ev.Kind()]...)
	fold := d.fold
	d.mu.RUnlock()

	channel := fold(ev.ChannelName())
	invoked := false
	var failures []SubscriberDispatchError

	for _, s := range subs {
		if s.channel != "" && fold(s.channel) != channel {
			continue
		}
		invoked = true

		if err := invoke(s.sub, ev); err != nil {
			failures = append(failures, SubscriberDispatchError{
				Origin:     ev.Kind(),
				Subscriber: s.sub.Name(),
				Channel:    ev.ChannelName(),
				Err:        errors.NewDispatchError(s.sub.Name(), ev.Kind().String(), err),
			})
		}
	}

	for _, failure := range failures {
		d.publishFailure(ev, failure)
	}

	return invoked
}

// publishFailure republishes a captured subscriber error. Failures while
// delivering a SubscriberDispatchError are never republished.
func (d *Dispatcher) publishFailure(origin Event, failure SubscriberDispatchError) {
	if origin.Kind() != KindSubscriberDispatchError && d.Publish(failure) {
		return
	}

	d.mu.RLock()
	logDropped := d.logDropped
	d.mu.RUnlock()

	if logDropped {
		d.logger.Warning("Dropped dispatch error: %v", failure.Err)
	}
}

// invoke calls the subscriber, converting a panic into an error
func invoke(sub Subscriber, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sub.HandleEvent(ev)
}

// On subscribes a typed handler. The event kind is taken from T.
func On[T Event](d *Dispatcher, name, channel string, fn func(T) error) Subscriber {
	var zero T
	sub := NewSubscriber(name, func(ev Event) error {
		typed, ok := ev.(T)
		if !ok {
			return fmt.Errorf("unexpected event type %T", ev)
		}
		return fn(typed)
	})
	d.Subscribe(zero.Kind(), sub, channel)
	return sub
}
