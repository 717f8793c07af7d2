package events

import "sync"

// Handler receives published events.
type Handler func(Event)

// Publisher is the narrow capability components receive at construction.
type Publisher interface {
	Publish(Event)
}

// Discard drops every event. Components fall back to it when no publisher is
// configured.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

type subscription struct {
	id      int
	topic   Topic
	all     bool
	handler Handler
}

// Bus is a small synchronous publish/subscribe hub. Handlers run on the
// publishing goroutine, in subscription order, after the bus lock has been
// released so they may publish or subscribe themselves.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler for a single topic and returns a function that
// removes the subscription.
func (b *Bus) Subscribe(topic Topic, handler Handler) (cancel func()) {
	return b.add(subscription{topic: topic, handler: handler})
}

// SubscribeAll registers handler for every topic.
func (b *Bus) SubscribeAll(handler Handler) (cancel func()) {
	return b.add(subscription{all: true, handler: handler})
}

func (b *Bus) add(sub subscription) func() {
	if b == nil || sub.handler == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub.id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every matching subscriber.
func (b *Bus) Publish(ev Event) {
	if b == nil || ev == nil {
		return
	}
	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.all || sub.topic == ev.Topic() {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, handler := range matched {
		handler(ev)
	}
}

// Recorder collects published events; useful in tests and for replaying a
// single operation's notifications.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Topics returns the topics of the recorded events in order.
func (r *Recorder) Topics() []Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Topic, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Topic()
	}
	return out
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
