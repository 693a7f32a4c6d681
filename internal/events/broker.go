package events

import (
	"sync"

	"ortho-go/internal/ortho"
)

// DefaultBuffer is the number of events a subscriber may lag behind before
// further events are dropped for it.
const DefaultBuffer = 64

// Broker fans upload events out to every current subscriber. Notify never
// blocks: a subscriber whose buffer is full misses the event, and events
// published while nobody is subscribed are discarded.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan ortho.Event
	nextID int
	buffer int
	logger ortho.Logger
}

var _ ortho.Notifier = (*Broker)(nil)

// NewBroker creates a Broker whose subscribers buffer up to buffer events.
func NewBroker(buffer int, logger ortho.Logger) *Broker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = ortho.NewNopLogger()
	}
	return &Broker{
		subs:   make(map[int]chan ortho.Event),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe returns a channel of events and a function that ends the
// subscription and closes the channel. cancel is safe to call more than once.
func (b *Broker) Subscribe() (<-chan ortho.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan ortho.Event, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Notify delivers event to every subscriber that has room for it.
func (b *Broker) Notify(event ortho.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropping event for slow subscriber", "subscriber", id, "type", string(event.Type), "file", event.FileName)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
