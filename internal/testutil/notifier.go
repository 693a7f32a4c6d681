package testutil

import (
	"sync"

	"ortho-go/internal/ortho"
)

// RecordingNotifier keeps every event it is given. Safe for concurrent use.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []ortho.Event
}

var _ ortho.Notifier = (*RecordingNotifier)(nil)

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(event ortho.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

// Events returns a copy of all recorded events in order.
func (n *RecordingNotifier) Events() []ortho.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ortho.Event(nil), n.events...)
}

// OfType returns the recorded events of type t in order.
func (n *RecordingNotifier) OfType(t ortho.EventType) []ortho.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []ortho.Event
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
