package ortho

// EventType names an outbound status event.
type EventType string

const (
	EventProgress EventType = "upload-progress"
	EventComplete EventType = "upload-complete"
	EventError    EventType = "upload-error"
)

// Event is a one-way status message about a logical upload.
type Event struct {
	Type     EventType `json:"type"`
	FileName string    `json:"fileName"`
	Percent  int       `json:"percent,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Notifier delivers events to whoever is listening. Delivery is
// fire-and-forget: Notify must not block, and events nobody receives are dropped.
type Notifier interface {
	Notify(event Event)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}
