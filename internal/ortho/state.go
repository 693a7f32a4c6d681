package ortho

import "sync"

// UploadState is the lifecycle position of one logical upload.
//
//	Receiving -> Reassembling -> Registered -> Notified
//	Receiving | Reassembling -> Failed
type UploadState int

const (
	StateUnknown UploadState = iota
	StateReceiving
	StateReassembling
	StateRegistered
	StateNotified
	StateFailed
)

func (s UploadState) String() string {
	switch s {
	case StateReceiving:
		return "receiving"
	case StateReassembling:
		return "reassembling"
	case StateRegistered:
		return "registered"
	case StateNotified:
		return "notified"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen without a new upload.
func (s UploadState) Terminal() bool {
	return s == StateNotified || s == StateFailed
}

// upload is the in-memory view of a logical upload. It is advisory: the
// staging directory stays the source of truth for which parts exist.
type upload struct {
	state     UploadState
	thumbnail []byte
}

// uploadTracker records the state of logical uploads by file name.
type uploadTracker struct {
	mu      sync.Mutex
	uploads map[string]*upload
}

// receiving marks name as receiving, starting over if its last upload ended,
// and remembers the first thumbnail delivered with any of its chunks.
func (t *uploadTracker) receiving(name string, thumbnail []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.uploads == nil {
		t.uploads = make(map[string]*upload)
	}
	u, ok := t.uploads[name]
	if !ok || u.state.Terminal() {
		u = &upload{}
		t.uploads[name] = u
	}
	u.state = StateReceiving
	if len(u.thumbnail) == 0 && len(thumbnail) > 0 {
		u.thumbnail = append([]byte(nil), thumbnail...)
	}
}

func (t *uploadTracker) set(name string, state UploadState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.uploads == nil {
		t.uploads = make(map[string]*upload)
	}
	u, ok := t.uploads[name]
	if !ok {
		u = &upload{}
		t.uploads[name] = u
	}
	u.state = state
	if state.Terminal() {
		u.thumbnail = nil
	}
}

func (t *uploadTracker) get(name string) UploadState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if u, ok := t.uploads[name]; ok {
		return u.state
	}
	return StateUnknown
}

func (t *uploadTracker) thumbnail(name string) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	if u, ok := t.uploads[name]; ok {
		return u.thumbnail
	}
	return nil
}

// reset forgets every upload; used when the staging area is cleared.
func (t *uploadTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uploads = nil
}
