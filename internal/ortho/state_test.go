package ortho

import "testing"

func TestUploadTracker(t *testing.T) {
	t.Run("unknown until first chunk", func(t *testing.T) {
		var tr uploadTracker
		if got := tr.get("a.mp4"); got != StateUnknown {
			t.Errorf("get() = %v, want unknown", got)
		}
	})

	t.Run("keeps the first thumbnail", func(t *testing.T) {
		var tr uploadTracker
		tr.receiving("a.mp4", nil)
		tr.receiving("a.mp4", []byte("first"))
		tr.receiving("a.mp4", []byte("second"))

		if got := string(tr.thumbnail("a.mp4")); got != "first" {
			t.Errorf("thumbnail() = %q, want first", got)
		}
		if got := tr.get("a.mp4"); got != StateReceiving {
			t.Errorf("get() = %v, want receiving", got)
		}
	})

	t.Run("terminal state starts over on the next chunk", func(t *testing.T) {
		var tr uploadTracker
		tr.receiving("a.mp4", []byte("old"))
		tr.set("a.mp4", StateFailed)
		if tr.thumbnail("a.mp4") != nil {
			t.Error("thumbnail kept after the upload ended")
		}

		tr.receiving("a.mp4", []byte("new"))
		if got := tr.get("a.mp4"); got != StateReceiving {
			t.Errorf("get() = %v, want receiving", got)
		}
		if got := string(tr.thumbnail("a.mp4")); got != "new" {
			t.Errorf("thumbnail() = %q, want new", got)
		}
	})

	t.Run("reset forgets everything", func(t *testing.T) {
		var tr uploadTracker
		tr.receiving("a.mp4", nil)
		tr.reset()
		if got := tr.get("a.mp4"); got != StateUnknown {
			t.Errorf("get() after reset = %v, want unknown", got)
		}
	})
}

func TestUploadState_String(t *testing.T) {
	tests := map[UploadState]string{
		StateUnknown:      "unknown",
		StateReceiving:    "receiving",
		StateReassembling: "reassembling",
		StateRegistered:   "registered",
		StateNotified:     "notified",
		StateFailed:       "failed",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("String() = %s, want %s", got, want)
		}
		if s.Terminal() != (s == StateNotified || s == StateFailed) {
			t.Errorf("%s.Terminal() = %v", s, s.Terminal())
		}
	}
}
