package testutil

import (
	"fmt"
	"sync"
	"time"

	"ortho-go/internal/ortho"
)

// FixedTime is the time reported by FixedClock: a Monday afternoon at the clinic.
var FixedTime = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

// StubClock is an ortho.Clock that only moves when told to.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ ortho.Clock = (*StubClock)(nil)

// FixedClock returns a StubClock standing at FixedTime.
func FixedClock() *StubClock {
	return &StubClock{now: FixedTime}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *StubClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// StubIDGenerator is an ortho.IDGenerator handing out StubID(1), StubID(2), ...
// in call order. The pipeline draws the file name token before the record
// ID, so a single photo upload is named with StubID(1) and stored as row StubID(2).
type StubIDGenerator struct {
	mu   sync.Mutex
	next int
}

var _ ortho.IDGenerator = (*StubIDGenerator)(nil)

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return StubID(g.next)
}

// StubID returns the n-th UUID-shaped ID of a StubIDGenerator.
func StubID(n int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}
