package race

import (
	"sync/atomic"

	"launch-sniper/internal/domain"
)

// Cell is a single-assignment slot for the winning launch event.
// The first TrySet wins; later calls are no-ops.
type Cell struct {
	v    atomic.Pointer[domain.LaunchEvent]
	done chan struct{}
}

// NewCell returns an empty Cell.
func NewCell() *Cell {
	return &Cell{done: make(chan struct{})}
}

// TrySet stores ev if the cell is empty and reports whether it did.
func (c *Cell) TrySet(ev domain.LaunchEvent) bool {
	if !c.v.CompareAndSwap(nil, &ev) {
		return false
	}
	close(c.done)
	return true
}

// Done is closed once the cell holds a value.
func (c *Cell) Done() <-chan struct{} {
	return c.done
}

// Load returns the stored event, if any.
func (c *Cell) Load() (domain.LaunchEvent, bool) {
	p := c.v.Load()
	if p == nil {
		return domain.LaunchEvent{}, false
	}
	return *p, true
}
