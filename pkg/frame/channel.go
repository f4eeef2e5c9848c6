package frame

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Take after the channel has been closed. It is
// the terminal result a blocked consumer receives when its session is torn
// down.
var ErrClosed = errors.New("frame channel closed")

// Channel is a single-slot, latest-wins hand-off between the control-message
// driven producer and the pull-based media consumer. Capacity is exactly
// one: putting into an occupied slot discards the buffered frame, so the
// consumer always sees the freshest state snapshot. Frames are not an event
// log; dropping stale ones is the intended policy, not a failure.
//
// Put is safe for any number of producers. Take follows a single-consumer
// discipline: at most one goroutine blocks in Take at a time.
type Channel struct {
	mu     sync.Mutex
	cond   *sync.Cond
	slot   *Frame
	closed bool
	drops  uint64
}

func NewChannel() *Channel {
	c := &Channel{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Put stores f in the slot, replacing any undelivered frame. It never
// blocks and has no failure mode; a Put after Close is a no-op.
func (c *Channel) Put(f *Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.slot != nil {
		// Consumer has not drained the previous frame; it is never delivered.
		atomic.AddUint64(&c.drops, 1)
	}
	c.slot = f
	c.cond.Signal()
}

// Take blocks until a frame is available or the channel is closed. It
// empties the slot and returns the frame exactly once; after Close it
// returns ErrClosed.
func (c *Channel) Take() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.slot == nil && !c.closed {
		c.cond.Wait()
	}
	if c.closed {
		return nil, ErrClosed
	}
	f := c.slot
	c.slot = nil
	return f, nil
}

// Close marks the channel closed, discards any buffered frame and wakes
// every blocked Take with ErrClosed. Close is idempotent.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.slot = nil
	c.cond.Broadcast()
}

// Drops reports how many frames were evicted undelivered.
func (c *Channel) Drops() uint64 {
	return atomic.LoadUint64(&c.drops)
}
