package graphics

import (
	"fmt"
	"sync"
)

// frameResourceSlot carries the per-frame resources for one in-flight frame:
// the frame's scratch buffer and the destroy queue for resources retired
// while the frame's GPU work may still be executing. A slot is reused once
// the GPU signals completion of the work submitted under it.
type frameResourceSlot struct {
	mu      *sync.Mutex
	index   uint32
	scratch *ScratchBuffer
	destroy destroyQueue

	// pending is true from submission until the completion callback runs;
	// done is replaced on every submission and closed on completion.
	pending bool
	done    chan struct{}
}

// newFrameResourceSlot builds slot index with its own scratch buffer.
func (c *context) newFrameResourceSlot(index uint32, scratchSize uint32) (*frameResourceSlot, error) {
	scratch, err := c.newScratchBuffer(scratchSize, index)
	if err != nil {
		return nil, fmt.Errorf("frame slot %d: %w", index, err)
	}
	return &frameResourceSlot{
		mu:      &sync.Mutex{},
		index:   index,
		scratch: scratch,
	}, nil
}

// markSubmitted flags the slot's work as in flight and arms a fresh
// completion signal.
func (s *frameResourceSlot) markSubmitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = true
	s.done = make(chan struct{})
}

// waitIfPending blocks until the slot's in-flight work has completed. Returns
// immediately when nothing is pending. Acquiring a slot that the GPU has not
// finished with yet is the slow path; steady-state rendering with enough
// slots never blocks here.
func (s *frameResourceSlot) waitIfPending() {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return
	}
	done := s.done
	s.mu.Unlock()
	<-done
}

// complete is the completion callback for work submitted under this slot:
// resources retired during the frame are released now that the GPU is done
// with them, then the slot is signalled free for reuse.
func (s *frameResourceSlot) complete(c *context) {
	c.flushDestroyQueue(&s.destroy)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
	if s.done != nil {
		close(s.done)
	}
}

// activeSlot returns the slot owning the frame currently being recorded.
// Deferred destruction between frames also lands here; the slot's queue is
// flushed again when the slot next begins a frame.
func (c *context) activeSlot() *frameResourceSlot {
	return c.frames[c.currentFrame]
}

// advanceFrame moves the ring to the next slot, round-robin.
func (c *context) advanceFrame() {
	c.currentFrame = (c.currentFrame + 1) % uint32(len(c.frames))
}
