package nativebuf

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// WaitTimeout bounds how long an extraction call blocks on an unsignalled
// fence before the frame is abandoned.
const WaitTimeout = 250 * time.Millisecond

// ErrFenceTimeout indicates a fence did not signal within the bounded wait.
var ErrFenceTimeout = errors.New("timed out waiting on input fence")

// Fence is a one-shot synchronization token. The producer signals it when
// the referenced buffer is safe to read; the consumer waits on it, bounded
// by a timeout, before touching the pixels.
type Fence struct {
	once sync.Once
	done chan struct{}
}

// NewFence creates an unsignalled fence.
func NewFence() *Fence {
	return &Fence{done: make(chan struct{})}
}

// NewSignalledFence creates a fence that is already safe to pass.
func NewSignalledFence() *Fence {
	f := NewFence()
	f.Signal()
	return f
}

// Signal marks the fence as passed. Signalling more than once is harmless.
func (f *Fence) Signal() {
	f.once.Do(func() { close(f.done) })
}

// Wait blocks until the fence signals or the timeout expires, in which case
// it returns ErrFenceTimeout.
func (f *Fence) Wait(timeout time.Duration) error {
	select {
	case <-f.done:
		return nil
	case <-time.After(timeout):
		return ErrFenceTimeout
	}
}

// FenceTable maps the small integer fence descriptors carried in metadata
// buffers to Fence objects. Taking a fence removes it from the table, so a
// wire descriptor can be consumed at most once.
type FenceTable struct {
	mu     sync.Mutex
	next   int32
	fences map[int32]*Fence
}

// NewFenceTable creates an empty fence table.
func NewFenceTable() *FenceTable {
	return &FenceTable{fences: make(map[int32]*Fence)}
}

// Install registers a fence and returns the descriptor value the producer
// embeds in the metadata buffer. Descriptors are always non-negative.
func (t *FenceTable) Install(f *Fence) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	t.fences[t.next] = f
	return t.next
}

// Take removes and returns the fence for a descriptor. It returns nil when
// the descriptor is unknown, which callers treat as an already-recycled
// fence rather than an error.
func (t *FenceTable) Take(fd int32) *Fence {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.fences[fd]
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "FenceTable.Take",
			"fence_fd": fd,
		}).Debug("Fence descriptor not in table, treating as signalled")
		return nil
	}
	delete(t.fences, fd)
	return f
}
