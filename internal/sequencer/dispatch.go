package sequencer

import (
	"sync"

	"github.com/Iron-Ham/zeromunge/internal/event"
)

// dispatcher delivers a run's events on one goroutine, in the order they
// were queued. push never blocks, so it can be called with the sequencer
// lock held.
type dispatcher struct {
	bus *event.Bus

	mu     sync.Mutex
	queue  []event.Event
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newDispatcher(bus *event.Bus) *dispatcher {
	return &dispatcher{
		bus:  bus,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (d *dispatcher) push(e event.Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, e)
	d.mu.Unlock()
	d.signal()
}

// close stops accepting events. Already queued events are still delivered
// before done is closed.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.signal()
}

func (d *dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// run delivers events until close. after, if non-nil, is waited on first so
// a new run's events never interleave with the previous run's tail.
func (d *dispatcher) run(after <-chan struct{}) {
	defer close(d.done)
	if after != nil {
		<-after
	}

	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, e := range batch {
			if d.bus != nil {
				d.bus.Publish(e)
			}
		}

		if len(batch) == 0 {
			if closed {
				return
			}
			<-d.wake
		}
	}
}
