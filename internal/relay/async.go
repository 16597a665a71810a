package relay

import (
	"sync"

	"github.com/foxseedlab/mojistream/internal/stream"
)

// Async moves a slow sink off the dispatcher goroutine. Events are handed
// to the wrapped sink in order on one worker goroutine; Close drains them.
type Async struct {
	sink stream.Sink

	mu     sync.Mutex
	queue  []stream.Event
	closed bool
	notify chan struct{}
	done   chan struct{}
}

func NewAsync(sink stream.Sink) *Async {
	a := &Async{
		sink:   sink,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) HandleEvent(ev stream.Event) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.queue = append(a.queue, ev)
	a.mu.Unlock()
	a.wake()
}

func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
	}
	a.mu.Unlock()
	a.wake()
	<-a.done
}

func (a *Async) wake() {
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

func (a *Async) run() {
	defer close(a.done)
	for {
		a.mu.Lock()
		batch := a.queue
		a.queue = nil
		closed := a.closed
		a.mu.Unlock()

		for _, ev := range batch {
			a.sink.HandleEvent(ev)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-a.notify
	}
}
