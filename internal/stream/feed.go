package stream

import (
	"sync"
	"time"
)

type queued struct {
	ev      Event
	barrier chan struct{}
}

// feed owns the published status and the output log. Producers on any
// goroutine append to an unbounded queue; a single dispatcher goroutine
// applies events and fans them out to sinks.
type feed struct {
	now func() time.Time

	qmu     sync.Mutex
	queue   []queued
	notify  chan struct{}
	closed  bool
	stopped chan struct{}

	smu     sync.RWMutex
	status  Status
	entries []Entry

	sinkMu sync.Mutex
	nextID int
	sinks  []subscription
}

type subscription struct {
	id   int
	sink Sink
}

func newFeed() *feed {
	f := &feed{
		now:     time.Now,
		notify:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
		status:  Status{State: StateIdle},
	}
	go f.dispatch()
	return f
}

// Subscribe registers s for all subsequent events.
func (f *feed) Subscribe(s Sink) func() {
	f.sinkMu.Lock()
	id := f.nextID
	f.nextID++
	f.sinks = append(f.sinks, subscription{id: id, sink: s})
	f.sinkMu.Unlock()
	return func() {
		f.sinkMu.Lock()
		defer f.sinkMu.Unlock()
		for i, sub := range f.sinks {
			if sub.id == id {
				f.sinks = append(f.sinks[:i:i], f.sinks[i+1:]...)
				return
			}
		}
	}
}

func (f *feed) Status() Status {
	f.smu.RLock()
	defer f.smu.RUnlock()
	return f.status
}

// Entries returns a copy of the output log.
func (f *feed) Entries() []Entry {
	f.smu.RLock()
	defer f.smu.RUnlock()
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Sync blocks until every event emitted before the call has been dispatched.
func (f *feed) Sync() {
	done := make(chan struct{})
	if !f.enqueue(queued{barrier: done}) {
		return
	}
	<-done
}

// Close stops the dispatcher after draining queued events.
func (f *feed) Close() {
	f.qmu.Lock()
	if f.closed {
		f.qmu.Unlock()
		<-f.stopped
		return
	}
	f.closed = true
	f.qmu.Unlock()
	f.wake()
	<-f.stopped
}

func (f *feed) emitStatus(streamID, sessionID string, st Status) {
	f.enqueue(queued{ev: Event{Kind: EventStatusChanged, StreamID: streamID, SessionID: sessionID, Status: st}})
}

func (f *feed) emitEntry(streamID, sessionID string, e Entry) {
	if e.At.IsZero() {
		e.At = f.now()
	}
	f.enqueue(queued{ev: Event{Kind: EventLineAppended, StreamID: streamID, SessionID: sessionID, Entry: e}})
}

func (f *feed) enqueue(q queued) bool {
	f.qmu.Lock()
	if f.closed {
		f.qmu.Unlock()
		return false
	}
	f.queue = append(f.queue, q)
	f.qmu.Unlock()
	f.wake()
	return true
}

func (f *feed) wake() {
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

func (f *feed) dispatch() {
	defer close(f.stopped)
	for {
		f.qmu.Lock()
		batch := f.queue
		f.queue = nil
		closed := f.closed
		f.qmu.Unlock()

		for _, q := range batch {
			if q.barrier != nil {
				close(q.barrier)
				continue
			}
			f.apply(q.ev)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-f.notify
	}
}

func (f *feed) apply(ev Event) {
	f.smu.Lock()
	switch ev.Kind {
	case EventStatusChanged:
		f.status = ev.Status
	case EventLineAppended:
		ev.Entry.Seq = len(f.entries) + 1
		f.entries = append(f.entries, ev.Entry)
	}
	f.smu.Unlock()

	f.sinkMu.Lock()
	subs := f.sinks
	f.sinkMu.Unlock()

	for _, sub := range subs {
		sub.sink.HandleEvent(ev)
	}
}
