package stream

import "sync"

// outbound carries converted chunks from the capture goroutine to a single
// sender goroutine. When full it drops the oldest chunk so a slow channel
// never blocks capture. With capacity 0 chunks are sent inline.
type outbound struct {
	capacity int
	send     func([]byte)
	onDrop   func()

	mu      sync.Mutex
	pending [][]byte
	closed  bool
	notify  chan struct{}
	done    chan struct{}
}

func newOutbound(capacity int, send func([]byte), onDrop func()) *outbound {
	o := &outbound{
		capacity: capacity,
		send:     send,
		onDrop:   onDrop,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if capacity > 0 {
		go o.run()
	} else {
		close(o.done)
	}
	return o
}

func (o *outbound) push(chunk []byte) {
	if o.capacity == 0 {
		o.mu.Lock()
		closed := o.closed
		o.mu.Unlock()
		if !closed {
			o.send(chunk)
		}
		return
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	dropped := false
	if len(o.pending) >= o.capacity {
		o.pending[0] = nil
		o.pending = o.pending[1:]
		dropped = true
	}
	o.pending = append(o.pending, chunk)
	o.mu.Unlock()
	if dropped && o.onDrop != nil {
		o.onDrop()
	}
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// close stops accepting chunks and waits until everything queued was sent.
func (o *outbound) close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		<-o.done
		return
	}
	o.closed = true
	o.mu.Unlock()
	select {
	case o.notify <- struct{}{}:
	default:
	}
	<-o.done
}

func (o *outbound) run() {
	defer close(o.done)
	for {
		o.mu.Lock()
		if len(o.pending) == 0 {
			closed := o.closed
			o.mu.Unlock()
			if closed {
				return
			}
			<-o.notify
			continue
		}
		chunk := o.pending[0]
		o.pending[0] = nil
		o.pending = o.pending[1:]
		o.mu.Unlock()
		o.send(chunk)
	}
}
