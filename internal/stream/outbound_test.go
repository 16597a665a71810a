package stream

import (
	"sync"
	"testing"
)

func TestOutbound_DropsOldestWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var (
		mu   sync.Mutex
		sent []byte
	)
	drops := 0
	o := newOutbound(2, func(chunk []byte) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		mu.Lock()
		sent = append(sent, chunk[0])
		mu.Unlock()
	}, func() { drops++ })

	o.push([]byte{1})
	<-started // chunk 1 is in flight, the queue is empty again
	o.push([]byte{2})
	o.push([]byte{3})
	o.push([]byte{4})
	o.push([]byte{5})
	close(release)
	o.close()

	if drops != 2 {
		t.Fatalf("expected 2 drops, got %d", drops)
	}
	want := []byte{1, 4, 5}
	if string(sent) != string(want) {
		t.Fatalf("expected %v, got %v", want, sent)
	}
}

func TestOutbound_InlineWhenUnbuffered(t *testing.T) {
	var sent [][]byte
	o := newOutbound(0, func(chunk []byte) { sent = append(sent, chunk) }, nil)

	o.push([]byte{1})
	if len(sent) != 1 {
		t.Fatal("expected inline send")
	}
	o.close()
	o.push([]byte{2})
	if len(sent) != 1 {
		t.Fatal("expected no send after close")
	}
}

func TestOutbound_CloseFlushesAndIsIdempotent(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	o := newOutbound(16, func([]byte) {
		mu.Lock()
		count++
		mu.Unlock()
	}, nil)
	for i := 0; i < 10; i++ {
		o.push([]byte{byte(i)})
	}
	o.close()
	o.close()
	o.push([]byte{99})

	mu.Lock()
	defer mu.Unlock()
	if count != 10 {
		t.Fatalf("expected 10 chunks flushed, got %d", count)
	}
}
