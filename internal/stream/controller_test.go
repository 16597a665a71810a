package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/mojistream/internal/audio"
	"github.com/foxseedlab/mojistream/internal/transport"
)

type mockSource struct {
	mu        sync.Mutex
	format    audio.Format
	formatErr error
	startErr  error
	onBlock   func(audio.Block)
	running   bool
	starts    int
	stops     int
}

func newMockSource() *mockSource {
	return &mockSource{format: audio.TargetFormat}
}

func (s *mockSource) Format() (audio.Format, error) {
	if s.formatErr != nil {
		return audio.Format{}, s.formatErr
	}
	return s.format, nil
}

func (s *mockSource) Start(onBlock func(audio.Block)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.onBlock = onBlock
	s.running = true
	s.starts++
	return nil
}

func (s *mockSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.stops++
	}
	s.running = false
	s.onBlock = nil
}

// push delivers one block the way a capture thread would. It reports
// false once the source has been stopped.
func (s *mockSource) push(b audio.Block) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.onBlock(b)
	return true
}

type mockChannel struct {
	mu      sync.Mutex
	sends   int
	sent    [][]byte
	texts   []string
	closes  int
	reason  string
	failOn  map[int]error
	inbound chan transport.Message
	recvErr chan error
	done    chan struct{}
	once    sync.Once
}

func newMockChannel() *mockChannel {
	return &mockChannel{
		failOn:  make(map[int]error),
		inbound: make(chan transport.Message, 16),
		recvErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
}

func (c *mockChannel) Send(pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends++
	if err, ok := c.failOn[c.sends]; ok {
		return err
	}
	c.sent = append(c.sent, pcm)
	return nil
}

func (c *mockChannel) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return nil
}

func (c *mockChannel) Receive() (transport.Message, error) {
	select {
	case <-c.done:
		return transport.Message{}, transport.ErrChannelClosed
	default:
	}
	select {
	case m := <-c.inbound:
		return m, nil
	case err := <-c.recvErr:
		return transport.Message{}, err
	case <-c.done:
		return transport.Message{}, transport.ErrChannelClosed
	}
}

func (c *mockChannel) Close(reason string) error {
	c.mu.Lock()
	c.closes++
	c.reason = reason
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *mockChannel) snapshot() (sends int, sent [][]byte, texts []string, closes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends, append([][]byte(nil), c.sent...), append([]string(nil), c.texts...), c.closes
}

type mockDialer struct {
	mu       sync.Mutex
	urls     []string
	channels []*mockChannel
	err      error
	block    bool
	entered  chan struct{}
	prepare  func(*mockChannel)
}

func (d *mockDialer) Open(ctx context.Context, rawURL string) (transport.Channel, error) {
	d.mu.Lock()
	d.urls = append(d.urls, rawURL)
	err, block, entered := d.err, d.block, d.entered
	d.mu.Unlock()
	if block {
		if entered != nil {
			close(entered)
		}
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", transport.ErrUnreachable, ctx.Err())
	}
	if err != nil {
		return nil, err
	}
	ch := newMockChannel()
	if d.prepare != nil {
		d.prepare(ch)
	}
	d.mu.Lock()
	d.channels = append(d.channels, ch)
	d.mu.Unlock()
	return ch, nil
}

func (d *mockDialer) last() *mockChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channels[len(d.channels)-1]
}

type denyPermission struct{}

func (denyPermission) Request() bool { return false }

func newTestController(t *testing.T, opts Options, src *mockSource, dialer *mockDialer) *Controller {
	t.Helper()
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.example.com"
	}
	c := NewController(opts, Dependencies{Source: src, Dialer: dialer})
	t.Cleanup(c.Close)
	return c
}

func blockWithValue(v int16) audio.Block {
	samples := make([]int16, 160)
	for i := range samples {
		samples[i] = v
	}
	return audio.Int16Block(16000, 1, samples)
}

func entriesOfKind(entries []Entry, kind EntryKind) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func waitFor(t *testing.T, c *Controller, cond func([]Entry) bool) []Entry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		c.Sync()
		entries := c.Entries()
		if cond(entries) {
			return entries
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met; entries: %+v", entries)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestController_SendsOneChunkPerBlockInOrder(t *testing.T) {
	for _, queueSize := range []int{0, 64} {
		src := newMockSource()
		dialer := &mockDialer{}
		c := newTestController(t, Options{OutboundQueueSize: queueSize}, src, dialer)

		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("queue=%d: unexpected start error: %v", queueSize, err)
		}
		for i := 1; i <= 10; i++ {
			if !src.push(blockWithValue(int16(i * 100))) {
				t.Fatalf("queue=%d: source stopped early", queueSize)
			}
		}
		if err := c.Stop(); err != nil {
			t.Fatalf("queue=%d: unexpected stop error: %v", queueSize, err)
		}

		sends, sent, texts, closes := dialer.last().snapshot()
		if sends != 10 || len(sent) != 10 {
			t.Fatalf("queue=%d: expected 10 sends, got %d", queueSize, sends)
		}
		for i, chunk := range sent {
			samples := audio.PCM16Samples(chunk)
			if len(samples) != 160 || samples[0] != int16((i+1)*100) {
				t.Fatalf("queue=%d: chunk %d out of order: first sample %d", queueSize, i, samples[0])
			}
		}
		if len(texts) != 1 || texts[0] != transport.StopMessage {
			t.Fatalf("queue=%d: expected a single stop message, got %v", queueSize, texts)
		}
		if closes == 0 {
			t.Fatalf("queue=%d: expected channel to be closed", queueSize)
		}
		if st := c.Status(); st.State != StateStopped {
			t.Fatalf("queue=%d: expected stopped, got %s", queueSize, st)
		}
	}
}

func TestController_SessionIDBoundIntoURL(t *testing.T) {
	src := newMockSource()
	dialer := &mockDialer{}
	c := newTestController(t, Options{}, src, dialer)

	if err := c.SetSessionID("abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if err := c.SetSessionID("other"); !errors.Is(err, ErrSessionLocked) {
		t.Fatalf("expected ErrSessionLocked, got %v", err)
	}
	_ = c.Stop()

	if err := c.SetSessionID(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	_ = c.Stop()

	if len(dialer.urls) != 2 {
		t.Fatalf("expected 2 dials, got %d", len(dialer.urls))
	}
	if dialer.urls[0] != "wss://api.example.com/ws/stream?session=abc" {
		t.Fatalf("unexpected url with session: %s", dialer.urls[0])
	}
	if strings.Contains(dialer.urls[1], "?") {
		t.Fatalf("expected no query string, got %s", dialer.urls[1])
	}
}

func TestController_StopIsIdempotent(t *testing.T) {
	src := newMockSource()
	dialer := &mockDialer{}
	c := newTestController(t, Options{}, src, dialer)

	if err := c.Stop(); err != nil {
		t.Fatalf("stop before start should be a no-op, got %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	src.push(blockWithValue(1))
	if err := c.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if src.push(blockWithValue(2)) {
		t.Fatal("expected no audio callbacks after stop")
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second stop returned error: %v", err)
	}

	sends, _, texts, _ := dialer.last().snapshot()
	if sends != 1 {
		t.Fatalf("expected 1 send, got %d", sends)
	}
	if len(texts) != 1 {
		t.Fatalf("expected stop message once, got %v", texts)
	}
	if src.stops != 1 {
		t.Fatalf("expected source to be stopped once, got %d", src.stops)
	}
}

func TestController_SendFailureIsIsolated(t *testing.T) {
	src := newMockSource()
	dialer := &mockDialer{prepare: func(ch *mockChannel) {
		ch.failOn[5] = fmt.Errorf("%w: buffer full", transport.ErrTransient)
	}}
	c := newTestController(t, Options{OutboundQueueSize: 64}, src, dialer)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	for i := 1; i <= 10; i++ {
		src.push(blockWithValue(int16(i)))
	}
	_ = c.Stop()

	sends, sent, _, _ := dialer.last().snapshot()
	if sends != 10 {
		t.Fatalf("expected all 10 chunks to be attempted, got %d", sends)
	}
	if len(sent) != 9 {
		t.Fatalf("expected 9 delivered chunks, got %d", len(sent))
	}
	if got := audio.PCM16Samples(sent[4])[0]; got != 6 {
		t.Fatalf("expected chunk 6 right after the failed one, got %d", got)
	}
	errs := entriesOfKind(c.Entries(), EntryError)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error line, got %+v", errs)
	}
	if !strings.Contains(errs[0].Text, "buffer full") {
		t.Fatalf("unexpected error line: %s", errs[0].Text)
	}
}

func TestController_DecodesInboundMessages(t *testing.T) {
	src := newMockSource()
	dialer := &mockDialer{prepare: func(ch *mockChannel) {
		ch.inbound <- transport.Message{Type: transport.MessageText, Data: []byte(`{"speakers":[{"speaker":"A","text":"hi"},{"text":"yo"}]}`)}
		ch.inbound <- transport.Message{Type: transport.MessageBinary, Data: []byte(`{"foo":"bar"}`)}
		ch.inbound <- transport.Message{Type: transport.MessageText, Data: []byte(`not json`)}
		ch.inbound <- transport.Message{Type: transport.MessageText, Data: []byte(`{"speakers":[{"speaker":"B","text":"bye"}]}`)}
	}}
	c := newTestController(t, Options{}, src, dialer)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	entries := waitFor(t, c, func(es []Entry) bool {
		return len(entriesOfKind(es, EntryTranscript)) == 3
	})
	if st := c.Status(); st.State != StateStreaming {
		t.Fatalf("decode error must not leave streaming, got %s", st)
	}

	var got []string
	for _, e := range entries {
		if e.Kind == EntryInfo {
			continue
		}
		got = append(got, e.String())
	}
	want := []string{
		"A：hi",
		"未知：yo",
		markerDiagnostic + `{"foo":"bar"}`,
	}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("entry %d: expected %q, got %q", i, w, got[i])
		}
	}
	if !strings.HasPrefix(got[3], markerError) {
		t.Fatalf("expected decode error line, got %q", got[3])
	}
	if got[4] != "B：bye" {
		t.Fatalf("expected B：bye, got %q", got[4])
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Seq != entries[i-1].Seq+1 {
			t.Fatalf("entries are not sequential: %+v", entries)
		}
	}
}

func TestController_ReceiveFailureKeepsStreaming(t *testing.T) {
	src := newMockSource()
	dialer := &mockDialer{prepare: func(ch *mockChannel) {
		ch.recvErr <- errors.New("connection reset")
	}}
	c := newTestController(t, Options{}, src, dialer)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	waitFor(t, c, func(es []Entry) bool {
		return len(entriesOfKind(es, EntryError)) == 1
	})
	if st := c.Status(); st.State != StateStreaming {
		t.Fatalf("expected streaming after receive failure, got %s", st)
	}
	src.push(blockWithValue(3))
	if err := c.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if sends, _, _, _ := dialer.last().snapshot(); sends != 1 {
		t.Fatalf("expected sending to continue after receive failure, got %d sends", sends)
	}
	if st := c.Status(); st.State != StateStopped {
		t.Fatalf("expected stopped, got %s", st)
	}
}

func TestController_SetupFailures(t *testing.T) {
	cases := []struct {
		name        string
		setup       func(*mockSource, *mockDialer)
		permission  audio.Permission
		wantErr     error
		wantChannel bool
	}{
		{
			name:    "unreachable",
			setup:   func(_ *mockSource, d *mockDialer) { d.err = transport.ErrUnreachable },
			wantErr: transport.ErrUnreachable,
		},
		{
			name:       "permission denied",
			permission: denyPermission{},
			wantErr:    audio.ErrPermissionDenied,
		},
		{
			name: "unsupported format",
			setup: func(s *mockSource, _ *mockDialer) {
				s.format = audio.Format{SampleRate: 48000, Channels: 2, SampleFormat: audio.SampleFormatInt24}
			},
			wantErr:     audio.ErrUnsupportedFormat,
			wantChannel: true,
		},
		{
			name:        "device unavailable",
			setup:       func(s *mockSource, _ *mockDialer) { s.startErr = audio.ErrDeviceUnavailable },
			wantErr:     audio.ErrDeviceUnavailable,
			wantChannel: true,
		},
	}
	for _, tc := range cases {
		src := newMockSource()
		dialer := &mockDialer{}
		if tc.setup != nil {
			tc.setup(src, dialer)
		}
		c := NewController(Options{BaseURL: "http://localhost:8000"}, Dependencies{
			Source:     src,
			Dialer:     dialer,
			Permission: tc.permission,
		})

		err := c.Start(context.Background())
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
		c.Sync()
		st := c.Status()
		if st.State != StateFailed || st.Reason == "" {
			t.Fatalf("%s: expected failed with reason, got %s", tc.name, st)
		}
		if errs := entriesOfKind(c.Entries(), EntryError); len(errs) != 1 {
			t.Fatalf("%s: expected one error line, got %+v", tc.name, errs)
		}
		if src.running {
			t.Fatalf("%s: source must not be running", tc.name)
		}
		if tc.wantChannel {
			if _, _, _, closes := dialer.last().snapshot(); closes == 0 {
				t.Fatalf("%s: expected channel to be released", tc.name)
			}
		}
		if tc.permission != nil && len(dialer.urls) != 0 {
			t.Fatalf("%s: expected no dial without permission", tc.name)
		}
		c.Close()
	}
}

func TestController_InvalidBaseURL(t *testing.T) {
	c := newTestController(t, Options{BaseURL: "ftp://example.com"}, newMockSource(), &mockDialer{})
	if err := c.Start(context.Background()); !errors.Is(err, transport.ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}

func TestController_RepeatedStartStopReleasesResources(t *testing.T) {
	src := newMockSource()
	dialer := &mockDialer{}
	c := newTestController(t, Options{OutboundQueueSize: 8}, src, dialer)

	for i := 0; i < 3; i++ {
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("cycle %d: unexpected start error: %v", i, err)
		}
		if err := c.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
			t.Fatalf("cycle %d: expected ErrAlreadyRunning, got %v", i, err)
		}
		src.push(blockWithValue(int16(i)))
		if err := c.Stop(); err != nil {
			t.Fatalf("cycle %d: unexpected stop error: %v", i, err)
		}
	}
	if src.starts != 3 || src.stops != 3 {
		t.Fatalf("expected 3 starts and stops, got %d/%d", src.starts, src.stops)
	}
	for i, ch := range dialer.channels {
		if _, _, _, closes := ch.snapshot(); closes == 0 {
			t.Fatalf("channel %d left open", i)
		}
	}
}

func TestController_StopWhileConnecting(t *testing.T) {
	src := newMockSource()
	entered := make(chan struct{})
	dialer := &mockDialer{block: true, entered: entered}
	c := newTestController(t, Options{}, src, dialer)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(context.Background()) }()
	<-entered
	if err := c.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if err := <-errCh; !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	c.Sync()
	if st := c.Status(); st.State != StateStopped {
		t.Fatalf("expected stopped, got %s", st)
	}
	if src.starts != 0 {
		t.Fatal("source must not start when connect was cancelled")
	}
}

func TestController_SubscribersSeeOrderedTransitions(t *testing.T) {
	src := newMockSource()
	dialer := &mockDialer{}
	c := newTestController(t, Options{}, src, dialer)

	var (
		mu     sync.Mutex
		states []State
	)
	unsubscribe := c.Subscribe(SinkFunc(func(ev Event) {
		if ev.Kind != EventStatusChanged {
			return
		}
		mu.Lock()
		states = append(states, ev.Status.State)
		mu.Unlock()
	}))
	defer unsubscribe()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	_ = c.Stop()

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateConnecting, StateStreaming, StateStopping, StateStopped}
	if len(states) != len(want) {
		t.Fatalf("expected %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, states)
		}
	}
}
