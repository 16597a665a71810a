package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/mojistream/internal/audio"
	"github.com/foxseedlab/mojistream/internal/metrics"
	"github.com/foxseedlab/mojistream/internal/transcript"
	"github.com/foxseedlab/mojistream/internal/transport"
	"github.com/foxseedlab/mojistream/internal/upload"
	"github.com/google/uuid"
)

type Options struct {
	BaseURL             string
	SessionID           string
	PreferredSampleRate int
	OutboundQueueSize   int
	ConnectTimeout      time.Duration
}

type Dependencies struct {
	Source       audio.Source
	NewConverter audio.ConverterFactory
	Dialer       transport.Dialer
	Permission   audio.Permission
	AudioSession audio.Session
	Metrics      metrics.Recorder
	Uploader     upload.Transcriber
}

// Controller runs one live stream at a time: capture, convert and send
// outbound, decode inbound, and publish everything through its feed.
type Controller struct {
	*feed

	opts         Options
	source       audio.Source
	newConverter audio.ConverterFactory
	dialer       transport.Dialer
	permission   audio.Permission
	audioSession audio.Session
	metrics      metrics.Recorder
	newID        func() string

	mu        sync.Mutex
	state     State
	sessionID string
	run       *run
}

type run struct {
	id        string
	sessionID string
	cancel    context.CancelFunc
	ch        transport.Channel
	conv      audio.Converter
	out       *outbound
	recvDone  chan struct{}
	closing   atomic.Bool
	convError atomic.Bool
}

func (d *Dependencies) withDefaults() {
	if d.NewConverter == nil {
		d.NewConverter = audio.NewResampler
	}
	if d.Permission == nil {
		d.Permission = audio.GrantedPermission
	}
	if d.AudioSession == nil {
		d.AudioSession = audio.NoopSession
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop
	}
}

func NewController(opts Options, deps Dependencies) *Controller {
	if opts.PreferredSampleRate <= 0 {
		opts.PreferredSampleRate = audio.TargetFormat.SampleRate
	}
	deps.withDefaults()
	return &Controller{
		feed:         newFeed(),
		opts:         opts,
		source:       deps.Source,
		newConverter: deps.NewConverter,
		dialer:       deps.Dialer,
		permission:   deps.Permission,
		audioSession: deps.AudioSession,
		metrics:      deps.Metrics,
		newID:        uuid.NewString,
		sessionID:    opts.SessionID,
	}
}

// SetSessionID binds the id used for the next Start.
func (c *Controller) SetSessionID(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.active() {
		return ErrSessionLocked
	}
	c.sessionID = id
	return nil
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// StreamID returns the id of the current or most recent stream.
func (c *Controller) StreamID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		return ""
	}
	return c.run.id
}

// Start opens the channel and begins capture. It blocks until the stream
// is Streaming, setup failed, or Stop interrupted the connect step.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state.active() {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	var (
		connectCtx context.Context
		cancel     context.CancelFunc
	)
	if c.opts.ConnectTimeout > 0 {
		connectCtx, cancel = context.WithTimeout(ctx, c.opts.ConnectTimeout)
	} else {
		connectCtx, cancel = context.WithCancel(ctx)
	}
	r := &run{
		id:        c.newID(),
		sessionID: c.sessionID,
		cancel:    cancel,
		recvDone:  make(chan struct{}),
	}
	c.run = r
	c.setStateLocked(r, Status{State: StateConnecting})
	c.info(r, messageConnecting)
	c.mu.Unlock()

	slog.Info("stream connecting", "stream_id", r.id, "session_id", r.sessionID)

	streamURL, err := transport.StreamURL(c.opts.BaseURL, r.sessionID)
	if err != nil {
		return c.abortConnect(r, err)
	}
	if !c.permission.Request() {
		return c.abortConnect(r, audio.ErrPermissionDenied)
	}
	ch, err := c.dialer.Open(connectCtx, streamURL)
	if err != nil {
		return c.abortConnect(r, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != r || c.state != StateConnecting {
		_ = ch.Close(transport.NormalClosureReason)
		return ErrStopped
	}
	r.ch = ch
	return c.activateLocked(r)
}

func (c *Controller) abortConnect(r *run, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != r || c.state != StateConnecting {
		return ErrStopped
	}
	return c.failLocked(r, err)
}

func (c *Controller) activateLocked(r *run) error {
	if err := c.audioSession.Configure(audio.CategoryPlayAndRecord, c.opts.PreferredSampleRate); err != nil {
		return c.failLocked(r, err)
	}
	format, err := c.source.Format()
	if err != nil {
		return c.failLocked(r, err)
	}
	r.conv = c.newConverter()
	if err := r.conv.Prepare(format); err != nil {
		return c.failLocked(r, err)
	}
	r.out = newOutbound(c.opts.OutboundQueueSize, c.sender(r), func() {
		c.metrics.ChunkDropped()
		slog.Warn("outbound queue full; dropped oldest chunk", "stream_id", r.id)
	})
	if err := c.source.Start(c.tap(r)); err != nil {
		return c.failLocked(r, err)
	}
	go c.receiveLoop(r)

	c.setStateLocked(r, Status{State: StateStreaming})
	c.info(r, messageStreaming)
	slog.Info("stream started", "stream_id", r.id, "session_id", r.sessionID, "source_format", format.String())
	return nil
}

func (c *Controller) failLocked(r *run, err error) error {
	r.cancel()
	if r.out != nil {
		r.out.close()
	}
	if r.ch != nil {
		r.closing.Store(true)
		_ = r.ch.Close(transport.NormalClosureReason)
	}
	slog.Error("stream setup failed", "error", err, "stream_id", r.id, "session_id", r.sessionID)
	c.errorLine(r, messageSetupFailed, err)
	c.setStateLocked(r, Status{State: StateFailed, Reason: err.Error()})
	return err
}

// Stop is idempotent. After it returns no capture callback runs, queued
// chunks have been sent, and the channel is closed.
func (c *Controller) Stop() error {
	c.mu.Lock()
	r := c.run
	switch c.state {
	case StateConnecting:
		r.cancel()
		c.info(r, messageCancelled)
		c.setStateLocked(r, Status{State: StateStopped})
		c.mu.Unlock()
		c.Sync()
		return nil
	case StateStreaming:
	default:
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(r, Status{State: StateStopping})

	c.source.Stop()
	r.out.close()
	r.closing.Store(true)
	if err := r.ch.SendText(transport.StopMessage); err != nil {
		slog.Debug("stop message not delivered", "error", err, "stream_id", r.id)
	}
	if err := r.ch.Close(transport.NormalClosureReason); err != nil {
		slog.Warn("channel close failed", "error", err, "stream_id", r.id)
	}
	<-r.recvDone
	r.conv.Reset()
	r.cancel()

	c.info(r, messageStopped)
	c.setStateLocked(r, Status{State: StateStopped})
	c.mu.Unlock()
	slog.Info("stream stopped", "stream_id", r.id, "session_id", r.sessionID)
	c.Sync()
	return nil
}

func (c *Controller) tap(r *run) func(audio.Block) {
	return func(block audio.Block) {
		c.metrics.BlockCaptured()
		chunk, err := r.conv.Convert(block)
		if err != nil {
			if r.convError.CompareAndSwap(false, true) {
				slog.Error("audio conversion failed", "error", err, "stream_id", r.id, "format", block.Format.String())
				c.errorLine(r, messageConvertFailed, err)
			}
			return
		}
		r.out.push(chunk)
	}
}

func (c *Controller) sender(r *run) func([]byte) {
	return func(chunk []byte) {
		if err := r.ch.Send(chunk); err != nil {
			c.metrics.SendFailed()
			slog.Warn("chunk send failed", "error", err, "stream_id", r.id, "bytes", len(chunk))
			c.errorLine(r, messageSendFailed, err)
			return
		}
		c.metrics.ChunkSent(len(chunk))
	}
}

func (c *Controller) receiveLoop(r *run) {
	defer close(r.recvDone)
	for !r.closing.Load() {
		msg, err := r.ch.Receive()
		if err != nil {
			if r.closing.Load() {
				return
			}
			slog.Error("receive loop ended", "error", err, "stream_id", r.id)
			c.errorLine(r, messageReceiveFailed, err)
			return
		}
		c.metrics.MessageReceived()
		lines, err := transcript.Decode(msg.Data)
		if err != nil {
			c.metrics.DecodeFailed()
			slog.Warn("undecodable transcript event", "error", err, "stream_id", r.id, "bytes", len(msg.Data))
			c.errorLine(r, messageDecodeFailed, err)
			continue
		}
		for _, line := range lines {
			if line.Passthrough {
				slog.Debug("transcript event without speakers", "stream_id", r.id, "raw", line.Text)
				c.emitEntry(r.id, r.sessionID, Entry{Kind: EntryDiagnostic, Text: line.Text})
				continue
			}
			c.emitEntry(r.id, r.sessionID, Entry{Kind: EntryTranscript, Speaker: line.Speaker, Text: line.Text})
		}
	}
}

func (c *Controller) setStateLocked(r *run, st Status) {
	c.state = st.State
	c.metrics.StreamStateChanged(st.State.String())
	c.emitStatus(r.id, r.sessionID, st)
}

func (c *Controller) info(r *run, text string) {
	c.emitEntry(r.id, r.sessionID, Entry{Kind: EntryInfo, Text: text})
}

func (c *Controller) errorLine(r *run, format string, err error) {
	c.emitEntry(r.id, r.sessionID, Entry{Kind: EntryError, Text: fmt.Sprintf(format, err)})
}

// Close stops any running stream and shuts the dispatcher down.
func (c *Controller) Close() {
	_ = c.Stop()
	c.feed.Close()
}
