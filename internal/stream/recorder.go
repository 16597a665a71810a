package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/foxseedlab/mojistream/internal/audio"
	"github.com/foxseedlab/mojistream/internal/metrics"
	"github.com/foxseedlab/mojistream/internal/upload"
	"github.com/google/uuid"
)

// Recorder captures until Stop, then uploads the whole take as one WAV
// file and appends the returned transcript to its log.
type Recorder struct {
	*feed

	preferredRate int
	source        audio.Source
	newConverter  audio.ConverterFactory
	permission    audio.Permission
	audioSession  audio.Session
	uploader      upload.Transcriber
	metrics       metrics.Recorder
	newID         func() string

	mu        sync.Mutex
	state     State
	id        string
	sessionID string
	conv      audio.Converter

	pcmMu     sync.Mutex
	pcm       []byte
	convError bool
}

func NewRecorder(opts Options, deps Dependencies) *Recorder {
	if opts.PreferredSampleRate <= 0 {
		opts.PreferredSampleRate = audio.TargetFormat.SampleRate
	}
	deps.withDefaults()
	return &Recorder{
		feed:          newFeed(),
		preferredRate: opts.PreferredSampleRate,
		source:        deps.Source,
		newConverter:  deps.NewConverter,
		permission:    deps.Permission,
		audioSession:  deps.AudioSession,
		uploader:      deps.Uploader,
		metrics:       deps.Metrics,
		newID:         uuid.NewString,
		sessionID:     opts.SessionID,
	}
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.active() {
		return ErrAlreadyRunning
	}
	r.id = r.newID()
	r.pcmMu.Lock()
	r.pcm = r.pcm[:0]
	r.convError = false
	r.pcmMu.Unlock()

	if !r.permission.Request() {
		return r.failLocked(audio.ErrPermissionDenied)
	}
	if err := r.audioSession.Configure(audio.CategoryPlayAndRecord, r.preferredRate); err != nil {
		return r.failLocked(err)
	}
	format, err := r.source.Format()
	if err != nil {
		return r.failLocked(err)
	}
	r.conv = r.newConverter()
	if err := r.conv.Prepare(format); err != nil {
		return r.failLocked(err)
	}
	if err := r.source.Start(r.capture); err != nil {
		return r.failLocked(err)
	}
	r.setStateLocked(Status{State: StateStreaming})
	r.info(messageRecording)
	slog.Info("recording started", "stream_id", r.id, "source_format", format.String())
	return nil
}

func (r *Recorder) capture(block audio.Block) {
	r.metrics.BlockCaptured()
	chunk, err := r.conv.Convert(block)
	r.pcmMu.Lock()
	defer r.pcmMu.Unlock()
	if err != nil {
		if !r.convError {
			r.convError = true
			slog.Error("audio conversion failed", "error", err, "stream_id", r.id)
			r.emitEntry(r.id, r.sessionID, Entry{Kind: EntryError, Text: fmt.Sprintf(messageConvertFailed, err)})
		}
		return
	}
	r.pcm = append(r.pcm, chunk...)
}

// Stop ends capture and uploads the recording. It returns once the
// transcript (or the upload error) has been appended to the log.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateStreaming {
		r.mu.Unlock()
		return nil
	}
	r.setStateLocked(Status{State: StateStopping})
	r.source.Stop()
	r.conv.Reset()
	r.info(messageRecordStopped)
	id := r.id
	r.mu.Unlock()

	r.pcmMu.Lock()
	pcm := append([]byte(nil), r.pcm...)
	r.pcmMu.Unlock()

	err := r.upload(ctx, id, pcm)

	r.mu.Lock()
	r.setStateLocked(Status{State: StateStopped})
	r.mu.Unlock()
	r.Sync()
	return err
}

func (r *Recorder) upload(ctx context.Context, id string, pcm []byte) error {
	target := audio.TargetFormat
	wav, err := audio.EncodeWAV(pcm, target.SampleRate, target.Channels)
	if err != nil {
		r.emitEntry(id, r.sessionID, Entry{Kind: EntryError, Text: fmt.Sprintf(messageUploadFailed, err)})
		return err
	}
	r.emitEntry(id, r.sessionID, Entry{Kind: EntryInfo, Text: messageUploading})
	slog.Info("uploading recording", "stream_id", id, "bytes", len(wav))

	lines, err := r.uploader.Transcribe(ctx, wav)
	switch {
	case errors.Is(err, upload.ErrNoResult):
		slog.Warn("transcribe response had no result", "error", err, "stream_id", id)
		r.emitEntry(id, r.sessionID, Entry{Kind: EntryError, Text: messageUploadNoResult})
		return err
	case err != nil:
		slog.Error("upload failed", "error", err, "stream_id", id)
		r.emitEntry(id, r.sessionID, Entry{Kind: EntryError, Text: fmt.Sprintf(messageUploadFailed, err)})
		return err
	}
	for _, line := range lines {
		r.emitEntry(id, r.sessionID, Entry{Kind: EntryTranscript, Speaker: line.Speaker, Text: line.Text})
	}
	slog.Info("recording transcribed", "stream_id", id, "lines", len(lines))
	return nil
}

func (r *Recorder) failLocked(err error) error {
	slog.Error("recording setup failed", "error", err, "stream_id", r.id)
	r.emitEntry(r.id, r.sessionID, Entry{Kind: EntryError, Text: fmt.Sprintf(messageSetupFailed, err)})
	r.setStateLocked(Status{State: StateFailed, Reason: err.Error()})
	return err
}

func (r *Recorder) setStateLocked(st Status) {
	r.state = st.State
	r.metrics.StreamStateChanged(st.State.String())
	r.emitStatus(r.id, r.sessionID, st)
}

func (r *Recorder) info(text string) {
	r.emitEntry(r.id, r.sessionID, Entry{Kind: EntryInfo, Text: text})
}

// StreamID returns the id of the current or most recent recording.
func (r *Recorder) StreamID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *Recorder) Close() {
	_ = r.Stop(context.Background())
	r.feed.Close()
}
