package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/foxseedlab/mojistream/internal/audio"
)

// pcmSource replays decoded audio as fixed-size blocks on its own
// goroutine, paced like a capture device when realtime is set.
type pcmSource struct {
	format          audio.Format
	data            []byte
	framesPerBuffer int
	realtime        bool

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	stopped chan struct{}
	done    chan struct{}
}

func newPCMSource(format audio.Format, data []byte, framesPerBuffer int, realtime bool) (*pcmSource, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if framesPerBuffer <= 0 {
		return nil, fmt.Errorf("frames per buffer must be positive, got %d", framesPerBuffer)
	}
	return &pcmSource{
		format:          format,
		data:            data,
		framesPerBuffer: framesPerBuffer,
		realtime:        realtime,
		done:            make(chan struct{}),
	}, nil
}

func (s *pcmSource) Format() (audio.Format, error) {
	return s.format, nil
}

func (s *pcmSource) Start(onBlock func(audio.Block)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("%w: replay already running", audio.ErrDeviceUnavailable)
	}
	s.running = true
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	select {
	case <-s.done:
		s.done = make(chan struct{})
	default:
	}
	go s.play(onBlock, s.stop, s.stopped, s.done)
	return nil
}

func (s *pcmSource) play(onBlock func(audio.Block), stop, stopped, done chan struct{}) {
	defer close(stopped)
	blockBytes := s.framesPerBuffer * s.format.FrameBytes()
	interval := time.Duration(s.framesPerBuffer) * time.Second / time.Duration(s.format.SampleRate)
	var ticker *time.Ticker
	if s.realtime {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}
	for off := 0; off < len(s.data); off += blockBytes {
		select {
		case <-stop:
			return
		default:
		}
		end := min(off+blockBytes, len(s.data))
		onBlock(audio.Block{Format: s.format, Data: s.data[off:end]})
		if ticker != nil {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}
	close(done)
}

// Stop waits for the playback goroutine so no block is delivered after it returns.
func (s *pcmSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
	<-s.stopped
}

// Done is closed once the whole file has been delivered. The channel
// stays the same until a finished source is started again.
func (s *pcmSource) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Duration is the playback length of the decoded audio.
func (s *pcmSource) Duration() time.Duration {
	frames := len(s.data) / s.format.FrameBytes()
	return time.Duration(frames) * time.Second / time.Duration(s.format.SampleRate)
}
