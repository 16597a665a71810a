//go:build portaudio

package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/foxseedlab/mojistream/internal/audio"
	"github.com/gordonklaus/portaudio"
)

// Microphone captures the default input device through a PortAudio
// callback stream. It is also the audio.Session for desktop hosts.
type Microphone struct {
	framesPerBuffer int

	mu          sync.Mutex
	initialized bool
	device      *portaudio.DeviceInfo
	sampleRate  float64
	channels    int
	stream      *portaudio.Stream
}

func NewMicrophone(framesPerBuffer int) *Microphone {
	return &Microphone{framesPerBuffer: framesPerBuffer}
}

// Configure picks the default input device and uses preferredSampleRate
// when the device accepts it, its default rate otherwise.
func (m *Microphone) Configure(category audio.Category, preferredSampleRate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.initLocked(); err != nil {
		return err
	}
	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}
	m.device = device
	m.channels = 1
	m.sampleRate = device.DefaultSampleRate
	if preferredSampleRate > 0 {
		p := m.paramsLocked(float64(preferredSampleRate))
		if err := portaudio.IsFormatSupported(p, make([]float32, m.framesPerBuffer)); err == nil {
			m.sampleRate = float64(preferredSampleRate)
		}
	}
	slog.Info("microphone configured", "device", device.Name, "category", string(category), "sample_rate", m.sampleRate)
	return nil
}

func (m *Microphone) initLocked() error {
	if m.initialized {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}
	m.initialized = true
	return nil
}

func (m *Microphone) paramsLocked(rate float64) portaudio.StreamParameters {
	p := portaudio.LowLatencyParameters(m.device, nil)
	p.Input.Channels = m.channels
	p.SampleRate = rate
	p.FramesPerBuffer = m.framesPerBuffer
	return p
}

func (m *Microphone) Format() (audio.Format, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return audio.Format{}, fmt.Errorf("%w: microphone not configured", audio.ErrDeviceUnavailable)
	}
	return audio.Format{SampleRate: int(m.sampleRate), Channels: m.channels, SampleFormat: audio.SampleFormatFloat32}, nil
}

func (m *Microphone) Start(onBlock func(audio.Block)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return fmt.Errorf("%w: microphone not configured", audio.ErrDeviceUnavailable)
	}
	if m.stream != nil {
		return fmt.Errorf("%w: microphone already capturing", audio.ErrDeviceUnavailable)
	}
	rate, channels := int(m.sampleRate), m.channels
	stream, err := portaudio.OpenStream(m.paramsLocked(m.sampleRate), func(in []float32) {
		onBlock(audio.Float32Block(rate, channels, in))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}
	m.stream = stream
	return nil
}

// Stop returns after PortAudio has finished the last callback.
func (m *Microphone) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return
	}
	if err := m.stream.Stop(); err != nil {
		slog.Warn("microphone stop failed", "error", err)
	}
	if err := m.stream.Close(); err != nil {
		slog.Warn("microphone close failed", "error", err)
	}
	m.stream = nil
}

func (m *Microphone) Close() error {
	m.Stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil
	}
	m.initialized = false
	return portaudio.Terminate()
}
