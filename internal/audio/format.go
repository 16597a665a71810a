package audio

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied  = errors.New("audio: microphone permission denied")
	ErrDeviceUnavailable = errors.New("audio: capture device unavailable")
	ErrUnsupportedFormat = errors.New("audio: unsupported sample format")
)

type SampleFormat int

const (
	SampleFormatUnknown SampleFormat = iota
	SampleFormatInt16
	SampleFormatInt24
	SampleFormatInt32
	SampleFormatFloat32
	SampleFormatFloat64
)

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatInt16:
		return "int16"
	case SampleFormatInt24:
		return "int24"
	case SampleFormatInt32:
		return "int32"
	case SampleFormatFloat32:
		return "float32"
	case SampleFormatFloat64:
		return "float64"
	default:
		return "unknown"
	}
}

// BytesPerSample returns 0 for formats the converter cannot read.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatInt16:
		return 2
	case SampleFormatInt32, SampleFormatFloat32:
		return 4
	case SampleFormatFloat64:
		return 8
	default:
		return 0
	}
}

type Format struct {
	SampleRate   int
	Channels     int
	SampleFormat SampleFormat
}

// TargetFormat is what every outbound chunk carries on the wire.
var TargetFormat = Format{SampleRate: 16000, Channels: 1, SampleFormat: SampleFormatInt16}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", f.SampleRate, f.Channels, f.SampleFormat)
}

func (f Format) FrameBytes() int {
	return f.Channels * f.SampleFormat.BytesPerSample()
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, f.SampleRate)
	}
	if f.Channels < 1 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, f.Channels)
	}
	if f.SampleFormat.BytesPerSample() == 0 {
		return fmt.Errorf("%w: %s samples", ErrUnsupportedFormat, f.SampleFormat)
	}
	return nil
}

// Block is one hardware buffer of interleaved little-endian samples.
type Block struct {
	Format Format
	Data   []byte
}

func (b Block) Frames() int {
	fb := b.Format.FrameBytes()
	if fb == 0 {
		return 0
	}
	return len(b.Data) / fb
}
