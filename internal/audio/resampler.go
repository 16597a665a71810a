package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Resampler converts arbitrary blocks to TargetFormat. The read position
// and the last input sample carry over between calls, so consecutive
// blocks resample as one continuous signal.
type Resampler struct {
	from     Format
	prepared bool
	step     float64
	pos      float64
	prev     float64
	hasPrev  bool
}

func NewResampler() Converter {
	return &Resampler{}
}

func (r *Resampler) Prepare(from Format) error {
	if err := from.Validate(); err != nil {
		return err
	}
	r.from = from
	r.step = float64(from.SampleRate) / float64(TargetFormat.SampleRate)
	r.prepared = true
	r.pos = 0
	r.hasPrev = false
	return nil
}

func (r *Resampler) Reset() {
	r.pos = 0
	r.prev = 0
	r.hasPrev = false
}

func (r *Resampler) Convert(block Block) ([]byte, error) {
	if !r.prepared || block.Format != r.from {
		if err := r.Prepare(block.Format); err != nil {
			return nil, err
		}
	}
	frameBytes := block.Format.FrameBytes()
	if len(block.Data)%frameBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte frames", ErrUnsupportedFormat, len(block.Data), frameBytes)
	}
	mono := downmix(block)
	if len(mono) == 0 {
		return []byte{}, nil
	}

	out := make([]byte, 0, 2*(int(float64(len(mono))/r.step)+2))
	last := float64(len(mono) - 1)
	for r.pos <= last {
		i := int(math.Floor(r.pos))
		frac := r.pos - float64(i)
		a := r.sampleAt(mono, i)
		b := a
		if i+1 < len(mono) {
			b = mono[i+1]
		}
		out = binary.LittleEndian.AppendUint16(out, uint16(toInt16(a+(b-a)*frac)))
		r.pos += r.step
	}
	r.pos -= float64(len(mono))
	r.prev = mono[len(mono)-1]
	r.hasPrev = true
	return out, nil
}

// sampleAt treats index -1 as the final sample of the previous block.
func (r *Resampler) sampleAt(mono []float64, i int) float64 {
	if i < 0 {
		if r.hasPrev {
			return r.prev
		}
		return mono[0]
	}
	return mono[i]
}

func downmix(block Block) []float64 {
	ch := block.Format.Channels
	bps := block.Format.SampleFormat.BytesPerSample()
	frames := len(block.Data) / (ch * bps)
	mono := make([]float64, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < ch; c++ {
			off := (f*ch + c) * bps
			sum += readSample(block.Data[off:off+bps], block.Format.SampleFormat)
		}
		mono[f] = sum / float64(ch)
	}
	return mono
}

func readSample(b []byte, sf SampleFormat) float64 {
	switch sf {
	case SampleFormatInt16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
	case SampleFormatInt32:
		return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648
	case SampleFormatFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case SampleFormatFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		return 0
	}
}

func toInt16(v float64) int16 {
	s := math.Round(v * 32768)
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	if s < math.MinInt16 {
		return math.MinInt16
	}
	return int16(s)
}
