package audio

import (
	"encoding/binary"
	"math"
)

func Int16Block(rate, channels int, samples []int16) Block {
	data := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		data = binary.LittleEndian.AppendUint16(data, uint16(s))
	}
	return Block{Format: Format{SampleRate: rate, Channels: channels, SampleFormat: SampleFormatInt16}, Data: data}
}

func Float32Block(rate, channels int, samples []float32) Block {
	data := make([]byte, 0, len(samples)*4)
	for _, s := range samples {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(s))
	}
	return Block{Format: Format{SampleRate: rate, Channels: channels, SampleFormat: SampleFormatFloat32}, Data: data}
}

// PCM16Samples decodes a little-endian 16-bit chunk.
func PCM16Samples(chunk []byte) []int16 {
	out := make([]int16, len(chunk)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(chunk[i*2:]))
	}
	return out
}
