package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
	wavHeaderSize      = 44
)

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// EncodeWAV wraps 16-bit little-endian PCM in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", channels)
	}
	const bitsPerSample = 16
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(pcm)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   wavFormatPCM,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * bitsPerSample / 8),
		BlockAlign:    uint16(channels * bitsPerSample / 8),
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(pcm)),
	}
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	buf.Write(pcm)
	return buf.Bytes(), nil
}

// DecodeWAV reads the fmt and data chunks, skipping anything else.
// Unknown encodings or bit depths fail with ErrUnsupportedFormat.
func DecodeWAV(r io.Reader) (Format, []byte, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Format{}, nil, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Format{}, nil, errors.New("not a RIFF/WAVE stream")
	}

	var (
		format    Format
		haveFmt   bool
		chunkHead [8]byte
	)
	for {
		if _, err := io.ReadFull(r, chunkHead[:]); err != nil {
			return Format{}, nil, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(chunkHead[0:4])
		size := int64(binary.LittleEndian.Uint32(chunkHead[4:8]))
		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return Format{}, nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			f, err := parseWAVFormat(body)
			if err != nil {
				return Format{}, nil, err
			}
			format = f
			haveFmt = true
		case "data":
			if !haveFmt {
				return Format{}, nil, errors.New("data chunk before fmt chunk")
			}
			data := make([]byte, size)
			n, err := io.ReadFull(r, data)
			if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
				return Format{}, nil, fmt.Errorf("read data chunk: %w", err)
			}
			data = data[:n]
			if fb := format.FrameBytes(); fb > 0 {
				data = data[:len(data)-len(data)%fb]
			}
			return format, data, nil
		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return Format{}, nil, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
		if size%2 == 1 && id == "fmt " {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil {
				return Format{}, nil, err
			}
		}
	}
}

func parseWAVFormat(body []byte) (Format, error) {
	if len(body) < 16 {
		return Format{}, fmt.Errorf("fmt chunk too short: %d bytes", len(body))
	}
	audioFormat := binary.LittleEndian.Uint16(body[0:2])
	f := Format{
		Channels:   int(binary.LittleEndian.Uint16(body[2:4])),
		SampleRate: int(binary.LittleEndian.Uint32(body[4:8])),
	}
	bits := binary.LittleEndian.Uint16(body[14:16])
	switch {
	case audioFormat == wavFormatPCM && bits == 16:
		f.SampleFormat = SampleFormatInt16
	case audioFormat == wavFormatPCM && bits == 24:
		f.SampleFormat = SampleFormatInt24
	case audioFormat == wavFormatPCM && bits == 32:
		f.SampleFormat = SampleFormatInt32
	case audioFormat == wavFormatIEEEFloat && bits == 32:
		f.SampleFormat = SampleFormatFloat32
	case audioFormat == wavFormatIEEEFloat && bits == 64:
		f.SampleFormat = SampleFormatFloat64
	default:
		return Format{}, fmt.Errorf("%w: wav encoding %d with %d bits", ErrUnsupportedFormat, audioFormat, bits)
	}
	return f, nil
}
