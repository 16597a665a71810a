//go:build opus

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/foxseedlab/mojistream/internal/audio"
	"github.com/hraban/opus"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

const (
	opusSampleRate = 48000
	// 120 ms is the longest Opus frame.
	maxOpusFrameMs = 120
)

type OpusFileSource struct {
	*pcmSource
}

// NewOpusFileSource decodes an Ogg Opus file with one packet per page
// (the layout oggwriter produces) and replays it as capture blocks.
func NewOpusFileSource(path string, framesPerBuffer int, realtime bool) (*OpusFileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}
	defer f.Close()

	format, data, err := decodeOggOpus(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	src, err := newPCMSource(format, data, framesPerBuffer, realtime)
	if err != nil {
		return nil, err
	}
	slog.Info("opus replay loaded", "path", path, "format", format.String(), "duration", src.Duration())
	return &OpusFileSource{pcmSource: src}, nil
}

func decodeOggOpus(r io.Reader) (audio.Format, []byte, error) {
	ogg, header, err := oggreader.NewWith(r)
	if err != nil {
		return audio.Format{}, nil, fmt.Errorf("%w: %v", audio.ErrUnsupportedFormat, err)
	}
	channels := int(header.Channels)
	dec, err := opus.NewDecoder(opusSampleRate, channels)
	if err != nil {
		return audio.Format{}, nil, fmt.Errorf("%w: %v", audio.ErrUnsupportedFormat, err)
	}

	pcm := make([]int16, opusSampleRate*maxOpusFrameMs/1000*channels)
	var samples []int16
	for {
		payload, _, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return audio.Format{}, nil, err
		}
		if len(payload) == 0 || bytes.HasPrefix(payload, []byte("OpusTags")) {
			continue
		}
		n, err := dec.Decode(payload, pcm)
		if err != nil {
			slog.Debug("skipping undecodable opus packet", "error", err, "bytes", len(payload))
			continue
		}
		samples = append(samples, pcm[:n*channels]...)
	}

	// Opus pre-skip samples are decoder warm-up, not audio.
	skip := min(int(header.PreSkip)*channels, len(samples))
	samples = samples[skip:]

	block := audio.Int16Block(opusSampleRate, channels, samples)
	return block.Format, block.Data, nil
}
