package audio

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/foxseedlab/mojistream/internal/audio"
)

type WAVFileSource struct {
	*pcmSource
}

// NewWAVFileSource loads a WAV file and replays it as capture blocks.
func NewWAVFileSource(path string, framesPerBuffer int, realtime bool) (*WAVFileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}
	defer f.Close()

	format, data, err := audio.DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	src, err := newPCMSource(format, data, framesPerBuffer, realtime)
	if err != nil {
		return nil, err
	}
	slog.Info("wav replay loaded", "path", path, "format", format.String(), "duration", src.Duration())
	return &WAVFileSource{pcmSource: src}, nil
}
