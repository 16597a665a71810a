package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/foxseedlab/mojistream/internal/transcript"
)

const (
	FieldName   = "file"
	FileName    = "audio.wav"
	ContentType = "audio/wav"
)

var ErrNoResult = errors.New("upload: response has no transcript")

// Transcriber sends one finished recording for batch transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) ([]transcript.Line, error)
}

// DecodeResponse reads the pretty array of a transcribe response.
func DecodeResponse(body []byte) ([]transcript.Line, error) {
	lines, err := transcript.DecodeField(body, transcript.PrettyField)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResult, err)
	}
	if len(lines) == 1 && lines[0].Passthrough {
		return nil, ErrNoResult
	}
	return lines, nil
}
