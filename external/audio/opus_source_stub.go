//go:build !opus

package audio

import (
	"fmt"

	"github.com/foxseedlab/mojistream/internal/audio"
)

type OpusFileSource struct {
	*pcmSource
}

func NewOpusFileSource(path string, _ int, _ bool) (*OpusFileSource, error) {
	return nil, fmt.Errorf("%w: %s: built without the opus tag", audio.ErrUnsupportedFormat, path)
}
