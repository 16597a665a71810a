//go:build !portaudio

package audio

import (
	"fmt"

	"github.com/foxseedlab/mojistream/internal/audio"
)

var errNoPortAudio = fmt.Errorf("%w: built without the portaudio tag", audio.ErrDeviceUnavailable)

type Microphone struct{}

func NewMicrophone(int) *Microphone {
	return &Microphone{}
}

func (m *Microphone) Configure(audio.Category, int) error { return errNoPortAudio }
func (m *Microphone) Format() (audio.Format, error)       { return audio.Format{}, errNoPortAudio }
func (m *Microphone) Start(func(audio.Block)) error       { return errNoPortAudio }
func (m *Microphone) Stop()                               {}
func (m *Microphone) Close() error                        { return nil }
