package audio

import (
	"github.com/foxseedlab/mojistream/internal/audio"
	"github.com/foxseedlab/mojistream/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Microphone, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewMicrophone(c.FramesPerBuffer), nil
	})
	do.ProvideValue(injector, audio.ConverterFactory(audio.NewResampler))
	do.ProvideValue(injector, audio.GrantedPermission)
}
