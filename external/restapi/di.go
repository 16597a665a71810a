package restapi

import (
	"github.com/foxseedlab/mojistream/internal/config"
	"github.com/foxseedlab/mojistream/internal/upload"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (upload.Transcriber, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewUploader(c.APIBaseURL), nil
	})
}
