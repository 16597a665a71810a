package transport

import (
	"github.com/foxseedlab/mojistream/internal/config"
	"github.com/foxseedlab/mojistream/internal/transport"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transport.Dialer, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.StreamTransport == config.TransportCloudSpeech {
			return NewCloudSpeechDialer(CloudSpeechConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Language:        c.DefaultTranscribeLanguage,
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
			}), nil
		}
		return NewWebSocketDialer(), nil
	})
}
