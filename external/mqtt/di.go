package mqtt

import (
	"github.com/foxseedlab/mojistream/internal/config"
	"github.com/foxseedlab/mojistream/internal/relay"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Publisher, error) {
		c := do.MustInvoke[*config.Config](i)
		p := NewPublisher(PublisherConfig{
			BrokerURL: c.MQTTBrokerURL,
			ClientID:  c.MQTTClientID,
			Username:  c.MQTTUsername,
			Password:  c.MQTTPassword,
		})
		if err := p.Connect(); err != nil {
			return nil, err
		}
		return p, nil
	})
	do.Provide(injector, func(i do.Injector) (*relay.MQTTRelay, error) {
		c := do.MustInvoke[*config.Config](i)
		return relay.NewMQTTRelay(do.MustInvoke[*Publisher](i), c.MQTTTopicPrefix), nil
	})
}
