package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	publishQoS     = 1
	publishTimeout = 5 * time.Second
	connectTimeout = 10 * time.Second
	disconnectWait = 250
)

var ErrPublishTimeout = errors.New("mqtt: publish timed out")

type PublisherConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

// Publisher is a thin paho client used by the MQTT relay.
type Publisher struct {
	cfg    PublisherConfig
	client paho.Client
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		slog.Error("mqtt connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(paho.Client) {
		slog.Info("mqtt connected", "broker", cfg.BrokerURL, "client_id", cfg.ClientID)
	})
	return &Publisher{cfg: cfg, client: paho.NewClient(opts)}
}

func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect to %s timed out", p.cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (p *Publisher) Publish(topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, publishQoS, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	return token.Error()
}

func (p *Publisher) Close() {
	p.client.Disconnect(disconnectWait)
}
