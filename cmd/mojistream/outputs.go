package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/foxseedlab/mojistream/external/console"
	"github.com/foxseedlab/mojistream/external/httpapi"
	metricsimpl "github.com/foxseedlab/mojistream/external/metrics"
	mqttimpl "github.com/foxseedlab/mojistream/external/mqtt"
	"github.com/foxseedlab/mojistream/internal/config"
	discordpkg "github.com/foxseedlab/mojistream/internal/discord"
	"github.com/foxseedlab/mojistream/internal/relay"
	"github.com/foxseedlab/mojistream/internal/repository"
	"github.com/foxseedlab/mojistream/internal/stream"
	"github.com/foxseedlab/mojistream/internal/webhook"
	"github.com/samber/do/v2"
)

const (
	discordConnectTimeout = 20 * time.Second
	httpShutdownTimeout   = 10 * time.Second
)

// outputSource is what a Controller and a Recorder have in common.
type outputSource interface {
	httpapi.Source
	Subscribe(s stream.Sink) func()
}

// attachOutputs subscribes the console and every configured relay, and
// starts the status server. The returned func undoes all of it; call it
// after the source has been closed so relays see the final events.
func attachOutputs(ctx context.Context, cfg *config.Config, injector do.Injector, src outputSource) (func(), error) {
	var closers []func()
	detach := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	subscribe := func(s stream.Sink) {
		closers = append(closers, src.Subscribe(s))
	}
	subscribeAsync := func(name string, s stream.Sink) {
		a := relay.NewAsync(s)
		unsubscribe := src.Subscribe(a)
		closers = append(closers, func() {
			unsubscribe()
			a.Close()
		})
		slog.Info("relay enabled", "relay", name)
	}

	subscribe(console.NewPrinter(os.Stdout))

	loc, err := time.LoadLocation(cfg.TranscriptTimezone)
	if err != nil {
		detach()
		return nil, fmt.Errorf("load transcript timezone: %w", err)
	}

	if cfg.DatabaseURL != "" {
		repo, err := do.Invoke[repository.Repository](injector)
		if err != nil {
			detach()
			return nil, fmt.Errorf("resolve repository: %w", err)
		}
		subscribeAsync("postgres", relay.NewArchive(repo))
	}

	if cfg.DiscordToken != "" {
		dc, err := do.Invoke[discordpkg.Client](injector)
		if err != nil {
			detach()
			return nil, fmt.Errorf("resolve discord client: %w", err)
		}
		connectCtx, cancel := context.WithTimeout(ctx, discordConnectTimeout)
		err = dc.Connect(connectCtx)
		cancel()
		if err != nil {
			detach()
			return nil, fmt.Errorf("discord connect: %w", err)
		}
		closers = append(closers, func() {
			if err := dc.Close(); err != nil {
				slog.Error("discord close failed", "error", err)
			}
		})
		slog.Info("discord connected", "channel", dc.ChannelName(cfg.DiscordChannelID))
		subscribeAsync("discord", relay.NewDiscordMirror(dc, cfg.DiscordChannelID, cfg.TranscriptTimezone, loc))
	}

	if cfg.TranscriptWebhookURL != "" {
		sender, err := do.Invoke[webhook.Sender](injector)
		if err != nil {
			detach()
			return nil, fmt.Errorf("resolve webhook sender: %w", err)
		}
		subscribeAsync("webhook", relay.NewWebhookRelay(sender, cfg.TranscriptTimezone, loc))
	}

	if cfg.MQTTBrokerURL != "" {
		mr, err := do.Invoke[*relay.MQTTRelay](injector)
		if err != nil {
			detach()
			return nil, fmt.Errorf("resolve mqtt relay: %w", err)
		}
		publisher := do.MustInvoke[*mqttimpl.Publisher](injector)
		closers = append(closers, publisher.Close)
		subscribeAsync("mqtt", mr)
	}

	if cfg.HTTPAddr != "" {
		prom := do.MustInvoke[*metricsimpl.Prometheus](injector)
		srv := httpapi.NewServer(cfg.HTTPAddr, src, prom.Registry())
		srv.Start(nil)
		closers = append(closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("status server shutdown failed", "error", err)
			}
		})
	}

	return detach, nil
}
