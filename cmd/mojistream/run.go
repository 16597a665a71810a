package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	audioimpl "github.com/foxseedlab/mojistream/external/audio"
	"github.com/foxseedlab/mojistream/internal/audio"
	"github.com/foxseedlab/mojistream/internal/config"
	"github.com/foxseedlab/mojistream/internal/metrics"
	"github.com/foxseedlab/mojistream/internal/stream"
	"github.com/foxseedlab/mojistream/internal/transport"
	"github.com/foxseedlab/mojistream/internal/upload"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const uploadTimeout = 3 * time.Minute

type replaySource interface {
	audio.Source
	Done() <-chan struct{}
}

func runStream(cmd *cobra.Command, _ []string) error {
	cfg, injector := bootstrap()
	mic, err := do.Invoke[*audioimpl.Microphone](injector)
	if err != nil {
		return fmt.Errorf("resolve microphone: %w", err)
	}
	defer func() {
		if err := mic.Close(); err != nil {
			slog.Warn("microphone close failed", "error", err)
		}
	}()
	return runController(cmd.Context(), cfg, injector, mic, mic, nil)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, injector := bootstrap()
	src, err := openReplay(args[0], cfg.FramesPerBuffer)
	if err != nil {
		return err
	}
	return runController(cmd.Context(), cfg, injector, src, audio.NoopSession, src.Done())
}

func openReplay(path string, framesPerBuffer int) (replaySource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		src, err := audioimpl.NewWAVFileSource(path, framesPerBuffer, true)
		if err != nil {
			return nil, err
		}
		return src, nil
	case ".opus", ".ogg":
		src, err := audioimpl.NewOpusFileSource(path, framesPerBuffer, true)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: %s", audio.ErrUnsupportedFormat, path)
	}
}

func runController(ctx context.Context, cfg *config.Config, injector do.Injector, src audio.Source, session audio.Session, done <-chan struct{}) error {
	ctrl := stream.NewController(stream.Options{
		BaseURL:             cfg.APIBaseURL,
		SessionID:           cfg.StreamSessionID,
		PreferredSampleRate: cfg.PreferredSampleRate,
		OutboundQueueSize:   cfg.OutboundQueueSize,
		ConnectTimeout:      cfg.ConnectTimeout(),
	}, stream.Dependencies{
		Source:       src,
		NewConverter: do.MustInvoke[audio.ConverterFactory](injector),
		Dialer:       do.MustInvoke[transport.Dialer](injector),
		Permission:   do.MustInvoke[audio.Permission](injector),
		AudioSession: session,
		Metrics:      do.MustInvoke[metrics.Recorder](injector),
	})

	detach, err := attachOutputs(ctx, cfg, injector, ctrl)
	if err != nil {
		ctrl.Close()
		return err
	}
	defer detach()
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	waitForEnd(ctx, cfg.MaxStreamDuration(), done)
	return ctrl.Stop()
}

func runTranscribe(cmd *cobra.Command, _ []string) error {
	cfg, injector := bootstrap()
	mic, err := do.Invoke[*audioimpl.Microphone](injector)
	if err != nil {
		return fmt.Errorf("resolve microphone: %w", err)
	}
	defer func() {
		if err := mic.Close(); err != nil {
			slog.Warn("microphone close failed", "error", err)
		}
	}()

	rec := stream.NewRecorder(stream.Options{
		SessionID:           cfg.StreamSessionID,
		PreferredSampleRate: cfg.PreferredSampleRate,
	}, stream.Dependencies{
		Source:       mic,
		NewConverter: do.MustInvoke[audio.ConverterFactory](injector),
		Permission:   do.MustInvoke[audio.Permission](injector),
		AudioSession: mic,
		Metrics:      do.MustInvoke[metrics.Recorder](injector),
		Uploader:     do.MustInvoke[upload.Transcriber](injector),
	})

	detach, err := attachOutputs(cmd.Context(), cfg, injector, rec)
	if err != nil {
		rec.Close()
		return err
	}
	defer detach()
	defer rec.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rec.Start(); err != nil {
		return err
	}
	waitForEnd(ctx, cfg.MaxStreamDuration(), nil)

	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uploadTimeout)
	defer cancel()
	return rec.Stop(uploadCtx)
}

// waitForEnd blocks until a signal, the replay source running dry, or the
// configured maximum duration.
func waitForEnd(ctx context.Context, limit time.Duration, done <-chan struct{}) {
	var timeout <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case <-done:
		slog.Info("replay finished")
	case <-timeout:
		slog.Info("maximum stream duration reached", "limit", limit)
	}
}
