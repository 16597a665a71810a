package main

import (
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	audioimpl "github.com/foxseedlab/mojistream/external/audio"
	configloader "github.com/foxseedlab/mojistream/external/config"
	"github.com/foxseedlab/mojistream/external/discord"
	metricsimpl "github.com/foxseedlab/mojistream/external/metrics"
	mqttimpl "github.com/foxseedlab/mojistream/external/mqtt"
	repositoryimpl "github.com/foxseedlab/mojistream/external/repository"
	"github.com/foxseedlab/mojistream/external/restapi"
	transportimpl "github.com/foxseedlab/mojistream/external/transport"
	webhookimpl "github.com/foxseedlab/mojistream/external/webhook"
	"github.com/foxseedlab/mojistream/internal/config"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var sessionID string

var rootCmd = &cobra.Command{
	Use:          "mojistream",
	Short:        "Stream microphone audio to a live transcription server",
	SilenceUsage: true,
}

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream the microphone until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runStream,
}

var replayCmd = &cobra.Command{
	Use:   "replay <file.wav|file.opus>",
	Short: "Stream an audio file in real time",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Record the microphone until interrupted, then upload for batch transcription",
	Args:  cobra.NoArgs,
	RunE:  runTranscribe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "", "session id bound into the stream URL (overrides STREAM_SESSION_ID)")
	rootCmd.AddCommand(streamCmd, replayCmd, transcribeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration, installs the logger and builds the
// dependency graph shared by every command.
func bootstrap() (*config.Config, do.Injector) {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	if sessionID != "" {
		cfg.StreamSessionID = sessionID
	}
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "transport", cfg.StreamTransport)

	slog.Info("startup: building dependency graph")
	return cfg, setupDI(cfg)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	if cfg.IsDevelopment() {
		slog.SetDefault(slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			Level:           charmlog.DebugLevel,
			ReportTimestamp: true,
		})))
		return
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	audioimpl.RegisterDI(injector)
	transportimpl.RegisterDI(injector)
	metricsimpl.RegisterDI(injector)
	restapi.RegisterDI(injector)
	repositoryimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	mqttimpl.RegisterDI(injector)

	return injector
}
