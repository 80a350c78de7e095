package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studioswitch/studioswitch/cmd"
	"github.com/studioswitch/studioswitch/internal/api"
	"github.com/studioswitch/studioswitch/internal/capture"
	"github.com/studioswitch/studioswitch/internal/config"
	"github.com/studioswitch/studioswitch/internal/devices"
	"github.com/studioswitch/studioswitch/internal/effects"
	"github.com/studioswitch/studioswitch/internal/events"
	"github.com/studioswitch/studioswitch/internal/logging"
	"github.com/studioswitch/studioswitch/internal/switcher"
	"github.com/studioswitch/studioswitch/internal/tally"
	"github.com/studioswitch/studioswitch/internal/virtual"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Output settings
	OutputWidth  int `help:"Rendered output width" default:"1280" toml:"output.width" env:"OUTPUT_WIDTH"`
	OutputHeight int `help:"Rendered output height" default:"720" toml:"output.height" env:"OUTPUT_HEIGHT"`

	// Capture settings. Zero picks the best format the device
	// supports, walking down from 1080p.
	CaptureWidth  int `help:"Capture stream width (0 = auto)" default:"0" toml:"capture.width" env:"CAPTURE_WIDTH"`
	CaptureHeight int `help:"Capture stream height (0 = auto)" default:"0" toml:"capture.height" env:"CAPTURE_HEIGHT"`
	CaptureFPS    int `help:"Capture frame rate (0 = auto)" default:"0" toml:"capture.fps" env:"CAPTURE_FPS"`

	// Media settings
	MediaDir string `help:"Directory media file IDs resolve against" default:"media" toml:"media.dir" env:"MEDIA_DIR"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Features settings
	FeaturesTally bool `help:"Enable tally light control" default:"false" toml:"features.tally_enabled" env:"FEATURES_TALLY"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSwitcher string `help:"Switcher logging level" default:"info" toml:"logging.switcher" env:"LOGGING_SWITCHER"`
	LoggingCapture  string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingMedia    string `help:"Media playback logging level" default:"info" toml:"logging.media" env:"LOGGING_MEDIA"`
	LoggingEffects  string `help:"Effects logging level" default:"info" toml:"logging.effects" env:"LOGGING_EFFECTS"`
	LoggingDevices  string `help:"Devices logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingTally    string `help:"Tally logging level" default:"info" toml:"logging.tally" env:"LOGGING_TALLY"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"switcher": opts.LoggingSwitcher,
				"capture":  opts.LoggingCapture,
				"media":    opts.LoggingMedia,
				"effects":  opts.LoggingEffects,
				"devices":  opts.LoggingDevices,
				"api":      opts.LoggingAPI,
				"tally":    opts.LoggingTally,
			},
		})

		logger := logging.GetLogger("main")

		// Reload per-module log levels when the config file changes.
		watcher := config.NewConfigWatcher(opts.Config,
			func(path string) (logging.Config, error) {
				return config.LoadLoggingConfig(path), nil
			}, logger)
		watcher.OnReload(func(cfg logging.Config) {
			logging.SetModuleLevels(cfg.Modules)
		})

		eventBus := events.New()

		// Forward log entries to the bus for the SSE log stream.
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.UTC().Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		detector := devices.NewDetector()
		deviceWatcher := devices.NewWatcher(detector, eventBus, 3*time.Second, logging.GetLogger("devices"))

		renderDevice := effects.NewSoftwareDevice()
		pipeline := effects.NewPipeline(renderDevice, eventBus)

		registry := capture.NewRegistry(detector, eventBus, capture.Options{
			Width:  opts.CaptureWidth,
			Height: opts.CaptureHeight,
			FPS:    opts.CaptureFPS,
		})
		virtuals := virtual.NewRegistry()

		sw := switcher.New(eventBus, pipeline, registry, virtuals, detector, switcher.Options{
			Width:    opts.OutputWidth,
			Height:   opts.OutputHeight,
			MediaDir: opts.MediaDir,
		})

		var tallyController tally.Controller
		var tallyManager *tally.Manager
		if opts.FeaturesTally {
			logger.Info("Tally control enabled, initializing")
			tallyController = tally.New(logging.GetLogger("tally"))
			tallyManager = tally.NewManager(tallyController, eventBus, logging.GetLogger("tally"))
		}

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Switcher:          sw,
			Pipeline:          pipeline,
			Registry:          registry,
			Detector:          detector,
			Virtuals:          virtuals,
			Tally:             tallyController,
			EventBus:          eventBus,
			PrometheusHandler: promhttp.Handler(),
		})

		hooks.OnStart(func() {
			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Config watcher not started", "error", watchErr)
			}
			deviceWatcher.Start()
			if tallyManager != nil {
				tallyManager.Start()
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			deviceWatcher.Stop()
			if tallyManager != nil {
				tallyManager.Stop()
			}
			if closeErr := sw.Close(); closeErr != nil && !errors.Is(closeErr, switcher.ErrClosed) {
				logger.Error("Error closing switcher", "error", closeErr)
			}
			registry.Close()
			renderDevice.Close()
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}
		})
	})

	cli.Root().Use = "studioswitch"
	cli.Root().AddCommand(cmd.CreateDevicesCmd())
	cli.Root().AddCommand(cmd.CreateProbeCmd())

	cli.Run()
}
