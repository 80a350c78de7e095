// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Logs to an in-memory ring buffer served over the control API
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"switcher": "debug", // Per-module overrides
//			"api":      "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("capture")
//	logger.Info("Feed connected", "device_id", id)
//
// Add contextual attributes:
//
//	logger := logging.GetLogger("capture").With("device_id", id)
//	logger.Info("Frame delivery started") // Includes device_id in all logs
//
// # Viewing Logs
//
// When running as a systemd service or on a system with journald:
//
//	journalctl -t studioswitch           # All studioswitch logs
//	journalctl -t studioswitch -f        # Follow live
//	journalctl -t studioswitch -p err    # Errors only
//
// Filter by structured fields:
//
//	journalctl -t studioswitch MODULE=switcher
//	journalctl -t studioswitch DEVICE_ID=cam-1
//
// # Configuration
//
// Log levels can be set globally or per-module. Module-specific levels
// override the global level for that module only.
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	switcher = "debug"
//	capture = "debug"
//	api = "warn"
package logging
