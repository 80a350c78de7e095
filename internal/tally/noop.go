package tally

import "log/slog"

// noop implements Controller for systems without tally hardware.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

// Set logs the request but drives no hardware.
func (n *noop) Set(light Light, enabled bool, pattern string) error {
	n.logger.Debug("Tally control not available (no-op)",
		"light", string(light), "enabled", enabled, "pattern", pattern)
	return nil
}

// Available returns an empty list.
func (n *noop) Available() []Light {
	return []Light{}
}
