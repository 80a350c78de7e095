package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler duplicates each record to a set of handlers, so the
// console, the journal, and the in-memory buffer each see the stream
// filtered at their own level.
type MultiHandler struct {
	targets []slog.Handler
}

// NewMultiHandler creates a handler fanning out to targets.
func NewMultiHandler(targets ...slog.Handler) *MultiHandler {
	return &MultiHandler{targets: targets}
}

// Enabled reports true when any target would accept the level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, t := range m.targets {
		if t.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every target that accepts its level.
// One failing target does not stop delivery to the rest.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, t := range m.targets {
		if !t.Enabled(ctx, r.Level) {
			continue
		}
		if err := t.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs returns a fan-out over the targets with attrs applied.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, 0, len(m.targets))
	for _, t := range m.targets {
		next = append(next, t.WithAttrs(attrs))
	}
	return &MultiHandler{targets: next}
}

// WithGroup returns a fan-out over the targets with the group opened.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, 0, len(m.targets))
	for _, t := range m.targets {
		next = append(next, t.WithGroup(name))
	}
	return &MultiHandler{targets: next}
}
