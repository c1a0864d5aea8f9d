package events

import (
	"context"
	"log/slog"
)

// HandlerRegistration names a handler and the kinds it receives.
type HandlerRegistration struct {
	Name    string
	Kinds   []Kind
	Handler HandlerFunc
}

// Subscribe registers reg.Handler for each of reg.Kinds and returns the IDs
// in the same order.
func (d *EventDispatcher) Subscribe(reg HandlerRegistration) []SubscriptionID {
	ids := make([]SubscriptionID, 0, len(reg.Kinds))
	for _, kind := range reg.Kinds {
		if id := d.Register(kind, reg.Name, reg.Handler); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// LoggingHandler is a catch-all handler that logs every file event.
type LoggingHandler struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLoggingHandler creates a LoggingHandler that logs at debug level.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger, level: slog.LevelDebug}
}

// WithLevel returns a copy of h that logs at level.
func (h *LoggingHandler) WithLevel(level slog.Level) *LoggingHandler {
	return &LoggingHandler{logger: h.logger, level: level}
}

// Handle logs the event details.
func (h *LoggingHandler) Handle(ctx context.Context, event FileEvent) error {
	h.logger.Log(ctx, h.level, "file event",
		"kind", event.Kind,
		"path", event.Path,
		"source", event.Source,
		"event_id", event.ID,
		"occurred_at", event.OccurredAt)
	return nil
}

// Registration returns the HandlerRegistration for this handler.
func (h *LoggingHandler) Registration() HandlerRegistration {
	return HandlerRegistration{
		Name:    "LoggingHandler",
		Kinds:   []Kind{KindCreated, KindDeleted},
		Handler: h.Handle,
	}
}
