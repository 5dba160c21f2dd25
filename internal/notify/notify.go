// Package notify tells the user an entry was saved.
package notify

import (
	"context"
	"log/slog"

	"github.com/roach88/travelog/internal/entry"
)

// Text of the saved notification.
const (
	SavedTitle = "Travel Entry Saved!"
	SavedBody  = "Your travel moment was successfully saved."
)

// Notifier is told about every successfully saved entry.
type Notifier interface {
	EntrySaved(ctx context.Context, e entry.Entry) error
}

// LogNotifier delivers notifications as log records.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "notify"))}
}

// EntrySaved logs the saved notification.
func (n *LogNotifier) EntrySaved(ctx context.Context, e entry.Entry) error {
	n.logger.InfoContext(ctx, SavedTitle,
		slog.String("body", SavedBody),
		slog.String("id", e.ID),
		slog.String("address", e.Address),
	)
	return nil
}

// Nop discards notifications.
type Nop struct{}

// EntrySaved does nothing.
func (Nop) EntrySaved(context.Context, entry.Entry) error { return nil }
