package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"campaign-fulfillment/internal/core/port"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

var _ port.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, subject string, body []byte) error {
	n.logger.LogAttrs(ctx, slog.LevelError, subject,
		slog.String("module", "notify"),
		slog.Any("state", json.RawMessage(body)),
	)
	return nil
}
