package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/observability/requestid"
)

// Logger writes the audit trail: mutations, denials and cascades.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("component", "audit"))}
}

func (al *Logger) LogAction(ctx context.Context, userID, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestid.FromContext(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

// LogCascade records what a cascading delete removed.
func (al *Logger) LogCascade(ctx context.Context, userID, resource, resourceID string, s *domain.CascadeSummary) {
	details := fmt.Sprintf("payments=%d contracts=%d properties=%d users=%d",
		s.Payments, s.Contracts, s.Properties, s.Users)
	al.LogAction(ctx, userID, "cascade_delete", resource, resourceID, "success", details)
}

func (al *Logger) LogDenied(ctx context.Context, userID, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", "", "denied", reason)
}
