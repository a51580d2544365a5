package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"markers-api/internal/audit/domain"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used by the auth service
// and the HTTP audit middleware.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Creator is the write side of the audit repository.
type Creator interface {
	Create(ctx context.Context, a *domain.AuditLog) error
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        Creator
	ipExtractor IPExtractor
	logger      *slog.Logger
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo Creator, ipExtractor IPExtractor, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, logger: logger}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	// The request may already be cancelled (e.g. client hung up after logout); the entry still counts.
	if err := l.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		l.logger.WarnContext(ctx, "audit write failed",
			"action", action,
			"resource", resource,
			"error", err,
		)
	}
}

// Nop discards audit events.
type Nop struct{}

// LogEvent implements AuditLogger.
func (Nop) LogEvent(context.Context, string, string, string, string) {}
