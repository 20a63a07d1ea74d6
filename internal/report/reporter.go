package report

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/ent0n29/birthdaybot/internal/observability"
)

// Apology is the generic user-facing reply for unexpected failures.
const Apology = "Something went wrong. Report was sent to the creator of this bot"

// Sender delivers outbound chat messages.
type Sender interface {
	Send(ctx context.Context, userID, text string) error
}

// Handler is the conversation engine surface the reporter wraps.
type Handler interface {
	HandleMessage(ctx context.Context, userID, text string) ([]string, error)
	Snapshot(userID string) string
	Reset(userID string)
}

// Reporter is the terminal recovery point for message dispatch. Validation
// and not-found conditions never reach it; anything else is captured here,
// reported to the administrator and answered with a generic apology.
type Reporter struct {
	handler Handler
	sender  Sender
	adminID string
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewReporter(handler Handler, sender Sender, adminID string, logger *zap.Logger, metrics *observability.Metrics) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		handler: handler,
		sender:  sender,
		adminID: adminID,
		logger:  logger,
		metrics: metrics,
	}
}

// Dispatch routes one inbound message through the engine. It never fails:
// errors and panics are converted into an admin report plus the apology.
func (r *Reporter) Dispatch(ctx context.Context, userID, text string) (replies []string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.report(ctx, userID, text, fmt.Errorf("panic: %v", rec), debug.Stack())
			replies = []string{Apology}
		}
	}()

	replies, err := r.handler.HandleMessage(ctx, userID, text)
	if err != nil {
		r.report(ctx, userID, text, err, nil)
		return []string{Apology}
	}
	return replies
}

func (r *Reporter) report(ctx context.Context, userID, text string, cause error, stack []byte) {
	snapshot := r.handler.Snapshot(userID)
	r.handler.Reset(userID)

	r.logger.Error("unhandled failure in message dispatch",
		zap.String("user_id", userID),
		zap.String("input", text),
		zap.String("session", snapshot),
		zap.Error(cause))
	if r.metrics != nil {
		r.metrics.HandlerFailures.Inc()
	}

	if r.adminID == "" {
		return
	}
	diagnostic := fmt.Sprintf("Unhandled failure\nuser: %s\ninput: %q\nsession: %s\nerror: %v", userID, text, snapshot, cause)
	if len(stack) > 0 {
		diagnostic += fmt.Sprintf("\nstack:\n%s", stack)
	}
	if err := r.sender.Send(ctx, r.adminID, diagnostic); err != nil {
		r.logger.Warn("admin report delivery failed", zap.Error(err))
	}
}
