package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/birthdaybot/internal/observability"
	"github.com/ent0n29/birthdaybot/internal/store"
)

// Sender delivers an outbound chat message to a user. Delivery is
// best-effort; a failed send is logged and counted, never retried.
type Sender interface {
	Send(ctx context.Context, userID, text string) error
}

// window is one fixed look-ahead offset evaluated on every daily pass.
type window struct {
	offsetDays int
	label      string
}

var windows = []window{
	{offsetDays: 7, label: "in a week"},
	{offsetDays: 1, label: "tomorrow"},
	{offsetDays: 0, label: "today!"},
}

// Scheduler runs the daily reminder pass: for each look-ahead window it
// selects every record matching the target calendar date and notifies the
// record's owner.
type Scheduler struct {
	store   store.Store
	sender  Sender
	logger  *zap.Logger
	metrics *observability.Metrics
	loc     *time.Location
	hour    int
	minute  int
	now     func() time.Time
}

func NewScheduler(st store.Store, sender Sender, logger *zap.Logger, metrics *observability.Metrics, loc *time.Location, hour, minute int) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		store:   st,
		sender:  sender,
		logger:  logger,
		metrics: metrics,
		loc:     loc,
		hour:    hour,
		minute:  minute,
	}
	s.now = func() time.Time { return time.Now().In(loc) }
	return s
}

// Start launches the daily trigger loop. It fires at the configured
// wall-clock time in the scheduler's zone until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		for {
			next := s.nextFire(s.now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if err := s.RunOnce(ctx, s.now()); err != nil {
				s.logger.Error("reminder pass failed", zap.Error(err))
			}
		}
	}()
}

func (s *Scheduler) nextFire(now time.Time) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// RunOnce performs a single reminder pass anchored at today. A record can
// match several windows across consecutive days, producing one notification
// per window per day.
func (s *Scheduler) RunOnce(ctx context.Context, today time.Time) error {
	for _, w := range windows {
		target := today.AddDate(0, 0, w.offsetDays)
		records, err := s.store.SelectByDayMonth(ctx, target.Day(), int(target.Month()))
		if err != nil {
			return fmt.Errorf("select birthdays for %s window: %w", w.label, err)
		}
		for _, r := range records {
			text := composeReminder(r, target, w.label)
			if err := s.sender.Send(ctx, r.OwnerID, text); err != nil {
				s.logger.Warn("reminder delivery failed",
					zap.String("owner_id", r.OwnerID),
					zap.String("window", w.label),
					zap.Error(err))
				if s.metrics != nil {
					s.metrics.SendFailures.Inc()
				}
				continue
			}
			if s.metrics != nil {
				s.metrics.RemindersSent.WithLabelValues(w.label).Inc()
			}
		}
	}
	return nil
}

func composeReminder(r store.Record, target time.Time, label string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi there. It is %s's birthday %s\n", r.Name, label)
	if r.Year != 0 {
		fmt.Fprintf(&b, "He/She is turning %d\n", target.Year()-r.Year)
	}
	if r.Note != "" {
		fmt.Fprintf(&b, "(your note: %s)\n", r.Note)
	}
	b.WriteString("I hope you didn't forget? :)")
	return b.String()
}
