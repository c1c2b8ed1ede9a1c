// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"caixa/internal/core"
	"caixa/internal/store"
)

// Publisher forwards a notification to the message broker. Optional; the
// scheduler works without one.
type Publisher interface {
	PublishNotification(ctx context.Context, n core.Notification) error
}

// NotificationScheduler emits due-date reminders for pending expenses.
//
// A reminder fires when the due date falls within the lookahead window,
// counted in whole calendar days from today: due today through due in
// lookahead days. Paid expenses and past-due expenses never fire. Each
// (expense, due date) pair fires at most once; the dedup key survives
// reloads because entry IDs are stable.
type NotificationScheduler struct {
	store     store.NotificationStore
	publisher Publisher
	lookahead int
	pageSize  int
	logger    *slog.Logger
	now       func() time.Time
}

func NewNotificationScheduler(ns store.NotificationStore, pub Publisher, lookaheadDays, pageSize int, logger *slog.Logger) *NotificationScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationScheduler{
		store:     ns,
		publisher: pub,
		lookahead: lookaheadDays,
		pageSize:  pageSize,
		logger:    logger,
		now:       time.Now,
	}
}

// SetNowFunc overrides the clock. Test hook.
func (s *NotificationScheduler) SetNowFunc(now func() time.Time) {
	s.now = now
}

// DedupKey identifies one reminder slot for an expense.
func DedupKey(e core.ExpenseEntry) string {
	return e.ID + "@" + e.DueDate.Format("2006-01-02")
}

// ScheduleDue checks one expense and appends a reminder if it is inside the
// lookahead window and none was recorded for it before.
func (s *NotificationScheduler) ScheduleDue(ctx context.Context, ownerID string, e core.ExpenseEntry) error {
	if e.DueDate.IsEmpty() || e.Status == core.Paid {
		return nil
	}

	days := daysUntil(s.now(), e.DueDate.Time)
	if days < 0 || days > s.lookahead {
		return nil
	}

	key := DedupKey(e)
	exists, err := s.store.Exists(ctx, ownerID, key)
	if err != nil {
		return fmt.Errorf("check notification dedup: %w", err)
	}
	if exists {
		return nil
	}

	n := core.Notification{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     "Conta próxima do vencimento",
		Message:   dueMessage(e.Description, days),
		Timestamp: s.now(),
		DedupKey:  key,
	}
	if err := s.store.Append(ctx, n); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}

	s.logger.InfoContext(ctx, "Due-date reminder scheduled",
		"owner_id", ownerID,
		"expense_id", e.ID,
		"due_date", e.DueDate.Format("2006-01-02"),
		"days_left", days)

	if s.publisher != nil {
		if err := s.publisher.PublishNotification(ctx, n); err != nil {
			// Broker delivery is best effort; the stored notification is
			// the source of truth.
			s.logger.WarnContext(ctx, "Failed to publish notification", "error", err)
		}
	}

	return nil
}

// ScheduleAllDue runs ScheduleDue over a snapshot's expenses.
func (s *NotificationScheduler) ScheduleAllDue(ctx context.Context, ownerID string, expenses []core.ExpenseEntry) error {
	for _, e := range expenses {
		if err := s.ScheduleDue(ctx, ownerID, e); err != nil {
			return err
		}
	}
	return nil
}

// Recent returns the newest notifications for a user, one page.
func (s *NotificationScheduler) Recent(ctx context.Context, ownerID string) ([]core.Notification, error) {
	return s.store.ListRecent(ctx, ownerID, s.pageSize)
}

func dueMessage(description string, days int) string {
	switch days {
	case 0:
		return fmt.Sprintf("%q vence hoje", description)
	case 1:
		return fmt.Sprintf("%q vence amanhã", description)
	default:
		return fmt.Sprintf("%q vence em %d dias", description, days)
	}
}

// daysUntil counts whole calendar days from now's date to due's date. The
// clock time of either side does not matter.
func daysUntil(now, due time.Time) int {
	a := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}
