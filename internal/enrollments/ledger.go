// Package enrollments registers users for events under capacity and
// uniqueness constraints.
package enrollments

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/standingcat/event-api/internal/logging"
	"github.com/standingcat/event-api/internal/notify"
	"github.com/standingcat/event-api/internal/stores"
	"github.com/standingcat/event-api/models"
)

const DefaultNotifyTimeout = 10 * time.Second

type Ledger struct {
	Users       stores.UserStore
	Events      stores.EventStore
	Enrollments stores.EnrollmentStore
	// Notifier is optional; confirmations are skipped without one.
	Notifier      notify.Notifier
	NotifyTimeout time.Duration
	Now           func() time.Time
	Logger        *zap.Logger

	inflight sync.WaitGroup
	failures atomic.Int64
}

func NewLedger(
	users stores.UserStore,
	events stores.EventStore,
	enrollments stores.EnrollmentStore,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Ledger {
	return &Ledger{
		Users:         users,
		Events:        events,
		Enrollments:   enrollments,
		Notifier:      notifier,
		NotifyTimeout: DefaultNotifyTimeout,
		Now:           time.Now,
		Logger:        logging.OrNop(logger).Named("enrollments"),
	}
}

// Enroll registers userID for eventID. The capacity check, the duplicate check
// and the insert are a single unit in the store. A confirmation is sent in
// the background once the row is committed; its outcome never reaches the
// caller.
func (l *Ledger) Enroll(ctx context.Context, userID, eventID uint) (*models.Enrollment, error) {
	user, err := l.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	event, err := l.Events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	e := &models.Enrollment{
		UserID:     user.ID,
		EventID:    event.ID,
		EnrolledAt: l.now().UTC(),
	}
	if err := l.Enrollments.CreateWithinCapacity(ctx, e); err != nil {
		return nil, err
	}
	e.User, e.Event = user, event

	l.logger().Info("user enrolled",
		zap.Uint("enrollment_id", e.ID),
		zap.Uint("user_id", user.ID),
		zap.Uint("event_id", event.ID),
	)
	l.confirm(ctx, notify.Confirmation{
		EnrollmentID: e.ID,
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		EventID:      event.ID,
		EventTitle:   event.Title,
		EnrolledAt:   e.EnrolledAt,
	})
	return e, nil
}

// Unenroll removes the enrollment of userID in eventID.
func (l *Ledger) Unenroll(ctx context.Context, userID, eventID uint) error {
	if _, err := l.Users.GetByID(ctx, userID); err != nil {
		return err
	}
	if _, err := l.Events.GetEvent(ctx, eventID); err != nil {
		return err
	}
	if err := l.Enrollments.DeleteEnrollment(ctx, userID, eventID); err != nil {
		return err
	}
	l.logger().Info("user unenrolled", zap.Uint("user_id", userID), zap.Uint("event_id", eventID))
	return nil
}

func (l *Ledger) ListForEvent(ctx context.Context, eventID uint) ([]models.Enrollment, error) {
	if _, err := l.Events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return l.Enrollments.ListByEvent(ctx, eventID)
}

func (l *Ledger) ListForUser(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	if _, err := l.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return l.Enrollments.ListByUser(ctx, userID)
}

// NotificationFailures is the number of confirmations that could not be sent.
func (l *Ledger) NotificationFailures() int64 {
	return l.failures.Load()
}

// Drain waits for in-flight confirmations or until ctx is done.
func (l *Ledger) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain confirmations: %w", ctx.Err())
	}
}

// confirm runs detached from the request. It holds no store lock; the
// enrollment transaction has already committed.
func (l *Ledger) confirm(ctx context.Context, c notify.Confirmation) {
	if l.Notifier == nil {
		return
	}
	timeout := l.NotifyTimeout
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}

	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		if err := l.send(ctx, c); err != nil {
			l.failures.Add(1)
			l.logger().Warn("enrollment confirmation failed",
				zap.Uint("enrollment_id", c.EnrollmentID),
				zap.Uint("user_id", c.UserID),
				zap.Error(err),
			)
		}
	}()
}

func (l *Ledger) send(ctx context.Context, c notify.Confirmation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	return l.Notifier.EnrollmentConfirmed(ctx, c)
}

func (l *Ledger) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}

func (l *Ledger) logger() *zap.Logger {
	return logging.OrNop(l.Logger)
}
