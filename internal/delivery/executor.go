// Package delivery implements the per-user reminder delivery sequence:
// bounded retries with exponential backoff, bookkeeping writes around every
// attempt, and failure classification.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/gateway"
	"github.com/vhvplatform/go-reminder-service/internal/metrics"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

// PreferenceStore is the narrow persistence surface the executor needs.
// Depending on this subset instead of the full repository keeps the executor
// testable with lightweight fakes.
type PreferenceStore interface {
	MarkAttempt(ctx context.Context, userID string, at time.Time) error
	MarkDelivered(ctx context.Context, userID string, slot, next time.Time) error
	SetLastError(ctx context.Context, userID string, errMsg string) error
	ReleaseClaim(ctx context.Context, userID string) error
	Disable(ctx context.Context, userID string, reason string) error
}

// DeadLetter receives reminders whose delivery exhausted the retry budget.
type DeadLetter interface {
	Add(ctx context.Context, userID, content string, slot time.Time, attempts int, cause error) error
}

// Tracker records delivery outcomes for alerting.
type Tracker interface {
	RecordFailure(userID string, cause error)
	RecordSuccess(userID string)
}

// Config holds the retry budget and backoff parameters.
type Config struct {
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	AttemptTimeout time.Duration
}

// Executor performs one delivery sequence per due user.
type Executor struct {
	store   PreferenceStore
	gateway gateway.Gateway
	tracker Tracker
	dlq     DeadLetter
	cfg     Config
	now     func() time.Time
	log     *logger.Logger
}

// NewExecutor creates a delivery executor. now is injectable for tests;
// pass nil for wall clock.
func NewExecutor(store PreferenceStore, gw gateway.Gateway, tracker Tracker, dlq DeadLetter, cfg Config, now func() time.Time, log *logger.Logger) *Executor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 60 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Executor{
		store:   store,
		gateway: gw,
		tracker: tracker,
		dlq:     dlq,
		cfg:     cfg,
		now:     now,
		log:     log,
	}
}

// Backoff returns the delay before the next retry:
// min(base * 2^attempt, max).
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max || d < 0 {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Deliver runs the full attempt sequence for one claimed, due preference.
// The slot being serviced is pref.NextFireAt; on success the schedule is
// advanced and the slot stamped as delivered. Retries stop early when ctx is
// cancelled (service shutdown) or the gateway reports a permanent failure.
func (e *Executor) Deliver(ctx context.Context, pref *domain.ReminderPreference, content string) error {
	if pref.NextFireAt == nil {
		return fmt.Errorf("user %s has no scheduled slot", pref.UserID)
	}
	slot := *pref.NextFireAt
	start := e.now()
	defer func() {
		metrics.DeliveryDuration.Observe(e.now().Sub(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.DeliveryRetries.Inc()
			if err := e.sleep(ctx, Backoff(e.cfg.BackoffBase, e.cfg.BackoffMax, attempt-1)); err != nil {
				return err
			}
		}

		// Crash marker: the attempt is visible in the store before the
		// send goes out.
		if err := e.store.MarkAttempt(ctx, pref.UserID, e.now()); err != nil {
			return fmt.Errorf("mark attempt for user %s: %w", pref.UserID, err)
		}

		lastErr = e.attempt(ctx, pref.UserID, content)
		if lastErr == nil {
			return e.finishSuccess(ctx, pref, slot)
		}

		e.log.Warn("reminder send failed",
			"user_id", pref.UserID,
			"attempt", attempt+1,
			"max_retries", e.cfg.MaxRetries,
			"error", lastErr,
		)

		if err := e.store.SetLastError(ctx, pref.UserID, lastErr.Error()); err != nil {
			e.log.Error("failed to persist last error", "user_id", pref.UserID, "error", err)
		}

		if domain.IsPermanentSend(lastErr) {
			return e.finishPermanent(ctx, pref, lastErr)
		}
	}

	return e.finishExhausted(ctx, pref, content, slot, lastErr)
}

// attempt performs a single gateway call under the per-attempt timeout.
func (e *Executor) attempt(ctx context.Context, userID, content string) error {
	if e.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.AttemptTimeout)
		defer cancel()
	}
	return e.gateway.Send(ctx, userID, content)
}

func (e *Executor) finishSuccess(ctx context.Context, pref *domain.ReminderPreference, slot time.Time) error {
	next, err := domain.NextFireInstant(pref.FireTimeUTC, e.now())
	if err != nil {
		return fmt.Errorf("reschedule user %s: %w", pref.UserID, err)
	}

	if err := e.store.MarkDelivered(ctx, pref.UserID, slot, next); err != nil {
		return fmt.Errorf("mark delivered for user %s: %w", pref.UserID, err)
	}

	e.tracker.RecordSuccess(pref.UserID)
	metrics.RemindersDelivered.WithLabelValues("success").Inc()
	e.log.Info("reminder delivered",
		"user_id", pref.UserID,
		"slot", slot.Format(time.RFC3339),
		"next_fire_at", next.Format(time.RFC3339),
	)
	return nil
}

// finishPermanent stops retrying and disables the schedule. Re-enabling
// takes an explicit settings change from the user.
func (e *Executor) finishPermanent(ctx context.Context, pref *domain.ReminderPreference, cause error) error {
	if err := e.store.Disable(ctx, pref.UserID, cause.Error()); err != nil {
		e.log.Error("failed to disable schedule after permanent failure", "user_id", pref.UserID, "error", err)
	}

	e.tracker.RecordFailure(pref.UserID, cause)
	metrics.RemindersDelivered.WithLabelValues("permanent_failure").Inc()
	e.log.Warn("reminder delivery permanently failed, schedule disabled",
		"user_id", pref.UserID,
		"error", cause,
	)
	return fmt.Errorf("permanent delivery failure for user %s: %w", pref.UserID, cause)
}

func (e *Executor) finishExhausted(ctx context.Context, pref *domain.ReminderPreference, content string, slot time.Time, cause error) error {
	if err := e.dlq.Add(ctx, pref.UserID, content, slot, e.cfg.MaxRetries, cause); err != nil {
		e.log.Error("failed to dead-letter reminder", "user_id", pref.UserID, "error", err)
	}

	// next_fire_at stays in the past, so the next sweep retries naturally
	// once the claim is released.
	if err := e.store.ReleaseClaim(ctx, pref.UserID); err != nil {
		e.log.Error("failed to release claim", "user_id", pref.UserID, "error", err)
	}

	e.tracker.RecordFailure(pref.UserID, cause)
	metrics.RemindersDelivered.WithLabelValues("exhausted").Inc()

	return fmt.Errorf("delivery for user %s failed after %d attempts: %w", pref.UserID, e.cfg.MaxRetries, cause)
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
// Retries must not outlive a stop request.
func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
