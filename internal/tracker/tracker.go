// Package tracker keeps process-local consecutive delivery failure counts.
// State is deliberately not persisted: alerts are best-effort and loss on
// restart is acceptable.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/alerting"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

// alertSuppressionWindow bounds alert flooding to one alert per user per day.
const alertSuppressionWindow = 24 * time.Hour

// failureRecord tracks one user's failure streak.
type failureRecord struct {
	consecutiveFailures int
	lastAlertSentAt     time.Time
}

// FailureTracker counts consecutive delivery failures per user and raises an
// operator alert once a streak crosses the threshold.
type FailureTracker struct {
	mu        sync.Mutex
	records   map[string]*failureRecord
	threshold int
	sink      alerting.Sink
	now       func() time.Time
	log       *logger.Logger
}

// NewFailureTracker creates a failure tracker. now is injectable for tests;
// pass nil for wall clock.
func NewFailureTracker(threshold int, sink alerting.Sink, now func() time.Time, log *logger.Logger) *FailureTracker {
	if threshold <= 0 {
		threshold = 5
	}
	if now == nil {
		now = time.Now
	}
	return &FailureTracker{
		records:   make(map[string]*failureRecord),
		threshold: threshold,
		sink:      sink,
		now:       now,
		log:       log,
	}
}

// RecordFailure increments the user's streak. When the streak reaches the
// threshold and no alert went out inside the suppression window, exactly one
// alert is emitted and the window restarts.
func (t *FailureTracker) RecordFailure(userID string, cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[userID]
	if !ok {
		rec = &failureRecord{}
		t.records[userID] = rec
	}
	rec.consecutiveFailures++

	t.log.Warn("delivery failure recorded",
		"user_id", userID,
		"consecutive_failures", rec.consecutiveFailures,
		"error", cause,
	)

	if rec.consecutiveFailures < t.threshold {
		return
	}

	now := t.now()
	if !rec.lastAlertSentAt.IsZero() && now.Sub(rec.lastAlertSentAt) < alertSuppressionWindow {
		return
	}

	rec.lastAlertSentAt = now
	t.sink.Alert(fmt.Sprintf("reminder delivery for user %s failed %d times in a row: %v",
		userID, rec.consecutiveFailures, cause), true)
}

// RecordSuccess clears the user's streak.
func (t *FailureTracker) RecordSuccess(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, userID)
}

// ConsecutiveFailures returns the current streak for a user.
func (t *FailureTracker) ConsecutiveFailures(userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[userID]; ok {
		return rec.consecutiveFailures
	}
	return 0
}
