package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

type fakeStore struct {
	mu            sync.Mutex
	attempts      []time.Time
	deliveredSlot *time.Time
	deliveredNext *time.Time
	lastError     string
	released      bool
	disabled      bool
	disableReason string
}

func (s *fakeStore) MarkAttempt(_ context.Context, _ string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, at)
	return nil
}

func (s *fakeStore) MarkDelivered(_ context.Context, _ string, slot, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveredSlot = &slot
	s.deliveredNext = &next
	return nil
}

func (s *fakeStore) SetLastError(_ context.Context, _ string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = errMsg
	return nil
}

func (s *fakeStore) ReleaseClaim(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	return nil
}

func (s *fakeStore) Disable(_ context.Context, _ string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = true
	s.disableReason = reason
	return nil
}

type fakeGateway struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (g *fakeGateway) Send(_ context.Context, _, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var err error
	if g.calls < len(g.results) {
		err = g.results[g.calls]
	}
	g.calls++
	return err
}

func (g *fakeGateway) Credential() string { return "fake-token" }

type fakeTracker struct {
	failures  int
	successes int
	lastCause error
}

func (t *fakeTracker) RecordFailure(_ string, cause error) {
	t.failures++
	t.lastCause = cause
}

func (t *fakeTracker) RecordSuccess(_ string) { t.successes++ }

type fakeDLQ struct {
	added    int
	attempts int
	cause    error
}

func (d *fakeDLQ) Add(_ context.Context, _, _ string, _ time.Time, attempts int, cause error) error {
	d.added++
	d.attempts = attempts
	d.cause = cause
	return nil
}

func testPref(slot time.Time) *domain.ReminderPreference {
	return &domain.ReminderPreference{
		UserID:      "user-1",
		Enabled:     true,
		FireTimeUTC: "10:00",
		UTCOffset:   "+2",
		NextFireAt:  &slot,
	}
}

func testConfig() Config {
	return Config{
		MaxRetries:     3,
		BackoffBase:    time.Millisecond,
		BackoffMax:     4 * time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

func TestDeliver_SuccessFirstAttempt(t *testing.T) {
	now := time.Date(2023, 10, 27, 10, 0, 30, 0, time.UTC)
	slot := time.Date(2023, 10, 27, 10, 0, 0, 0, time.UTC)

	store := &fakeStore{}
	gw := &fakeGateway{results: []error{nil}}
	tr := &fakeTracker{}
	dlq := &fakeDLQ{}
	ex := NewExecutor(store, gw, tr, dlq, testConfig(), func() time.Time { return now }, logger.NewNop())

	err := ex.Deliver(context.Background(), testPref(slot), "journal time")
	require.NoError(t, err)

	assert.Len(t, store.attempts, 1)
	require.NotNil(t, store.deliveredSlot)
	assert.True(t, store.deliveredSlot.Equal(slot), "delivered slot must be the serviced slot, not wall clock")
	require.NotNil(t, store.deliveredNext)
	assert.Equal(t, time.Date(2023, 10, 28, 10, 0, 0, 0, time.UTC), *store.deliveredNext)
	assert.Equal(t, 1, tr.successes)
	assert.Equal(t, 0, dlq.added)
}

func TestDeliver_TransientThenSuccess(t *testing.T) {
	slot := time.Date(2023, 10, 27, 10, 0, 0, 0, time.UTC)

	store := &fakeStore{}
	gw := &fakeGateway{results: []error{
		domain.NewTransientSendError(errors.New("rate limited")),
		nil,
	}}
	tr := &fakeTracker{}
	ex := NewExecutor(store, gw, tr, &fakeDLQ{}, testConfig(), nil, logger.NewNop())

	err := ex.Deliver(context.Background(), testPref(slot), "journal time")
	require.NoError(t, err)

	assert.Equal(t, 2, gw.calls)
	assert.Len(t, store.attempts, 2)
	assert.Equal(t, 1, tr.successes)
	assert.Equal(t, 0, tr.failures)
}

func TestDeliver_PermanentStopsImmediatelyAndDisables(t *testing.T) {
	slot := time.Date(2023, 10, 27, 10, 0, 0, 0, time.UTC)

	store := &fakeStore{}
	gw := &fakeGateway{results: []error{
		domain.NewPermanentSendError(errors.New("bot was blocked by the user")),
	}}
	tr := &fakeTracker{}
	dlq := &fakeDLQ{}
	ex := NewExecutor(store, gw, tr, dlq, testConfig(), nil, logger.NewNop())

	err := ex.Deliver(context.Background(), testPref(slot), "journal time")
	require.Error(t, err)

	assert.Equal(t, 1, gw.calls, "no retries after a permanent failure")
	assert.True(t, store.disabled)
	assert.Contains(t, store.disableReason, "blocked")
	assert.Equal(t, 1, tr.failures)
	assert.Equal(t, 0, dlq.added, "permanent failures are not retryable, not dead-lettered")
}

func TestDeliver_ExhaustedRetriesDeadLetters(t *testing.T) {
	slot := time.Date(2023, 10, 27, 10, 0, 0, 0, time.UTC)

	transient := domain.NewTransientSendError(errors.New("gateway 502"))
	store := &fakeStore{}
	gw := &fakeGateway{results: []error{transient, transient, transient}}
	tr := &fakeTracker{}
	dlq := &fakeDLQ{}
	ex := NewExecutor(store, gw, tr, dlq, testConfig(), nil, logger.NewNop())

	err := ex.Deliver(context.Background(), testPref(slot), "journal time")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")

	assert.Equal(t, 3, gw.calls)
	assert.Len(t, store.attempts, 3)
	assert.Equal(t, 1, dlq.added)
	assert.Equal(t, 3, dlq.attempts)
	assert.Equal(t, 1, tr.failures)
	assert.False(t, store.disabled, "transient exhaustion must not disable the schedule")
	assert.True(t, store.released, "claim must be released so the next sweep retries")
	assert.NotEmpty(t, store.lastError)
}

func TestDeliver_ShutdownCancelsBackoff(t *testing.T) {
	slot := time.Date(2023, 10, 27, 10, 0, 0, 0, time.UTC)

	cfg := testConfig()
	cfg.BackoffBase = time.Hour // would hang without cancellation
	cfg.BackoffMax = time.Hour

	gw := &fakeGateway{results: []error{
		domain.NewTransientSendError(errors.New("timeout")),
	}}
	ex := NewExecutor(&fakeStore{}, gw, &fakeTracker{}, &fakeDLQ{}, cfg, nil, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		done <- ex.Deliver(ctx, testPref(slot), "journal time")
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, gw.calls)
	case <-time.After(5 * time.Second):
		t.Fatal("Deliver did not return after context cancellation")
	}
}

func TestDeliver_MissingSlotErrors(t *testing.T) {
	pref := testPref(time.Now())
	pref.NextFireAt = nil

	ex := NewExecutor(&fakeStore{}, &fakeGateway{}, &fakeTracker{}, &fakeDLQ{}, testConfig(), nil, logger.NewNop())
	err := ex.Deliver(context.Background(), pref, "journal time")
	require.Error(t, err)
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 2 * time.Second},  // 2s * 2^0
		{1, 4 * time.Second},  // 2s * 2^1
		{2, 8 * time.Second},  // 2s * 2^2
		{3, 16 * time.Second}, // 2s * 2^3
		{4, 30 * time.Second}, // 2s * 2^4 = 32s, capped
		{-1, 2 * time.Second}, // negative treated as 0
	}

	for _, tt := range tests {
		d := Backoff(2*time.Second, 30*time.Second, tt.attempt)
		if d != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, d)
		}
	}
}
