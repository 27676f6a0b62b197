package scheduler

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

type fakeSource struct {
	mu      sync.Mutex
	due     []*domain.ReminderPreference
	findErr error
	claims  map[string]bool // userID -> claim outcome
	claimed []string
}

func (f *fakeSource) FindDue(ctx context.Context, now time.Time) ([]*domain.ReminderPreference, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.due, nil
}

func (f *fakeSource) ClaimDue(ctx context.Context, userID string, slot, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimed = append(f.claimed, userID)
	won, ok := f.claims[userID]
	if !ok {
		won = true
	}
	return won, nil
}

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []string
	contents  []string
	done      chan struct{}
}

func (f *fakeDeliverer) Deliver(ctx context.Context, pref *domain.ReminderPreference, content string) error {
	f.mu.Lock()
	f.delivered = append(f.delivered, pref.UserID)
	f.contents = append(f.contents, content)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return nil
}

type sinkRecorder struct {
	mu     sync.Mutex
	alerts []string
	errors []bool
}

func (s *sinkRecorder) Alert(text string, isError bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, text)
	s.errors = append(s.errors, isError)
}

func duePref(userID string, slot time.Time) *domain.ReminderPreference {
	return &domain.ReminderPreference{
		UserID:      userID,
		Enabled:     true,
		FireTimeUTC: "10:00",
		UTCOffset:   "+0",
		NextFireAt:  &slot,
	}
}

func TestSweepDispatchesDueUsers(t *testing.T) {
	now := time.Date(2023, 10, 27, 10, 0, 5, 0, time.UTC)
	slot := time.Date(2023, 10, 27, 10, 0, 0, 0, time.UTC)

	deliverer := &fakeDeliverer{done: make(chan struct{}, 2)}
	source := &fakeSource{due: []*domain.ReminderPreference{
		duePref("user-1", slot),
		duePref("user-2", slot),
	}}

	p := NewPoller(source, deliverer, &sinkRecorder{}, Config{
		Now: func() time.Time { return now },
	}, logger.NewNop())

	p.Sweep(context.Background())

	for i := 0; i < 2; i++ {
		select {
		case <-deliverer.done:
		case <-time.After(time.Second):
			t.Fatal("delivery not dispatched")
		}
	}

	deliverer.mu.Lock()
	defer deliverer.mu.Unlock()
	assert.ElementsMatch(t, []string{"user-1", "user-2"}, deliverer.delivered)
	assert.Contains(t, deliverer.contents[0], "journaling")
}

func TestSweepSkipsLostClaim(t *testing.T) {
	now := time.Date(2023, 10, 27, 10, 0, 5, 0, time.UTC)
	slot := now.Add(-5 * time.Second)

	deliverer := &fakeDeliverer{done: make(chan struct{}, 1)}
	source := &fakeSource{
		due:    []*domain.ReminderPreference{duePref("user-1", slot), duePref("user-2", slot)},
		claims: map[string]bool{"user-1": false},
	}

	p := NewPoller(source, deliverer, &sinkRecorder{}, Config{
		Now: func() time.Time { return now },
	}, logger.NewNop())

	p.Sweep(context.Background())

	select {
	case <-deliverer.done:
	case <-time.After(time.Second):
		t.Fatal("delivery not dispatched")
	}

	deliverer.mu.Lock()
	defer deliverer.mu.Unlock()
	assert.Equal(t, []string{"user-2"}, deliverer.delivered)
}

func TestSweepSkipsServicedAndFutureSlots(t *testing.T) {
	now := time.Date(2023, 10, 27, 10, 0, 5, 0, time.UTC)
	past := now.Add(-5 * time.Second)
	future := now.Add(time.Hour)

	serviced := duePref("serviced", past)
	serviced.LastDeliveredAt = &past

	source := &fakeSource{due: []*domain.ReminderPreference{
		serviced,
		duePref("not-yet", future),
	}}
	deliverer := &fakeDeliverer{}

	p := NewPoller(source, deliverer, &sinkRecorder{}, Config{
		Now: func() time.Time { return now },
	}, logger.NewNop())

	p.Sweep(context.Background())
	p.group.Wait()

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Empty(t, source.claimed, "no claim should be attempted")
	deliverer.mu.Lock()
	defer deliverer.mu.Unlock()
	assert.Empty(t, deliverer.delivered)
}

func TestSweepAlertsOnStoreError(t *testing.T) {
	source := &fakeSource{findErr: errors.New("connection reset")}
	sink := &sinkRecorder{}

	p := NewPoller(source, &fakeDeliverer{}, sink, Config{}, logger.NewNop())
	p.Sweep(context.Background())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.alerts, 1)
	assert.Contains(t, sink.alerts[0], "connection reset")
	assert.True(t, sink.errors[0])
}

func TestStartStopAnnounces(t *testing.T) {
	sink := &sinkRecorder{}
	source := &fakeSource{}

	p := NewPoller(source, &fakeDeliverer{}, sink, Config{Interval: time.Hour}, logger.NewNop())
	p.Start()
	p.Stop()
	p.Stop() // idempotent

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.alerts, 2)
	assert.Contains(t, sink.alerts[0], "started")
	assert.Contains(t, sink.alerts[1], "stopped")
}

func TestTriggerSweepFiresImmediately(t *testing.T) {
	now := time.Date(2023, 10, 27, 10, 0, 5, 0, time.UTC)
	slot := now.Add(-5 * time.Second)

	deliverer := &fakeDeliverer{done: make(chan struct{}, 1)}
	source := &fakeSource{due: []*domain.ReminderPreference{duePref("user-1", slot)}}

	p := NewPoller(source, deliverer, &sinkRecorder{}, Config{
		Interval: time.Hour,
		Now:      func() time.Time { return now },
	}, logger.NewNop())
	p.Start()
	defer p.Stop()

	p.TriggerSweep()

	select {
	case <-deliverer.done:
	case <-time.After(time.Second):
		t.Fatal("manual trigger did not dispatch")
	}
}
