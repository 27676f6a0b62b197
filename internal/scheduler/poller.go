// Package scheduler runs the recurring sweep that finds users whose
// reminder slot has arrived and fans their deliveries out to the executor.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/alerting"
	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/metrics"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"golang.org/x/sync/errgroup"
)

// defaultContent is the rendered reminder text used when no content
// provider is wired. Real content generation lives with the chat frontend.
const defaultContent = "It's journaling time! Take a minute to write down your thoughts."

// PreferenceSource is the repository surface the poller needs.
type PreferenceSource interface {
	FindDue(ctx context.Context, now time.Time) ([]*domain.ReminderPreference, error)
	ClaimDue(ctx context.Context, userID string, slot, now time.Time) (bool, error)
}

// Deliverer runs the full delivery sequence for one claimed user.
type Deliverer interface {
	Deliver(ctx context.Context, pref *domain.ReminderPreference, content string) error
}

// ContentFunc renders the reminder message for a user.
type ContentFunc func(pref *domain.ReminderPreference) string

// Poller owns the sweep timer. It alternates between idle and sweeping on a
// fixed period; deliveries run concurrently but dispatch for one interval
// never overlaps the next thanks to the sweeping guard.
type Poller struct {
	source    PreferenceSource
	deliverer Deliverer
	sink      alerting.Sink
	content   ContentFunc
	interval  time.Duration
	now       func() time.Time
	log       *logger.Logger

	group    *errgroup.Group
	sweeping atomic.Bool
	trigger  chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Config holds poller construction parameters.
type Config struct {
	Interval      time.Duration
	MaxConcurrent int
	Content       ContentFunc
	Now           func() time.Time
}

// NewPoller creates a poller. Deliveries fan out on an errgroup bounded by
// MaxConcurrent.
func NewPoller(source PreferenceSource, deliverer Deliverer, sink alerting.Sink, cfg Config, log *logger.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 16
	}
	if cfg.Content == nil {
		cfg.Content = func(*domain.ReminderPreference) string { return defaultContent }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	group := &errgroup.Group{}
	group.SetLimit(cfg.MaxConcurrent)

	return &Poller{
		source:    source,
		deliverer: deliverer,
		sink:      sink,
		content:   cfg.Content,
		interval:  cfg.Interval,
		now:       cfg.Now,
		log:       log,
		group:     group,
		trigger:   make(chan struct{}, 1),
	}
}

// Start begins the sweep timer and announces via the monitoring sink.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx)

	p.log.Info("reminder poller started", "interval", p.interval)
	p.sink.Alert("reminder poller started", false)
}

// Stop cancels the timer and waits for dispatched deliveries to wind down.
// Retry backoffs observe the cancelled context, so no retry outlives the
// stop request; a send already on the wire is allowed to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done
	p.group.Wait()

	p.log.Info("reminder poller stopped")
	p.sink.Alert("reminder poller stopped", false)
}

// TriggerSweep requests an immediate sweep. Used by the operator endpoint;
// a sweep already pending makes this a no-op.
func (p *Poller) TriggerSweep() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx)
		case <-p.trigger:
			p.Sweep(ctx)
		}
	}
}

// Sweep performs one due-user scan and dispatches deliveries. It returns as
// soon as every due user has been handed to the executor group; it never
// waits for deliveries to complete. A sweep that would overlap a still
// dispatching one is skipped.
func (p *Poller) Sweep(ctx context.Context) {
	if !p.sweeping.CompareAndSwap(false, true) {
		p.log.Warn("sweep skipped, previous dispatch still in progress")
		return
	}
	defer p.sweeping.Store(false)

	now := p.now().UTC()

	due, err := p.source.FindDue(ctx, now)
	if err != nil {
		p.log.Error("due-user scan failed", "error", err)
		p.sink.Alert("reminder sweep failed: "+err.Error(), true)
		metrics.SweepsTotal.WithLabelValues("store_error").Inc()
		return
	}

	metrics.SweepsTotal.WithLabelValues("ok").Inc()
	metrics.SweepDueUsers.Observe(float64(len(due)))

	if len(due) == 0 {
		return
	}
	p.log.Info("sweep found due users", "count", len(due))

	for _, pref := range due {
		p.dispatch(ctx, pref, now)
	}
}

func (p *Poller) dispatch(ctx context.Context, pref *domain.ReminderPreference, now time.Time) {
	// The repository query already excludes these, but the record may have
	// moved between scan and dispatch.
	if pref.NextFireAt == nil || pref.NextFireAt.After(now) || pref.SlotServiced(*pref.NextFireAt) {
		return
	}
	slot := *pref.NextFireAt

	won, err := p.source.ClaimDue(ctx, pref.UserID, slot, now)
	if err != nil {
		p.log.Error("claim failed", "user_id", pref.UserID, "error", err)
		return
	}
	if !won {
		metrics.ClaimsLost.Inc()
		p.log.Debug("due record claimed elsewhere", "user_id", pref.UserID)
		return
	}

	content := p.content(pref)
	p.group.Go(func() error {
		if err := p.deliverer.Deliver(ctx, pref, content); err != nil {
			p.log.Error("delivery sequence failed", "user_id", pref.UserID, "error", err)
		}
		return nil
	})
}
