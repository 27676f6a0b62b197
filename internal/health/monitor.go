package health

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

// Monitor runs the dependency checker on a cron schedule.
type Monitor struct {
	checker *Checker
	cron    *cron.Cron
	log     *logger.Logger
}

func NewMonitor(checker *Checker, log *logger.Logger) *Monitor {
	return &Monitor{
		checker: checker,
		cron:    cron.New(),
		log:     log,
	}
}

// Start registers the periodic check and begins the cron loop. The schedule
// accepts standard cron expressions and descriptors like "@every 3m".
func (m *Monitor) Start(schedule string) error {
	_, err := m.cron.AddFunc(schedule, func() {
		status := m.checker.Check(context.Background())
		if status.Healthy {
			m.log.Debug("periodic health check passed")
		}
	})
	if err != nil {
		return err
	}

	m.cron.Start()
	m.log.Info("health monitor started", "schedule", schedule)
	return nil
}

// Stop halts the cron loop and waits for a running check to finish.
func (m *Monitor) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("health monitor stopped")
}
