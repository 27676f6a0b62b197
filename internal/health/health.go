// Package health verifies the service's dependencies end to end and raises
// operator alerts when a probe fails.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/alerting"
	"github.com/vhvplatform/go-reminder-service/internal/metrics"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

const probeTimeout = 15 * time.Second

// Store is the persistence surface the checker probes. CountEnabled doubles
// as a real read against the preferences collection, not just a ping.
type Store interface {
	CountEnabled(ctx context.Context) (int64, error)
}

// Pinger reports database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Gateway exposes the delivery credential for presence checks.
type Gateway interface {
	Credential() string
}

// Status is the result of one full dependency check.
type Status struct {
	Healthy      bool              `json:"healthy"`
	CheckedAt    time.Time         `json:"checked_at"`
	Dependencies map[string]string `json:"dependencies"`
}

// Checker runs all dependency probes.
type Checker struct {
	store   Store
	pinger  Pinger
	gateway Gateway
	sink    alerting.Sink
	log     *logger.Logger
}

func NewChecker(store Store, pinger Pinger, gateway Gateway, sink alerting.Sink, log *logger.Logger) *Checker {
	return &Checker{
		store:   store,
		pinger:  pinger,
		gateway: gateway,
		sink:    sink,
		log:     log,
	}
}

// Check probes every dependency and returns the combined status. Each
// failing dependency is alerted individually so the operator sees which
// one broke.
func (c *Checker) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status := Status{
		Healthy:      true,
		CheckedAt:    time.Now().UTC(),
		Dependencies: make(map[string]string),
	}

	if err := c.pinger.Ping(ctx); err != nil {
		c.fail(&status, "mongodb", err)
	} else {
		status.Dependencies["mongodb"] = "ok"
	}

	if _, err := c.store.CountEnabled(ctx); err != nil {
		c.fail(&status, "preferences_store", err)
	} else {
		status.Dependencies["preferences_store"] = "ok"
	}

	if c.gateway.Credential() == "" {
		c.fail(&status, "delivery_gateway", fmt.Errorf("credential not configured"))
	} else {
		status.Dependencies["delivery_gateway"] = "ok"
	}

	return status
}

func (c *Checker) fail(status *Status, dependency string, err error) {
	status.Healthy = false
	status.Dependencies[dependency] = err.Error()
	metrics.HealthCheckFailures.WithLabelValues(dependency).Inc()
	c.log.Error("health check failed", "dependency", dependency, "error", err)
	c.sink.Alert(fmt.Sprintf("health check failed for %s: %v", dependency, err), true)
}
