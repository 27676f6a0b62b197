package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

type stubStore struct {
	count int64
	err   error
}

func (s *stubStore) CountEnabled(ctx context.Context) (int64, error) { return s.count, s.err }

type stubPinger struct{ err error }

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

type stubGateway struct{ credential string }

func (s *stubGateway) Credential() string { return s.credential }

type stubSink struct {
	alerts []string
}

func (s *stubSink) Alert(text string, isError bool) { s.alerts = append(s.alerts, text) }

func TestCheckAllHealthy(t *testing.T) {
	sink := &stubSink{}
	checker := NewChecker(&stubStore{count: 3}, &stubPinger{}, &stubGateway{credential: "token"}, sink, logger.NewNop())

	status := checker.Check(context.Background())

	assert.True(t, status.Healthy)
	assert.Equal(t, "ok", status.Dependencies["mongodb"])
	assert.Equal(t, "ok", status.Dependencies["preferences_store"])
	assert.Equal(t, "ok", status.Dependencies["delivery_gateway"])
	assert.Empty(t, sink.alerts)
}

func TestCheckReportsMongoFailure(t *testing.T) {
	sink := &stubSink{}
	checker := NewChecker(&stubStore{}, &stubPinger{err: errors.New("no reachable servers")}, &stubGateway{credential: "token"}, sink, logger.NewNop())

	status := checker.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.Contains(t, status.Dependencies["mongodb"], "no reachable servers")
	require.Len(t, sink.alerts, 1)
	assert.Contains(t, sink.alerts[0], "mongodb")
}

func TestCheckReportsMissingCredential(t *testing.T) {
	sink := &stubSink{}
	checker := NewChecker(&stubStore{}, &stubPinger{}, &stubGateway{}, sink, logger.NewNop())

	status := checker.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.Contains(t, status.Dependencies["delivery_gateway"], "credential")
	require.Len(t, sink.alerts, 1)
	assert.Contains(t, sink.alerts[0], "delivery_gateway")
}

func TestCheckReportsEveryFailedDependency(t *testing.T) {
	sink := &stubSink{}
	checker := NewChecker(
		&stubStore{err: errors.New("query timeout")},
		&stubPinger{err: errors.New("down")},
		&stubGateway{},
		sink, logger.NewNop(),
	)

	status := checker.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.Len(t, sink.alerts, 3)
}
