package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- mocks ---

type mockRunner struct {
	calls atomic.Int32
	ran   chan struct{}
	block bool
	err   error
}

func newMockRunner() *mockRunner {
	return &mockRunner{ran: make(chan struct{}, 10)}
}

func (m *mockRunner) Run(ctx context.Context) (domain.RunSummary, error) {
	m.calls.Add(1)
	m.ran <- struct{}{}
	if m.block {
		<-ctx.Done()
		return domain.RunSummary{}, nil
	}
	return domain.RunSummary{RunID: "run"}, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitRun(t *testing.T, r *mockRunner) {
	t.Helper()
	select {
	case <-r.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled run did not fire")
	}
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("every tuesday", newMockRunner(), discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every tuesday")
}

func TestNew_AcceptedSpecs(t *testing.T) {
	for _, spec := range []string{"*/15 * * * *", "0 */15 * * * *", "@every 30m", "@hourly"} {
		t.Run(spec, func(t *testing.T) {
			s, err := New(spec, newMockRunner(), discardLogger())
			require.NoError(t, err)
			assert.True(t, s.Next().IsZero())
			require.NoError(t, s.Stop(context.Background()))
		})
	}
}

func TestScheduler_FiresRunner(t *testing.T) {
	r := newMockRunner()
	s, err := New("@every 1s", r, discardLogger())
	require.NoError(t, err)

	s.Start()
	assert.False(t, s.Next().IsZero())
	waitRun(t, r)

	require.NoError(t, s.Stop(context.Background()))
	assert.GreaterOrEqual(t, r.calls.Load(), int32(1))
}

func TestScheduler_RunErrorsAreNotFatal(t *testing.T) {
	for _, runErr := range []error{pipeline.ErrRunInProgress, errors.New("list active sources: unavailable")} {
		t.Run(runErr.Error(), func(t *testing.T) {
			r := newMockRunner()
			r.err = runErr
			s, err := New("@every 1s", r, discardLogger())
			require.NoError(t, err)

			s.Start()
			waitRun(t, r)
			require.NoError(t, s.Stop(context.Background()))
		})
	}
}

func TestScheduler_StopCancelsInFlightRun(t *testing.T) {
	r := newMockRunner()
	r.block = true
	s, err := New("@every 1s", r, discardLogger())
	require.NoError(t, err)

	s.Start()
	waitRun(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.GreaterOrEqual(t, r.calls.Load(), int32(1))
}
