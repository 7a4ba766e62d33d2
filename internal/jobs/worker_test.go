package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brightforge/sitechat/internal/domain"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockStaleChecker is a mock implementation of StaleChecker
type MockStaleChecker struct {
	mock.Mock
}

func (m *MockStaleChecker) CheckStale(ctx context.Context) (domain.StaleReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.StaleReport), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	// Let the worker tick at least once
	time.Sleep(120 * time.Millisecond)
	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests that the worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

// TestWorker_ProcessorErrorsDoNotStopLoop tests that errors are logged, not fatal
func TestWorker_ProcessorErrorsDoNotStopLoop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("boom"))

	worker := NewWorker(mockProcessor, 30*time.Millisecond)

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	worker.Stop()
	wg.Wait()

	assert.GreaterOrEqual(t, len(mockProcessor.Calls), 2)
}

func TestStalenessWorker_ProcessJobs(t *testing.T) {
	ctx := context.Background()

	t.Run("records a fresh report", func(t *testing.T) {
		checker := new(MockStaleChecker)
		checker.On("CheckStale", ctx).Return(domain.StaleReport{}, nil)

		worker := NewStalenessWorker(checker)
		require.NoError(t, worker.ProcessJobs(ctx))

		report, checkedAt := worker.LastReport()
		assert.False(t, report.IsStale())
		assert.False(t, checkedAt.IsZero())
	})

	t.Run("records a stale report", func(t *testing.T) {
		checker := new(MockStaleChecker)
		checker.On("CheckStale", ctx).Return(domain.StaleReport{Missing: []string{"a", "b"}}, nil)

		worker := NewStalenessWorker(checker)
		require.NoError(t, worker.ProcessJobs(ctx))

		report, _ := worker.LastReport()
		assert.True(t, report.IsStale())
		assert.Equal(t, []string{"a", "b"}, report.Missing)
	})

	t.Run("checker failure is returned", func(t *testing.T) {
		checker := new(MockStaleChecker)
		checker.On("CheckStale", ctx).Return(domain.StaleReport{}, errors.New("disk gone"))

		worker := NewStalenessWorker(checker)
		err := worker.ProcessJobs(ctx)
		assert.Error(t, err)

		_, checkedAt := worker.LastReport()
		assert.True(t, checkedAt.IsZero())
	})
}
