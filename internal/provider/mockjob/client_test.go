package mockjob_test

import (
	"context"
	"testing"
	"time"

	"storyreel/internal/jobs"
	"storyreel/internal/provider/mockjob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMockJob_CompletesAfterNominalDuration(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	client := mockjob.New(mockjob.Config{Duration: 30 * time.Second}, zap.NewNop()).
		WithClock(func() time.Time { return now })

	created, err := client.CreateTask(context.Background(), jobs.Input{Prompt: "a cat"})
	require.NoError(t, err)
	assert.Equal(t, jobs.StateInProgress, created.State)

	now = t0.Add(15 * time.Second)
	mid, err := client.GetStatus(context.Background(), created.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateInProgress, mid.State)
	assert.Equal(t, 50, mid.Progress)

	now = t0.Add(31 * time.Second)
	done, err := client.GetStatus(context.Background(), created.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateCompleted, done.State)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, mockjob.DefaultPlaceholderURL, done.ResultURL)
}

func TestMockJob_SurvivesNewClientInstance(t *testing.T) {
	t0 := time.Now()
	first := mockjob.New(mockjob.Config{}, zap.NewNop()).WithClock(func() time.Time { return t0 })
	created, err := first.CreateTask(context.Background(), jobs.Input{})
	require.NoError(t, err)

	second := mockjob.New(mockjob.Config{}, zap.NewNop()).WithClock(func() time.Time { return t0.Add(time.Minute) })
	st, err := second.GetStatus(context.Background(), created.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateCompleted, st.State)
}

func TestMockJob_UnknownID(t *testing.T) {
	client := mockjob.New(mockjob.Config{}, zap.NewNop())

	_, err := client.GetStatus(context.Background(), "task-123")
	assert.Error(t, err)
}
