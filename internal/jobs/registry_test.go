package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"storyreel/internal/jobs"
	"storyreel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry_SubmitTracksAndRefreshUsesStoredKind(t *testing.T) {
	reg := jobs.NewRegistry(zap.NewNop())
	client := &scriptedClient{states: []jobs.State{jobs.StateInProgress}}
	reg.Register(client)

	var updates []jobs.Record
	reg.OnUpdate(func(rec jobs.Record) { updates = append(updates, rec) })

	st, err := reg.Submit(context.Background(), models.ProviderVideo, jobs.Input{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", st.JobID)

	rec, err := reg.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderVideo, rec.Kind)
	assert.Equal(t, jobs.StateQueued, rec.Status.State)

	st, err = reg.Refresh(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StateInProgress, st.State)
	require.Len(t, updates, 2)
	assert.Equal(t, 50, updates[1].Status.Progress)
}

func TestRegistry_ResolveUnknownKind(t *testing.T) {
	reg := jobs.NewRegistry(zap.NewNop())

	_, err := reg.Resolve(models.ProviderRefImage)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = reg.Refresh(context.Background(), "nope")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestRegistry_CleanupRemovesOnlyOldTerminal(t *testing.T) {
	reg := jobs.NewRegistry(zap.NewNop())
	reg.Track(models.ProviderMock, jobs.Status{JobID: "done", State: jobs.StateCompleted})
	reg.Track(models.ProviderMock, jobs.Status{JobID: "running", State: jobs.StateInProgress})

	assert.Equal(t, 0, reg.Cleanup(time.Hour))
	assert.Equal(t, 1, reg.Cleanup(-time.Second))

	_, err := reg.Get("done")
	assert.Error(t, err)
	_, err = reg.Get("running")
	assert.NoError(t, err)
}
