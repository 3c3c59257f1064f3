package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"storyreel/internal/jobs"
	"storyreel/internal/mocks"
	"storyreel/internal/models"
	"storyreel/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func record(state jobs.State, progress int) jobs.Record {
	return jobs.Record{
		JobID:     "task-1",
		Kind:      models.ProviderVideo,
		Status:    jobs.Status{JobID: "task-1", State: state, Progress: progress},
		UpdatedAt: time.Unix(1_700_000_000, 0),
	}
}

func TestJobUpdates_ForwardsOnlyStateChanges(t *testing.T) {
	n := mocks.NewMockNotifier(t)
	n.On("Notify", mock.Anything, mock.MatchedBy(func(ev notify.Event) bool {
		return ev.Type == notify.EventJobUpdated && ev.Status == "in_progress" && ev.Provider == "video"
	})).Return(nil).Once()
	n.On("Notify", mock.Anything, mock.MatchedBy(func(ev notify.Event) bool {
		return ev.Status == "completed" && ev.Progress == 100
	})).Return(nil).Once()

	cb := notify.JobUpdates(n, zap.NewNop())
	cb(record(jobs.StateInProgress, 50))
	cb(record(jobs.StateInProgress, 50))
	cb(record(jobs.StateCompleted, 100))
}

func TestJobUpdates_PublishErrorIsSwallowed(t *testing.T) {
	n := mocks.NewMockNotifier(t)
	n.On("Notify", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()

	cb := notify.JobUpdates(n, zap.NewNop())
	assert.NotPanics(t, func() { cb(record(jobs.StateQueued, 10)) })
}

func TestNop(t *testing.T) {
	assert.NoError(t, notify.Nop{}.Notify(context.Background(), notify.Event{Type: notify.EventVideoCompleted}))
}
