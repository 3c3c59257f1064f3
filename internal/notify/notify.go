// Package notify публикует события о ходе генерации во внешнюю очередь.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storyreel/internal/jobs"
)

// EventType - тип события.
type EventType string

const (
	EventStoryVersionCreated EventType = "story.version_created"
	EventSlotFinished        EventType = "scene.slot_finished"
	EventJobUpdated          EventType = "job.updated"
	EventVideoSubmitted      EventType = "video.submitted"
	EventVideoCompleted      EventType = "video.completed"
	EventVideoFailed         EventType = "video.failed"
)

// Event - сообщение в очереди. Поля, не относящиеся к типу события, пустые.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	ProjectID string    `json:"projectId,omitempty"`
	SlotID    string    `json:"slotId,omitempty"`
	JobID     string    `json:"jobId,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Status    string    `json:"status,omitempty"`
	Progress  int       `json:"progress,omitempty"`
	URL       string    `json:"url,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier отправляет события. Ошибка доставки не должна ломать основную операцию:
// вызывающая сторона только логирует ее.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Nop ничего не отправляет. Используется, когда RabbitMQ не настроен.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// JobUpdates возвращает обработчик для jobs.Registry.OnUpdate, пересылающий статусы задач.
// Промежуточные опросы без изменения состояния не пересылаются.
func JobUpdates(n Notifier, logger *zap.Logger) jobs.UpdateCallback {
	log := logger.Named("JobUpdates")
	last := make(map[string]jobs.State)
	var mu sync.Mutex
	return func(rec jobs.Record) {
		mu.Lock()
		prev, seen := last[rec.JobID]
		changed := !seen || prev != rec.Status.State
		last[rec.JobID] = rec.Status.State
		if rec.Status.State.Terminal() {
			delete(last, rec.JobID)
		}
		mu.Unlock()
		if !changed {
			return
		}

		ev := Event{
			Type:      EventJobUpdated,
			JobID:     rec.JobID,
			Provider:  string(rec.Kind),
			Status:    string(rec.Status.State),
			Progress:  rec.Status.Progress,
			URL:       rec.Status.ResultURL,
			Error:     rec.Status.Error,
			Timestamp: rec.UpdatedAt,
		}
		// обработчик вызывается синхронно из опроса, поэтому отправка ограничена по времени
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.Notify(ctx, ev); err != nil {
			log.Warn("Failed to publish job update", zap.String("job_id", rec.JobID), zap.Error(err))
		}
	}
}
