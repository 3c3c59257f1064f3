package jobs

import (
	"context"
	"time"

	"storyreel/internal/models"
)

// State - нормализованное состояние удаленной задачи, общее для всех провайдеров.
type State string

const (
	StateQueued     State = "queued"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal сообщает, что задача больше не изменится.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// ProgressFor возвращает дискретный прогресс для провайдеров, которые его не сообщают.
func ProgressFor(s State) int {
	switch s {
	case StateQueued:
		return 10
	case StateInProgress:
		return 50
	case StateCompleted:
		return 100
	default:
		return 0
	}
}

// SuccessState - состояние для ответа провайдера "успех". Пока ссылки на результат нет,
// задача считается выполняющейся и опрос продолжается.
func SuccessState(resultURL string) State {
	if resultURL == "" {
		return StateInProgress
	}
	return StateCompleted
}

// Input - параметры создания задачи. Каждый провайдер использует свое подмножество полей.
type Input struct {
	Prompt          string
	ImageURL        string
	ImageURLs       []string
	DurationSeconds int
	Sound           bool
	Size            string
	Model           string
}

// Status - нормализованный статус задачи.
type Status struct {
	JobID     string
	State     State
	Progress  int
	ResultURL string
	Error     string
	UpdatedAt time.Time
}

// Client - клиент провайдера асинхронных задач: создать задачу и опросить ее статус.
type Client interface {
	Kind() models.ProviderKind
	CreateTask(ctx context.Context, in Input) (Status, error)
	GetStatus(ctx context.Context, jobID string) (Status, error)
}
