package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"storyreel/internal/models"
)

// Record - известная процессу задача вместе с тегом провайдера.
type Record struct {
	JobID     string
	Kind      models.ProviderKind
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpdateCallback вызывается при каждом изменении записи о задаче.
type UpdateCallback func(rec Record)

// Registry хранит клиентов провайдеров по тегу и последние известные статусы задач.
type Registry struct {
	mu        sync.RWMutex
	clients   map[models.ProviderKind]Client
	records   map[string]*Record
	callbacks []UpdateCallback
	logger    *zap.Logger
	now       func() time.Time
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		clients: make(map[models.ProviderKind]Client),
		records: make(map[string]*Record),
		logger:  logger.Named("JobRegistry"),
		now:     time.Now,
	}
}

// Register добавляет клиента. Повторная регистрация того же тега заменяет клиента.
func (r *Registry) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.Kind()] = c
	r.logger.Info("Job provider registered", zap.String("provider", string(c.Kind())))
}

// Resolve возвращает клиента по тегу.
func (r *Registry) Resolve(kind models.ProviderKind) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[kind]
	if !ok {
		return nil, fmt.Errorf("job provider %q: %w", kind, models.ErrNotFound)
	}
	return c, nil
}

// OnUpdate регистрирует обработчик изменений статуса.
func (r *Registry) OnUpdate(cb UpdateCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// Submit создает задачу у провайдера kind и начинает ее отслеживать.
func (r *Registry) Submit(ctx context.Context, kind models.ProviderKind, in Input) (Status, error) {
	c, err := r.Resolve(kind)
	if err != nil {
		return Status{}, err
	}
	st, err := c.CreateTask(ctx, in)
	if err != nil {
		jobSubmissionsTotal.WithLabelValues(string(kind), "error").Inc()
		return Status{}, err
	}
	jobSubmissionsTotal.WithLabelValues(string(kind), "success").Inc()
	r.Track(kind, st)
	return st, nil
}

// Track сохраняет статус задачи и уведомляет подписчиков.
func (r *Registry) Track(kind models.ProviderKind, st Status) {
	now := r.now()
	r.mu.Lock()
	rec, ok := r.records[st.JobID]
	if !ok {
		rec = &Record{JobID: st.JobID, Kind: kind, CreatedAt: now}
		r.records[st.JobID] = rec
	}
	rec.Status = st
	rec.UpdatedAt = now
	snapshot := *rec
	callbacks := append([]UpdateCallback(nil), r.callbacks...)
	r.mu.Unlock()

	for _, cb := range callbacks {
		cb(snapshot)
	}
}

// Get возвращает последнюю известную запись о задаче.
func (r *Registry) Get(jobID string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[jobID]
	if !ok {
		return Record{}, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}
	return *rec, nil
}

// Poll выполняет один опрос задачи через клиента с тегом kind.
func (r *Registry) Poll(ctx context.Context, kind models.ProviderKind, jobID string) (Status, error) {
	c, err := r.Resolve(kind)
	if err != nil {
		return Status{}, err
	}
	st, err := c.GetStatus(ctx, jobID)
	if err != nil {
		jobPollsTotal.WithLabelValues(string(kind), "error").Inc()
		return Status{}, err
	}
	jobPollsTotal.WithLabelValues(string(kind), string(st.State)).Inc()
	r.Track(kind, st)
	return st, nil
}

// Refresh повторно опрашивает уже известную задачу, выбирая клиента по сохраненному тегу.
func (r *Registry) Refresh(ctx context.Context, jobID string) (Status, error) {
	rec, err := r.Get(jobID)
	if err != nil {
		return Status{}, err
	}
	return r.Poll(ctx, rec.Kind, jobID)
}

// Wait ожидает терминального состояния задачи и отслеживает промежуточные статусы.
func (r *Registry) Wait(ctx context.Context, kind models.ProviderKind, jobID string, opts WaitOptions) (Status, error) {
	c, err := r.Resolve(kind)
	if err != nil {
		return Status{}, err
	}
	onProgress := opts.OnProgress
	opts.OnProgress = func(st Status) {
		r.Track(kind, st)
		if onProgress != nil {
			onProgress(st)
		}
	}
	return WaitUntilTerminal(ctx, c, jobID, opts)
}

// Cleanup удаляет терминальные записи старше age.
func (r *Registry) Cleanup(age time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, rec := range r.records {
		if rec.Status.State.Terminal() && now.Sub(rec.UpdatedAt) > age {
			delete(r.records, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug("Terminal job records cleaned up", zap.Int("removed", removed))
	}
	return removed
}
