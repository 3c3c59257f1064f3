package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"storyreel/internal/models"
)

const indexID = "_index"

// index - индексный документ: краткие сведения о проектах и текущий проект.
type index struct {
	Current  string                  `json:"current,omitempty"`
	Projects []models.ProjectSummary `json:"projects"`
}

func (ix *index) find(id string) int {
	for i, p := range ix.Projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

type entry struct {
	mu sync.Mutex
	s  *Session
}

// Manager ведет набор проектов: создание, загрузку, переименование, удаление и текущий проект.
type Manager struct {
	deps   *Deps
	logger *zap.Logger

	mu       sync.Mutex
	index    index
	sessions map[string]*entry
}

// NewManager загружает индекс. Отсутствующий индекс - пустой список проектов.
func NewManager(ctx context.Context, deps *Deps) (*Manager, error) {
	d := deps.withDefaults()
	m := &Manager{
		deps:     d,
		logger:   d.Logger.Named("SessionManager"),
		sessions: make(map[string]*entry),
	}
	if err := d.Store.Load(ctx, m.indexKey(), &m.index); err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("load project index: %w", err)
	}
	m.logger.Info("Project index loaded", zap.Int("projects", len(m.index.Projects)), zap.String("current", m.index.Current))
	return m, nil
}

func (m *Manager) indexKey() string {
	return documentKey(m.deps.KeyPrefix, indexID)
}

// saveIndexLocked пишет индекс. Вызывается под m.mu.
func (m *Manager) saveIndexLocked(ctx context.Context) error {
	if m.index.Projects == nil {
		m.index.Projects = []models.ProjectSummary{}
	}
	return m.deps.Store.Save(ctx, m.indexKey(), m.index)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// nameTakenLocked проверяет имя без учета регистра, исключая проект exceptID.
func (m *Manager) nameTakenLocked(name, exceptID string) bool {
	n := normalizeName(name)
	for _, p := range m.index.Projects {
		if p.ID != exceptID && normalizeName(p.Name) == n {
			return true
		}
	}
	return false
}

func (m *Manager) untitledLocked() string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("Untitled %d", i)
		if !m.nameTakenLocked(name, "") {
			return name
		}
	}
}

func (m *Manager) attach(s *Session) *entry {
	s.onSaved = m.updateSummary
	e := &entry{s: s}
	m.sessions[s.project.ID] = e
	return e
}

// updateSummary обновляет запись индекса после сохранения проекта.
// Проект без записи в индексе (удаленный) не добавляется обратно.
func (m *Manager) updateSummary(ctx context.Context, summary models.ProjectSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index.find(summary.ID)
	if i < 0 {
		return fmt.Errorf("project %s: %w: not in index", summary.ID, models.ErrNotFound)
	}
	m.index.Projects[i] = summary
	return m.saveIndexLocked(ctx)
}

// Create создает проект и делает его текущим. Пустое имя заменяется на "Untitled N".
func (m *Manager) Create(ctx context.Context, name string) (*Session, error) {
	m.mu.Lock()
	name = strings.TrimSpace(name)
	if name == "" {
		name = m.untitledLocked()
	} else if m.nameTakenLocked(name, "") {
		m.mu.Unlock()
		return nil, fmt.Errorf("create project %q: %w", name, models.ErrDuplicateName)
	}
	p := models.NewProject(m.deps.NewID(), name, m.deps.Now())
	s := newSession(m.deps, p)
	m.index.Projects = append(m.index.Projects, p.Summary())
	m.index.Current = p.ID
	if err := m.deps.Store.Save(ctx, s.key(), toSnapshot(p)); err != nil {
		m.index.Projects = m.index.Projects[:len(m.index.Projects)-1]
		m.mu.Unlock()
		return nil, fmt.Errorf("create project %q: %w", name, err)
	}
	err := m.saveIndexLocked(ctx)
	m.attach(s)
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("create project %q: update index: %w", name, err)
	}
	m.logger.Info("Project created", zap.String("project_id", p.ID), zap.String("name", name))
	return s, nil
}

// List возвращает сведения о проектах в порядке создания.
func (m *Manager) List() []models.ProjectSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ProjectSummary{}, m.index.Projects...)
}

func (m *Manager) entry(ctx context.Context, id string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok {
		return e, nil
	}
	var snap Snapshot
	if err := m.deps.Store.Load(ctx, documentKey(m.deps.KeyPrefix, id), &snap); err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	p, err := fromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	m.logger.Debug("Project loaded", zap.String("project_id", id))
	return m.attach(newSession(m.deps, p)), nil
}

// Get загружает проект. Неизвестный id - models.ErrNotFound.
// Сессию можно изменять только внутри WithSession.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	e, err := m.entry(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.s, nil
}

// WithSession выполняет fn под блокировкой проекта id.
func (m *Manager) WithSession(ctx context.Context, id string, fn func(s *Session) error) error {
	e, err := m.entry(ctx, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s.deleted {
		return fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	return fn(e.s)
}

// Rename меняет имя проекта с проверкой уникальности.
func (m *Manager) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("rename project %s: %w: empty name", id, models.ErrInvalidInput)
	}
	m.mu.Lock()
	taken := m.nameTakenLocked(name, id)
	m.mu.Unlock()
	if taken {
		return fmt.Errorf("rename project %s to %q: %w", id, name, models.ErrDuplicateName)
	}
	return m.WithSession(ctx, id, func(s *Session) error {
		s.project.Name = name
		s.project.UpdatedAt = m.deps.Now()
		return s.Save(ctx)
	})
}

// lockForDelete берет блокировку проекта (если он загружен) и затем m.mu.
// Порядок тот же, что у WithSession -> Save -> updateSummary.
func (m *Manager) lockForDelete(id string) *entry {
	m.mu.Lock()
	for {
		e, ok := m.sessions[id]
		if !ok {
			return nil
		}
		m.mu.Unlock()
		e.mu.Lock()
		m.mu.Lock()
		if m.sessions[id] == e {
			return e
		}
		e.mu.Unlock()
	}
}

// Delete удаляет документ проекта, его blob-ы и запись индекса.
// Ждет завершения операций над проектом; после удаления сессия больше не сохраняется.
func (m *Manager) Delete(ctx context.Context, id string) error {
	e := m.lockForDelete(id)
	if e != nil {
		defer e.mu.Unlock()
	}
	defer m.mu.Unlock()

	key := documentKey(m.deps.KeyPrefix, id)
	i := m.index.find(id)
	if i < 0 {
		var snap Snapshot
		if err := m.deps.Store.Load(ctx, key, &snap); err != nil {
			return fmt.Errorf("delete project %s: %w", id, err)
		}
	}

	if err := m.deps.Store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if m.deps.Blobs != nil {
		if err := m.deps.Blobs.DeleteOwner(ctx, id); err != nil {
			m.logger.Warn("Failed to delete project blobs", zap.String("project_id", id), zap.Error(err))
		}
	}
	if i >= 0 {
		m.index.Projects = append(m.index.Projects[:i], m.index.Projects[i+1:]...)
	}
	if m.index.Current == id {
		m.index.Current = ""
	}
	if e != nil {
		e.s.deleted = true
	}
	delete(m.sessions, id)
	if err := m.saveIndexLocked(ctx); err != nil {
		return fmt.Errorf("delete project %s: update index: %w", id, err)
	}
	m.logger.Info("Project deleted", zap.String("project_id", id))
	return nil
}

// Switch делает проект текущим.
func (m *Manager) Switch(ctx context.Context, id string) (*Session, error) {
	e, err := m.entry(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index.Current = id
	if err := m.saveIndexLocked(ctx); err != nil {
		return nil, fmt.Errorf("switch to project %s: %w", id, err)
	}
	return e.s, nil
}

// Current возвращает текущий проект или models.ErrNotFound, если он не выбран.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	id := m.index.Current
	m.mu.Unlock()
	if id == "" {
		return nil, fmt.Errorf("current project: %w", models.ErrNotFound)
	}
	return m.Get(ctx, id)
}
