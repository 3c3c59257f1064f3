package session

import (
	"fmt"
	"time"

	"storyreel/internal/models"
)

// snapshotVersion - версия формата документа проекта.
const snapshotVersion = 1

// Snapshot - сериализуемое представление проекта. Истории артефактов хранятся
// явным списком id -> версии, чтобы порядок id переживал сохранение.
type Snapshot struct {
	Version           int                                         `json:"version"`
	ID                string                                      `json:"id"`
	Name              string                                      `json:"name"`
	StoryHistory      []*models.Story                             `json:"storyHistory"`
	CurrentStoryIndex int                                         `json:"currentStoryIndex"`
	Characters        []models.Character                          `json:"characters"`
	Scenes            []models.SceneArtifact                      `json:"scenes"`
	CharacterHistory  []models.HistoryEntry[models.Character]     `json:"characterHistory"`
	SceneHistory      []models.HistoryEntry[models.SceneArtifact] `json:"sceneHistory"`
	ScenePipeline     *models.ScenePipeline                       `json:"scenePipeline,omitempty"`
	VideoPipeline     *models.VideoPipeline                       `json:"videoPipeline,omitempty"`
	CreatedAt         time.Time                                   `json:"createdAt"`
	UpdatedAt         time.Time                                   `json:"updatedAt"`
}

// toSnapshot делает глубокую копию проекта.
func toSnapshot(p *models.Project) Snapshot {
	s := Snapshot{
		Version:           snapshotVersion,
		ID:                p.ID,
		Name:              p.Name,
		CurrentStoryIndex: p.CurrentStoryIndex,
		Characters:        cloneAll(p.Characters, models.Character.Clone),
		Scenes:            cloneAll(p.Scenes, models.SceneArtifact.Clone),
		CharacterHistory:  cloneEntries(p.CharacterHistory.Entries(), models.Character.Clone),
		SceneHistory:      cloneEntries(p.SceneHistory.Entries(), models.SceneArtifact.Clone),
		ScenePipeline:     p.ScenePipeline.Clone(),
		VideoPipeline:     p.VideoPipeline.Clone(),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	for _, st := range p.StoryHistory {
		s.StoryHistory = append(s.StoryHistory, st.Clone())
	}
	return s
}

// fromSnapshot восстанавливает проект и проверяет согласованность индексов.
func fromSnapshot(s Snapshot) (*models.Project, error) {
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("project %s: unsupported document version %d", s.ID, s.Version)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("project document: %w: missing id", models.ErrInvalidInput)
	}
	if s.CurrentStoryIndex < -1 || s.CurrentStoryIndex >= len(s.StoryHistory) {
		return nil, fmt.Errorf("project %s: story index %d out of range [-1, %d)", s.ID, s.CurrentStoryIndex, len(s.StoryHistory))
	}
	p := &models.Project{
		ID:                s.ID,
		Name:              s.Name,
		CurrentStoryIndex: s.CurrentStoryIndex,
		Characters:        cloneAll(s.Characters, models.Character.Clone),
		Scenes:            cloneAll(s.Scenes, models.SceneArtifact.Clone),
		CharacterHistory:  models.HistoryFromEntries(s.CharacterHistory),
		SceneHistory:      models.HistoryFromEntries(s.SceneHistory),
		ScenePipeline:     s.ScenePipeline.Clone(),
		VideoPipeline:     s.VideoPipeline.Clone(),
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
	for _, st := range s.StoryHistory {
		if st == nil {
			return nil, fmt.Errorf("project %s: %w: empty story version", s.ID, models.ErrInvalidInput)
		}
		p.StoryHistory = append(p.StoryHistory, st.Clone())
	}
	return p, nil
}

func cloneAll[T any](in []T, clone func(T) T) []T {
	if len(in) == 0 {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = clone(v)
	}
	return out
}

func cloneEntries[T any](in []models.HistoryEntry[T], clone func(T) T) []models.HistoryEntry[T] {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.HistoryEntry[T], len(in))
	for i, e := range in {
		out[i] = models.HistoryEntry[T]{ID: e.ID, Versions: cloneAll(e.Versions, clone)}
	}
	return out
}
