package models

import "time"

// Project - данные агрегата сессии: история версий, артефакты и оба пайплайна.
type Project struct {
	ID                string
	Name              string
	StoryHistory      []*Story
	CurrentStoryIndex int // -1, пока нет ни одной версии
	Characters        []Character
	Scenes            []SceneArtifact
	CharacterHistory  *History[Character]
	SceneHistory      *History[SceneArtifact]
	ScenePipeline     *ScenePipeline
	VideoPipeline     *VideoPipeline
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewProject создает пустой проект.
func NewProject(id, name string, now time.Time) *Project {
	return &Project{
		ID:                id,
		Name:              name,
		CurrentStoryIndex: -1,
		CharacterHistory:  NewHistory[Character](),
		SceneHistory:      NewHistory[SceneArtifact](),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// CurrentStory возвращает текущую версию истории или nil.
func (p *Project) CurrentStory() *Story {
	if p.CurrentStoryIndex < 0 || p.CurrentStoryIndex >= len(p.StoryHistory) {
		return nil
	}
	return p.StoryHistory[p.CurrentStoryIndex]
}

// Character ищет текущую версию персонажа.
func (p *Project) Character(id string) (Character, bool) {
	for _, c := range p.Characters {
		if c.ID == id {
			return c, true
		}
	}
	return Character{}, false
}

func (p *Project) SceneArtifact(id string) (SceneArtifact, bool) {
	for _, s := range p.Scenes {
		if s.ID == id {
			return s, true
		}
	}
	return SceneArtifact{}, false
}

// Summary возвращает краткое описание проекта для индекса.
func (p *Project) Summary() ProjectSummary {
	s := ProjectSummary{
		ID:            p.ID,
		Name:          p.Name,
		StoryVersions: len(p.StoryHistory),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if st := p.CurrentStory(); st != nil {
		s.Title = st.Title
	}
	return s
}

// ProjectSummary - запись индексного документа.
type ProjectSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Title         string    `json:"title,omitempty"`
	StoryVersions int       `json:"storyVersions"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
