package models

import "time"

// Story - одна неизменяемая версия истории. Любая правка создает новую версию.
type Story struct {
	Title        string           `json:"title"`
	Scenes       []StoryScene     `json:"scenes"`
	Characters   []StoryCharacter `json:"characters,omitempty"`
	Locations    []StoryLocation  `json:"locations,omitempty"`
	SceneVisuals []SceneVisual    `json:"sceneVisuals,omitempty"`
	RawText      string           `json:"rawText"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// StoryScene - сцена истории в том виде, в каком ее вернула языковая модель.
type StoryScene struct {
	Number      int    `json:"number"`
	Description string `json:"description"`
	Dialogue    string `json:"dialogue,omitempty"`
	Action      string `json:"action,omitempty"`
}

type StoryCharacter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Role        string `json:"role,omitempty"`
}

type StoryLocation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SceneVisual - подсказка по визуальному ряду сцены (кадр, свет, настроение).
type SceneVisual struct {
	SceneNumber int    `json:"sceneNumber"`
	Shot        string `json:"shot,omitempty"`
	Lighting    string `json:"lighting,omitempty"`
	Mood        string `json:"mood,omitempty"`
}

// Scene возвращает сцену по позиции или false, если позиции нет.
func (s *Story) Scene(index int) (StoryScene, bool) {
	if s == nil || index < 0 || index >= len(s.Scenes) {
		return StoryScene{}, false
	}
	return s.Scenes[index], true
}

// Clone делает глубокую копию версии истории.
func (s *Story) Clone() *Story {
	if s == nil {
		return nil
	}
	c := *s
	c.Scenes = append([]StoryScene(nil), s.Scenes...)
	c.Characters = append([]StoryCharacter(nil), s.Characters...)
	c.Locations = append([]StoryLocation(nil), s.Locations...)
	c.SceneVisuals = append([]SceneVisual(nil), s.SceneVisuals...)
	return &c
}
