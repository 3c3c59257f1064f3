package models

import "time"

// GeneratedImage - результат генерации изображения. Хранится по значению.
type GeneratedImage struct {
	URL           string    `json:"url"`
	Path          string    `json:"path,omitempty"` // относительный путь в хранилище blob, если изображение скачано
	Prompt        string    `json:"prompt"`
	RevisedPrompt string    `json:"revisedPrompt,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (g *GeneratedImage) Clone() *GeneratedImage {
	if g == nil {
		return nil
	}
	c := *g
	return &c
}

// Character - персонаж текущей версии истории.
type Character struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	EnhancedDescription string          `json:"enhancedDescription,omitempty"`
	Image               *GeneratedImage `json:"image,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// PromptDescription возвращает улучшенное описание, а при его отсутствии исходное.
func (c Character) PromptDescription() string {
	if c.EnhancedDescription != "" {
		return c.EnhancedDescription
	}
	return c.Description
}

func (c Character) Clone() Character {
	c.Image = c.Image.Clone()
	return c
}

// SceneArtifact - сцена как самостоятельный артефакт с собственной историей правок.
type SceneArtifact struct {
	ID                  string          `json:"id"`
	SceneNumber         int             `json:"sceneNumber"`
	Description         string          `json:"description"`
	EnhancedDescription string          `json:"enhancedDescription,omitempty"`
	Image               *GeneratedImage `json:"image,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
}

func (s SceneArtifact) PromptDescription() string {
	if s.EnhancedDescription != "" {
		return s.EnhancedDescription
	}
	return s.Description
}

func (s SceneArtifact) Clone() SceneArtifact {
	s.Image = s.Image.Clone()
	return s
}
