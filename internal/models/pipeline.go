package models

import "time"

// SlotStatus - состояние слота генерации сцены.
type SlotStatus string

const (
	SlotPending    SlotStatus = "pending"
	SlotGenerating SlotStatus = "generating"
	SlotCompleted  SlotStatus = "completed"
	SlotFailed     SlotStatus = "failed"
)

// ManualSceneIndex помечает слот, добавленный вручную, а не из сцены истории.
const ManualSceneIndex = -1

// SceneSlot - единица генерации изображения сцены.
type SceneSlot struct {
	ID                   string          `json:"id"`
	SourceSceneIndex     int             `json:"sourceSceneIndex"`
	SourceScene          StoryScene      `json:"sourceScene"`
	AssignedCharacterIDs []string        `json:"assignedCharacterIds"`
	DescriptionOverride  *string         `json:"descriptionOverride,omitempty"`
	Status               SlotStatus      `json:"status"`
	GeneratedImage       *GeneratedImage `json:"generatedImage,omitempty"`
	ComposedDescription  string          `json:"composedDescription,omitempty"`
	Error                string          `json:"error,omitempty"`
	Archived             bool            `json:"archived,omitempty"`
}

// Manual сообщает, добавлен ли слот вручную.
func (s *SceneSlot) Manual() bool {
	return s.SourceSceneIndex == ManualSceneIndex
}

// Description возвращает переопределенное описание, если оно задано.
func (s *SceneSlot) Description() string {
	if s.DescriptionOverride != nil {
		return *s.DescriptionOverride
	}
	return s.SourceScene.Description
}

func (s *SceneSlot) Clone() *SceneSlot {
	c := *s
	c.AssignedCharacterIDs = append([]string{}, s.AssignedCharacterIDs...)
	if s.DescriptionOverride != nil {
		d := *s.DescriptionOverride
		c.DescriptionOverride = &d
	}
	c.GeneratedImage = s.GeneratedImage.Clone()
	return &c
}

// ScenePipeline - набор слотов, построенный из конкретной версии истории.
type ScenePipeline struct {
	SourceStoryVersionIndex int          `json:"sourceStoryVersionIndex"`
	Slots                   []*SceneSlot `json:"slots"`
	CreatedAt               time.Time    `json:"createdAt"`
	UpdatedAt               time.Time    `json:"updatedAt"`
}

// Slot ищет слот по id.
func (p *ScenePipeline) Slot(id string) (*SceneSlot, bool) {
	i := p.IndexOf(id)
	if i < 0 {
		return nil, false
	}
	return p.Slots[i], true
}

// IndexOf возвращает позицию слота или -1.
func (p *ScenePipeline) IndexOf(id string) int {
	if p == nil {
		return -1
	}
	for i, s := range p.Slots {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// CompletedSlots возвращает готовые неархивные слоты в текущем порядке.
func (p *ScenePipeline) CompletedSlots() []*SceneSlot {
	if p == nil {
		return nil
	}
	var out []*SceneSlot
	for _, s := range p.Slots {
		if s.Status == SlotCompleted && s.GeneratedImage != nil && !s.Archived {
			out = append(out, s)
		}
	}
	return out
}

func (p *ScenePipeline) Clone() *ScenePipeline {
	if p == nil {
		return nil
	}
	c := *p
	c.Slots = make([]*SceneSlot, len(p.Slots))
	for i, s := range p.Slots {
		c.Slots[i] = s.Clone()
	}
	return &c
}

// VideoStatus - состояние видео-пайплайна.
type VideoStatus string

const (
	VideoIdle       VideoStatus = "idle"
	VideoGenerating VideoStatus = "generating"
	VideoCompleted  VideoStatus = "completed"
	VideoFailed     VideoStatus = "failed"
)

// ProviderKind - тег провайдера асинхронных задач. По нему клиент выбирается при опросе статуса.
type ProviderKind string

const (
	ProviderMock     ProviderKind = "mock"
	ProviderVideo    ProviderKind = "video"
	ProviderRefImage ProviderKind = "ref-image"
)

// VideoSceneThumbnail - снимок готового слота на момент создания видео-пайплайна.
type VideoSceneThumbnail struct {
	ID          string `json:"id"`
	SceneNumber int    `json:"sceneNumber"`
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description"`
}

type VideoResult struct {
	URL         string    `json:"url"`
	JobID       string    `json:"jobId"`
	CompletedAt time.Time `json:"completedAt"`
}

// VideoPipeline отслеживает одну видео-задачу и ее итог.
type VideoPipeline struct {
	Status          VideoStatus           `json:"status"`
	CurrentJobID    string                `json:"currentJobId,omitempty"`
	Provider        ProviderKind          `json:"provider,omitempty"`
	Progress        int                   `json:"progress"`
	ResultVideo     *VideoResult          `json:"resultVideo,omitempty"`
	Error           string                `json:"error,omitempty"`
	SceneThumbnails []VideoSceneThumbnail `json:"sceneThumbnails"`
	ComposedPrompt  string                `json:"composedPrompt,omitempty"`
	Title           string                `json:"title,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

func (v *VideoPipeline) Clone() *VideoPipeline {
	if v == nil {
		return nil
	}
	c := *v
	c.SceneThumbnails = append([]VideoSceneThumbnail(nil), v.SceneThumbnails...)
	if v.ResultVideo != nil {
		r := *v.ResultVideo
		c.ResultVideo = &r
	}
	return &c
}
