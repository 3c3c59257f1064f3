// Package pipeline содержит конечные автоматы генерации: изображения сцен и видео.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyreel/internal/models"
	"storyreel/internal/provider/imagegen"
)

// CharacterLookup ищет текущую версию персонажа. Реализуется *models.Project.
type CharacterLookup interface {
	Character(id string) (models.Character, bool)
}

// SceneEngine выполняет операции над ScenePipeline. Сам пайплайн хранит вызывающая сторона.
type SceneEngine struct {
	images imagegen.Generator
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewSceneEngine(images imagegen.Generator, logger *zap.Logger) *SceneEngine {
	return &SceneEngine{
		images: images,
		logger: logger.Named("SceneEngine"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Initialize строит пайплайн: по одному pending-слоту на каждую сцену истории.
func (e *SceneEngine) Initialize(story *models.Story, storyVersionIndex int) (*models.ScenePipeline, error) {
	if story == nil {
		return nil, fmt.Errorf("initialize scene pipeline: %w: no current story", models.ErrInvalidState)
	}
	now := e.now()
	p := &models.ScenePipeline{
		SourceStoryVersionIndex: storyVersionIndex,
		Slots:                   make([]*models.SceneSlot, 0, len(story.Scenes)),
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	for i, scene := range story.Scenes {
		p.Slots = append(p.Slots, &models.SceneSlot{
			ID:                   e.newID(),
			SourceSceneIndex:     i,
			SourceScene:          scene,
			AssignedCharacterIDs: []string{},
			Status:               models.SlotPending,
		})
	}
	e.logger.Info("Scene pipeline initialized", zap.Int("slots", len(p.Slots)), zap.Int("story_version", storyVersionIndex))
	return p, nil
}

func (e *SceneEngine) slot(p *models.ScenePipeline, slotID string) (*models.SceneSlot, error) {
	if p == nil {
		return nil, fmt.Errorf("slot %s: %w: scene pipeline not initialized", slotID, models.ErrInvalidState)
	}
	s, ok := p.Slot(slotID)
	if !ok {
		return nil, fmt.Errorf("slot %s: %w", slotID, models.ErrNotFound)
	}
	return s, nil
}

func (e *SceneEngine) touch(p *models.ScenePipeline) {
	p.UpdatedAt = e.now()
}

// AssignCharacters заменяет список персонажей слота. Статус слота не меняется.
func (e *SceneEngine) AssignCharacters(p *models.ScenePipeline, chars CharacterLookup, slotID string, characterIDs []string) error {
	s, err := e.slot(p, slotID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(characterIDs))
	for _, id := range characterIDs {
		if _, ok := chars.Character(id); !ok {
			return fmt.Errorf("assign character %s to slot %s: %w", id, slotID, models.ErrNotFound)
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	s.AssignedCharacterIDs = ids
	e.touch(p)
	return nil
}

// SetDescriptionOverride задает или (при nil) снимает переопределение описания.
func (e *SceneEngine) SetDescriptionOverride(p *models.ScenePipeline, slotID string, description *string) error {
	s, err := e.slot(p, slotID)
	if err != nil {
		return err
	}
	if description != nil {
		d := *description
		s.DescriptionOverride = &d
	} else {
		s.DescriptionOverride = nil
	}
	e.touch(p)
	return nil
}

// AddSlot добавляет ручной слот после afterSlotID или в конец, если он пуст.
func (e *SceneEngine) AddSlot(p *models.ScenePipeline, afterSlotID string) (*models.SceneSlot, error) {
	if p == nil {
		return nil, fmt.Errorf("add slot: %w: scene pipeline not initialized", models.ErrInvalidState)
	}
	pos := len(p.Slots)
	if afterSlotID != "" {
		i := p.IndexOf(afterSlotID)
		if i < 0 {
			return nil, fmt.Errorf("add slot after %s: %w", afterSlotID, models.ErrNotFound)
		}
		pos = i + 1
	}
	s := &models.SceneSlot{
		ID:                   e.newID(),
		SourceSceneIndex:     models.ManualSceneIndex,
		AssignedCharacterIDs: []string{},
		Status:               models.SlotPending,
	}
	p.Slots = slices.Insert(p.Slots, pos, s)
	e.touch(p)
	return s, nil
}

// CloneSlot вставляет копию слота сразу после исходного: те же сцена, персонажи и описание, без изображения.
func (e *SceneEngine) CloneSlot(p *models.ScenePipeline, slotID string) (*models.SceneSlot, error) {
	src, err := e.slot(p, slotID)
	if err != nil {
		return nil, err
	}
	c := src.Clone()
	c.ID = e.newID()
	c.Status = models.SlotPending
	c.GeneratedImage = nil
	c.ComposedDescription = ""
	c.Error = ""
	c.Archived = false
	p.Slots = slices.Insert(p.Slots, p.IndexOf(slotID)+1, c)
	e.touch(p)
	return c, nil
}

// ArchiveSlot скрывает слот из пакетной генерации и видео, не удаляя его.
func (e *SceneEngine) ArchiveSlot(p *models.ScenePipeline, slotID string, archived bool) error {
	s, err := e.slot(p, slotID)
	if err != nil {
		return err
	}
	s.Archived = archived
	e.touch(p)
	return nil
}

func (e *SceneEngine) RemoveSlot(p *models.ScenePipeline, slotID string) error {
	if _, err := e.slot(p, slotID); err != nil {
		return err
	}
	i := p.IndexOf(slotID)
	p.Slots = slices.Delete(p.Slots, i, i+1)
	e.touch(p)
	return nil
}

// Reorder переставляет слоты. ids должны совпадать с текущим набором id без пропусков и повторов.
func (e *SceneEngine) Reorder(p *models.ScenePipeline, ids []string) error {
	if p == nil {
		return fmt.Errorf("reorder slots: %w: scene pipeline not initialized", models.ErrInvalidState)
	}
	if len(ids) != len(p.Slots) {
		return fmt.Errorf("reorder slots: %w: expected %d ids, got %d", models.ErrInvalidInput, len(p.Slots), len(ids))
	}
	byID := make(map[string]*models.SceneSlot, len(p.Slots))
	for _, s := range p.Slots {
		byID[s.ID] = s
	}
	reordered := make([]*models.SceneSlot, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return fmt.Errorf("reorder slots: %w: unknown or repeated id %s", models.ErrInvalidInput, id)
		}
		delete(byID, id)
		reordered = append(reordered, s)
	}
	p.Slots = reordered
	e.touch(p)
	return nil
}

// ComposePrompt собирает промпт слота: описание плюс описания назначенных персонажей.
func (e *SceneEngine) ComposePrompt(s *models.SceneSlot, chars CharacterLookup) string {
	prompt := strings.TrimSpace(s.Description())
	var parts []string
	for _, id := range s.AssignedCharacterIDs {
		c, ok := chars.Character(id)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", c.Name, c.PromptDescription()))
	}
	if len(parts) == 0 {
		return prompt
	}
	return prompt + "\n\nCharacters in scene: " + strings.Join(parts, "; ")
}

// referenceURLs возвращает изображение первого назначенного персонажа, у которого оно есть.
func referenceURLs(s *models.SceneSlot, chars CharacterLookup) []string {
	for _, id := range s.AssignedCharacterIDs {
		if c, ok := chars.Character(id); ok && c.Image != nil && c.Image.URL != "" {
			return []string{c.Image.URL}
		}
	}
	return nil
}

// GenerateSlot генерирует изображение слота. Ошибка провайдера не возвращается,
// а записывается в слот (status=failed, error). Возвращаются только ошибки поиска слота.
func (e *SceneEngine) GenerateSlot(ctx context.Context, p *models.ScenePipeline, chars CharacterLookup, slotID, owner string) error {
	s, err := e.slot(p, slotID)
	if err != nil {
		return err
	}
	log := e.logger.With(zap.String("slot_id", slotID))

	prompt := e.ComposePrompt(s, chars)
	s.Status = models.SlotGenerating
	s.Error = ""
	e.touch(p)

	res, err := e.images.Generate(ctx, imagegen.Request{Prompt: prompt, ReferenceURLs: referenceURLs(s, chars), Owner: owner})
	if err == nil && res.URL == "" {
		err = fmt.Errorf("%w: no image url", models.ErrInvalidProviderResponse)
	}
	if err != nil {
		s.Status = models.SlotFailed
		s.Error = err.Error()
		e.touch(p)
		log.Warn("Slot generation failed", zap.Error(err))
		return nil
	}

	s.Status = models.SlotCompleted
	s.ComposedDescription = prompt
	s.GeneratedImage = &models.GeneratedImage{
		URL:           res.URL,
		Prompt:        prompt,
		RevisedPrompt: res.RevisedPrompt,
		CreatedAt:     e.now(),
	}
	e.touch(p)
	log.Info("Slot image generated")
	return nil
}

// SlotDone вызывается после генерации каждого слота пакета. Ошибка прерывает пакет.
type SlotDone func(slot *models.SceneSlot) error

// GenerateAllPending последовательно генерирует все pending-слоты, кроме архивных.
// Возвращает копии обработанных слотов (в том числе failed); ошибка только при отмене ctx или из done.
func (e *SceneEngine) GenerateAllPending(ctx context.Context, p *models.ScenePipeline, chars CharacterLookup, owner string, done SlotDone) ([]*models.SceneSlot, error) {
	if p == nil {
		return nil, fmt.Errorf("generate pending slots: %w: scene pipeline not initialized", models.ErrInvalidState)
	}
	var pending []string
	for _, s := range p.Slots {
		if s.Status == models.SlotPending && !s.Archived {
			pending = append(pending, s.ID)
		}
	}
	updated := make([]*models.SceneSlot, 0, len(pending))
	for _, id := range pending {
		if err := ctx.Err(); err != nil {
			return updated, fmt.Errorf("generate pending slots: %w", err)
		}
		if err := e.GenerateSlot(ctx, p, chars, id, owner); err != nil {
			return updated, err
		}
		s, err := e.slot(p, id)
		if err != nil {
			return updated, err
		}
		if done != nil {
			if err := done(s); err != nil {
				return updated, err
			}
		}
		updated = append(updated, s.Clone())
	}
	return updated, nil
}

// RegenerateSlot сбрасывает слот в pending и генерирует заново.
func (e *SceneEngine) RegenerateSlot(ctx context.Context, p *models.ScenePipeline, chars CharacterLookup, slotID, owner string) error {
	s, err := e.slot(p, slotID)
	if err != nil {
		return err
	}
	s.Status = models.SlotPending
	s.GeneratedImage = nil
	s.ComposedDescription = ""
	s.Error = ""
	return e.GenerateSlot(ctx, p, chars, slotID, owner)
}
