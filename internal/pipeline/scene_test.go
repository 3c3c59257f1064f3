package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storyreel/internal/mocks"
	"storyreel/internal/models"
	"storyreel/internal/pipeline"
	"storyreel/internal/provider/imagegen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func threeSceneStory() *models.Story {
	return &models.Story{
		Title: "Lantern",
		Scenes: []models.StoryScene{
			{Number: 1, Description: "A dark village."},
			{Number: 2, Description: "A lantern is lit."},
			{Number: 3, Description: "The village glows."},
		},
	}
}

func projectWithCharacters() *models.Project {
	p := models.NewProject("proj-1", "Test", time.Now())
	p.Characters = []models.Character{
		{ID: "c1", Name: "Mira", Description: "a girl", EnhancedDescription: "a girl with a red scarf",
			Image: &models.GeneratedImage{URL: "https://img/mira.png"}},
		{ID: "c2", Name: "Oren", Description: "an old man"},
	}
	return p
}

func TestInitialize_CreatesPendingSlotPerScene(t *testing.T) {
	engine := pipeline.NewSceneEngine(mocks.NewMockImageGenerator(t), zap.NewNop())

	p, err := engine.Initialize(threeSceneStory(), 0)

	require.NoError(t, err)
	require.Len(t, p.Slots, 3)
	ids := map[string]bool{}
	for i, s := range p.Slots {
		assert.Equal(t, i, s.SourceSceneIndex)
		assert.Equal(t, models.SlotPending, s.Status)
		ids[s.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestInitialize_NoStory(t *testing.T) {
	engine := pipeline.NewSceneEngine(mocks.NewMockImageGenerator(t), zap.NewNop())

	_, err := engine.Initialize(nil, -1)
	assert.True(t, errors.Is(err, models.ErrInvalidState))
}

func TestGenerateSlot_ComposesPromptWithCharacters(t *testing.T) {
	images := mocks.NewMockImageGenerator(t)
	engine := pipeline.NewSceneEngine(images, zap.NewNop())
	proj := projectWithCharacters()
	p, err := engine.Initialize(threeSceneStory(), 0)
	require.NoError(t, err)
	slot := p.Slots[1]
	require.NoError(t, engine.AssignCharacters(p, proj, slot.ID, []string{"c2", "c1"}))
	assert.Equal(t, models.SlotPending, slot.Status)

	images.On("Generate", mock.Anything, mock.MatchedBy(func(r imagegen.Request) bool {
		return strings.HasPrefix(r.Prompt, "A lantern is lit.") &&
			strings.Contains(r.Prompt, "Characters in scene: Oren: an old man; Mira: a girl with a red scarf") &&
			len(r.ReferenceURLs) == 1 && r.ReferenceURLs[0] == "https://img/mira.png" &&
			r.Owner == "proj-1"
	})).Return(imagegen.Result{URL: "https://img/scene2.png", RevisedPrompt: "revised"}, nil).Once()

	require.NoError(t, engine.GenerateSlot(context.Background(), p, proj, slot.ID, "proj-1"))

	assert.Equal(t, models.SlotCompleted, slot.Status)
	require.NotNil(t, slot.GeneratedImage)
	assert.Equal(t, "https://img/scene2.png", slot.GeneratedImage.URL)
	assert.Equal(t, "revised", slot.GeneratedImage.RevisedPrompt)
	assert.Contains(t, slot.ComposedDescription, "Characters in scene")
}

func TestGenerateSlot_OverrideWinsAndErrorIsSwallowed(t *testing.T) {
	images := mocks.NewMockImageGenerator(t)
	engine := pipeline.NewSceneEngine(images, zap.NewNop())
	proj := projectWithCharacters()
	p, err := engine.Initialize(threeSceneStory(), 0)
	require.NoError(t, err)
	slot := p.Slots[0]
	override := "A foggy village at night."
	require.NoError(t, engine.SetDescriptionOverride(p, slot.ID, &override))

	images.On("Generate", mock.Anything, mock.MatchedBy(func(r imagegen.Request) bool {
		return r.Prompt == override
	})).Return(imagegen.Result{}, &models.ProviderError{Provider: "openai", Op: "create image", StatusCode: 429, Message: "rate limited"}).Once()

	err = engine.GenerateSlot(context.Background(), p, proj, slot.ID, "proj-1")

	require.NoError(t, err)
	assert.Equal(t, models.SlotFailed, slot.Status)
	assert.Contains(t, slot.Error, "rate limited")
	assert.Nil(t, slot.GeneratedImage)
}

func TestGenerateSlot_EmptyURLFails(t *testing.T) {
	images := mocks.NewMockImageGenerator(t)
	engine := pipeline.NewSceneEngine(images, zap.NewNop())
	p, err := engine.Initialize(threeSceneStory(), 0)
	require.NoError(t, err)
	images.On("Generate", mock.Anything, mock.Anything).Return(imagegen.Result{}, nil).Once()

	require.NoError(t, engine.GenerateSlot(context.Background(), p, projectWithCharacters(), p.Slots[0].ID, "proj-1"))
	assert.Equal(t, models.SlotFailed, p.Slots[0].Status)
}

func TestRegenerateSlot_ReplacesImageAndClearsError(t *testing.T) {
	images := mocks.NewMockImageGenerator(t)
	engine := pipeline.NewSceneEngine(images, zap.NewNop())
	proj := projectWithCharacters()
	p, err := engine.Initialize(threeSceneStory(), 0)
	require.NoError(t, err)
	slot := p.Slots[2]
	slot.Status = models.SlotFailed
	slot.Error = "old failure"
	slot.GeneratedImage = &models.GeneratedImage{URL: "https://img/old.png"}

	images.On("Generate", mock.Anything, mock.Anything).Return(imagegen.Result{URL: "https://img/new.png"}, nil).Once()

	require.NoError(t, engine.RegenerateSlot(context.Background(), p, proj, slot.ID, "proj-1"))

	assert.Equal(t, models.SlotCompleted, slot.Status)
	assert.Equal(t, "https://img/new.png", slot.GeneratedImage.URL)
	assert.Empty(t, slot.Error)
}

func TestGenerateAllPending_SkipsArchivedAndDone(t *testing.T) {
	images := mocks.NewMockImageGenerator(t)
	engine := pipeline.NewSceneEngine(images, zap.NewNop())
	proj := projectWithCharacters()
	p, err := engine.Initialize(threeSceneStory(), 0)
	require.NoError(t, err)
	require.NoError(t, engine.ArchiveSlot(p, p.Slots[0].ID, true))
	p.Slots[1].Status = models.SlotCompleted
	p.Slots[1].GeneratedImage = &models.GeneratedImage{URL: "https://img/done.png"}

	images.On("Generate", mock.Anything, mock.Anything).Return(imagegen.Result{URL: "https://img/3.png"}, nil).Once()

	var seen []string
	updated, err := engine.GenerateAllPending(context.Background(), p, proj, "proj-1", func(slot *models.SceneSlot) error {
		seen = append(seen, slot.ID)
		slot.GeneratedImage.URL = "https://blobs/3.png"
		return nil
	})

	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, []string{p.Slots[2].ID}, seen)
	assert.Equal(t, p.Slots[2].ID, updated[0].ID)
	assert.Equal(t, models.SlotCompleted, updated[0].Status)
	assert.Equal(t, "https://blobs/3.png", updated[0].GeneratedImage.URL)
	assert.Equal(t, models.SlotPending, p.Slots[0].Status)

	updated[0].GeneratedImage.URL = "changed"
	assert.Equal(t, "https://blobs/3.png", p.Slots[2].GeneratedImage.URL)
}

func TestGenerateAllPending_StopsOnCancel(t *testing.T) {
	engine := pipeline.NewSceneEngine(mocks.NewMockImageGenerator(t), zap.NewNop())
	p, err := engine.Initialize(threeSceneStory(), 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	updated, err := engine.GenerateAllPending(ctx, p, projectWithCharacters(), "proj-1", nil)

	assert.Empty(t, updated)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGenerateAllPending_CallbackErrorStopsBatch(t *testing.T) {
	images := mocks.NewMockImageGenerator(t)
	engine := pipeline.NewSceneEngine(images, zap.NewNop())
	p, err := engine.Initialize(threeSceneStory(), 0)
	require.NoError(t, err)
	images.On("Generate", mock.Anything, mock.Anything).Return(imagegen.Result{URL: "https://img/1.png"}, nil).Once()

	updated, err := engine.GenerateAllPending(context.Background(), p, projectWithCharacters(), "proj-1", func(*models.SceneSlot) error {
		return models.ErrNotFound
	})

	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.Empty(t, updated)
	assert.Equal(t, models.SlotCompleted, p.Slots[0].Status)
	assert.Equal(t, models.SlotPending, p.Slots[1].Status)
}

func TestSlotEditing(t *testing.T) {
	engine := pipeline.NewSceneEngine(mocks.NewMockImageGenerator(t), zap.NewNop())
	proj := projectWithCharacters()
	p, err := engine.Initialize(threeSceneStory(), 0)
	require.NoError(t, err)
	first, second, third := p.Slots[0].ID, p.Slots[1].ID, p.Slots[2].ID

	manual, err := engine.AddSlot(p, first)
	require.NoError(t, err)
	assert.True(t, manual.Manual())
	assert.Equal(t, manual.ID, p.Slots[1].ID)

	clone, err := engine.CloneSlot(p, third)
	require.NoError(t, err)
	assert.Equal(t, clone.ID, p.Slots[4].ID)
	assert.Equal(t, 2, clone.SourceSceneIndex)

	require.NoError(t, engine.RemoveSlot(p, manual.ID))
	require.NoError(t, engine.Reorder(p, []string{clone.ID, third, second, first}))
	assert.Equal(t, first, p.Slots[3].ID)

	assert.True(t, errors.Is(engine.Reorder(p, []string{first, second, third}), models.ErrInvalidInput))
	assert.True(t, errors.Is(engine.Reorder(p, []string{first, first, second, third}), models.ErrInvalidInput))
	assert.True(t, errors.Is(engine.RemoveSlot(p, "missing"), models.ErrNotFound))
	assert.True(t, errors.Is(engine.AssignCharacters(p, proj, first, []string{"ghost"}), models.ErrNotFound))
	assert.True(t, errors.Is(engine.AssignCharacters(p, proj, "missing", nil), models.ErrNotFound))

	_, err = engine.AddSlot(p, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
