package storywriter_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"storyreel/internal/mocks"
	"storyreel/internal/models"
	"storyreel/internal/provider/llm"
	"storyreel/internal/storywriter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const twoScenes = `{"title":"Harbor","scenes":[{"number":1,"description":"Boats at dawn."},{"number":2,"description":"A storm."}]}`

func TestGenerate_ParsesStory(t *testing.T) {
	ai := mocks.NewMockAIClient(t)
	ai.On("GenerateText", mock.Anything, mock.Anything, mock.MatchedBy(func(in string) bool {
		return strings.Contains(in, "a harbor town") && strings.Contains(in, "Number of scenes: 2")
	}), mock.MatchedBy(func(p llm.GenerationParams) bool { return p.JSONMode })).
		Return(twoScenes, llm.UsageInfo{TotalTokens: 100}, nil).Once()

	w := storywriter.New(ai, llm.GenerationParams{}, zap.NewNop())
	story, err := w.Generate(context.Background(), "a harbor town", storywriter.Options{SceneCount: 2})

	require.NoError(t, err)
	assert.Equal(t, "Harbor", story.Title)
	assert.Len(t, story.Scenes, 2)
	assert.False(t, story.CreatedAt.IsZero())
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	w := storywriter.New(mocks.NewMockAIClient(t), llm.GenerationParams{}, zap.NewNop())

	_, err := w.Generate(context.Background(), "  ", storywriter.Options{})
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestImprove_InvalidResponse(t *testing.T) {
	ai := mocks.NewMockAIClient(t)
	ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("Sorry, I cannot do that.", llm.UsageInfo{}, nil).Once()

	w := storywriter.New(ai, llm.GenerationParams{}, zap.NewNop())
	_, err := w.Improve(context.Background(), &models.Story{Title: "x", Scenes: []models.StoryScene{{Number: 1}}}, "make it darker")

	assert.True(t, errors.Is(err, models.ErrInvalidProviderResponse))
}

func TestExpand_ProviderFailure(t *testing.T) {
	ai := mocks.NewMockAIClient(t)
	ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", llm.UsageInfo{}, fmt.Errorf("%w: timeout", llm.ErrAIGenerationFailed)).Once()

	w := storywriter.New(ai, llm.GenerationParams{}, zap.NewNop())
	_, err := w.Expand(context.Background(), &models.Story{Title: "x"})

	assert.True(t, errors.Is(err, models.ErrGenerationFailed))
}

func TestExpand_NoStory(t *testing.T) {
	w := storywriter.New(mocks.NewMockAIClient(t), llm.GenerationParams{}, zap.NewNop())

	_, err := w.Expand(context.Background(), nil)
	assert.True(t, errors.Is(err, models.ErrInvalidState))
}

func TestEnhanceDescription_TrimsText(t *testing.T) {
	ai := mocks.NewMockAIClient(t)
	ai.On("GenerateText", mock.Anything, mock.Anything, mock.MatchedBy(func(in string) bool {
		return strings.HasPrefix(in, "character: Mira")
	}), mock.Anything).Return("  A tall woman in a red cloak.\n", llm.UsageInfo{}, nil).Once()

	w := storywriter.New(ai, llm.GenerationParams{}, zap.NewNop())
	text, err := w.EnhanceDescription(context.Background(), "character", "Mira", "a woman")

	require.NoError(t, err)
	assert.Equal(t, "A tall woman in a red cloak.", text)
}
