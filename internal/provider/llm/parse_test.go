package llm_test

import (
	"context"
	"errors"
	"testing"

	"storyreel/internal/models"
	"storyreel/internal/provider/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStory_FencedWithProse(t *testing.T) {
	raw := "Here is your story:\n```json\n{\"title\":\"Night Train\",\"scenes\":[{\"description\":\"A platform at midnight.\"},{\"number\":7,\"description\":\"The train departs.\"}]}\n```"

	story, err := llm.ParseStory(raw)

	require.NoError(t, err)
	assert.Equal(t, "Night Train", story.Title)
	require.Len(t, story.Scenes, 2)
	assert.Equal(t, 1, story.Scenes[0].Number)
	assert.Equal(t, 7, story.Scenes[1].Number)
	assert.Equal(t, raw, story.RawText)
}

func TestParseStory_Invalid(t *testing.T) {
	for _, raw := range []string{
		"no json here",
		`{"title": "broken", "scenes": [}`,
		`{"title": "empty", "scenes": []}`,
	} {
		_, err := llm.ParseStory(raw)
		assert.True(t, errors.Is(err, models.ErrInvalidProviderResponse), raw)
	}
}

func TestMockClient_ProducesParsableStory(t *testing.T) {
	text, _, err := llm.NewMockClient().GenerateText(context.Background(), "system", `a "quoted" harbor`, llm.GenerationParams{})
	require.NoError(t, err)

	story, err := llm.ParseStory(text)
	require.NoError(t, err)
	assert.Len(t, story.Scenes, 3)
	assert.Len(t, story.Characters, 2)
}
