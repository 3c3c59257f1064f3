package models_test

import (
	"errors"
	"fmt"
	"testing"

	"storyreel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_AppendKeepsOrderAndVersions(t *testing.T) {
	h := models.NewHistory[string]()
	h.Append("b", "b1")
	h.Append("a", "a1")
	h.Append("b", "b2")

	assert.Equal(t, []string{"b", "a"}, h.IDs())
	assert.Equal(t, []string{"b1", "b2"}, h.Versions("b"))

	latest, ok := h.Latest("b")
	require.True(t, ok)
	assert.Equal(t, "b2", latest)

	_, ok = h.Latest("missing")
	assert.False(t, ok)
}

func TestHistory_VersionsReturnsCopy(t *testing.T) {
	h := models.NewHistory[int]()
	h.Append("x", 1)

	vs := h.Versions("x")
	vs[0] = 42

	latest, _ := h.Latest("x")
	assert.Equal(t, 1, latest)
}

func TestHistory_EntriesRoundTrip(t *testing.T) {
	h := models.NewHistory[int]()
	h.Append("z", 1)
	h.Append("y", 2)
	h.Append("z", 3)

	restored := models.HistoryFromEntries(h.Entries())

	assert.Equal(t, h.IDs(), restored.IDs())
	assert.Equal(t, h.Entries(), restored.Entries())
}

func TestProviderError_IsErrProvider(t *testing.T) {
	var err error = &models.ProviderError{Provider: "video", Op: "create task", StatusCode: 500, Message: "boom"}
	wrapped := fmt.Errorf("generate video: %w", err)

	assert.True(t, errors.Is(wrapped, models.ErrProvider))

	var pe *models.ProviderError
	require.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, 500, pe.StatusCode)
	assert.Contains(t, wrapped.Error(), "http 500")
}

func TestScenePipeline_CompletedSlotsSkipsArchived(t *testing.T) {
	img := &models.GeneratedImage{URL: "u"}
	p := &models.ScenePipeline{Slots: []*models.SceneSlot{
		{ID: "1", Status: models.SlotCompleted, GeneratedImage: img},
		{ID: "2", Status: models.SlotCompleted, GeneratedImage: img, Archived: true},
		{ID: "3", Status: models.SlotPending},
	}}

	completed := p.CompletedSlots()
	require.Len(t, completed, 1)
	assert.Equal(t, "1", completed[0].ID)
}

func TestSceneSlot_CloneIsDeep(t *testing.T) {
	desc := "override"
	s := &models.SceneSlot{ID: "1", AssignedCharacterIDs: []string{"c1"}, DescriptionOverride: &desc}

	c := s.Clone()
	c.AssignedCharacterIDs[0] = "c2"
	*c.DescriptionOverride = "changed"

	assert.Equal(t, "c1", s.AssignedCharacterIDs[0])
	assert.Equal(t, "override", s.Description())
}
