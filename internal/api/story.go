package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"storyreel/internal/models"
	"storyreel/internal/session"
	"storyreel/internal/storywriter"
)

type generateStoryRequest struct {
	Prompt     string `json:"prompt" binding:"required"`
	SceneCount int    `json:"sceneCount" binding:"min=0,max=20"`
	Style      string `json:"style"`
}

type improveStoryRequest struct {
	Notes string `json:"notes" binding:"required"`
}

type storyVersionRequest struct {
	Index *int `json:"index" binding:"required"`
}

type storyResponse struct {
	Story        *models.Story `json:"story"`
	VersionIndex int           `json:"versionIndex"`
}

func storyView(s *session.Session, story *models.Story) storyResponse {
	return storyResponse{Story: story, VersionIndex: s.Snapshot().CurrentStoryIndex}
}

func (h *Handler) currentStory(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		story := s.CurrentStory()
		if story == nil {
			return nil, fmt.Errorf("project %s has no story yet: %w", s.ID(), models.ErrNotFound)
		}
		return storyView(s, story), nil
	})
}

func (h *Handler) generateStory(c *gin.Context) {
	var req generateStoryRequest
	if !bindJSON(c, &req, false) {
		return
	}
	h.withProject(c, http.StatusCreated, func(s *session.Session) (any, error) {
		story, err := s.GenerateStory(c.Request.Context(), req.Prompt, storywriter.Options{SceneCount: req.SceneCount, Style: req.Style})
		if err != nil {
			return nil, err
		}
		return storyView(s, story), nil
	})
}

func (h *Handler) improveStory(c *gin.Context) {
	var req improveStoryRequest
	if !bindJSON(c, &req, false) {
		return
	}
	h.withProject(c, http.StatusCreated, func(s *session.Session) (any, error) {
		story, err := s.ImproveStory(c.Request.Context(), req.Notes)
		if err != nil {
			return nil, err
		}
		return storyView(s, story), nil
	})
}

func (h *Handler) expandStory(c *gin.Context) {
	h.withProject(c, http.StatusCreated, func(s *session.Session) (any, error) {
		story, err := s.ExpandStory(c.Request.Context())
		if err != nil {
			return nil, err
		}
		return storyView(s, story), nil
	})
}

func (h *Handler) revertStory(c *gin.Context) {
	h.truncateStory(c, (*session.Session).RevertToStory)
}

func (h *Handler) branchStory(c *gin.Context) {
	h.truncateStory(c, (*session.Session).BranchFromHistory)
}

func (h *Handler) truncateStory(c *gin.Context, op func(s *session.Session, ctx context.Context, i int) error) {
	var req storyVersionRequest
	if !bindJSON(c, &req, false) {
		return
	}
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		if err := op(s, c.Request.Context(), *req.Index); err != nil {
			return nil, err
		}
		return projectView(s), nil
	})
}

func (h *Handler) characterVersions(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return s.CharacterVersions(c.Param("itemId"))
	})
}

func (h *Handler) enhanceCharacter(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return s.EnhanceCharacter(c.Request.Context(), c.Param("itemId"))
	})
}

func (h *Handler) characterImage(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return s.GenerateCharacterImage(c.Request.Context(), c.Param("itemId"))
	})
}

func (h *Handler) sceneVersions(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return s.SceneVersions(c.Param("itemId"))
	})
}

func (h *Handler) enhanceScene(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return s.EnhanceScene(c.Request.Context(), c.Param("itemId"))
	})
}

func (h *Handler) sceneImage(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return s.GenerateSceneImage(c.Request.Context(), c.Param("itemId"))
	})
}
