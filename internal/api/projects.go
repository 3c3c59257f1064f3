package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storyreel/internal/models"
	"storyreel/internal/session"
)

type createProjectRequest struct {
	Name string `json:"name"`
}

type renameProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

type listProjectsResponse struct {
	Projects []models.ProjectSummary `json:"projects"`
	Current  string                  `json:"current,omitempty"`
}

// projectResponse - полный документ проекта и признак устаревшего пайплайна сцен.
type projectResponse struct {
	session.Snapshot
	ScenePipelineStale bool `json:"scenePipelineStale"`
}

func projectView(s *session.Session) projectResponse {
	return projectResponse{Snapshot: s.Snapshot(), ScenePipelineStale: s.ScenePipelineStale()}
}

func (h *Handler) listProjects(c *gin.Context) {
	resp := listProjectsResponse{Projects: h.manager.List()}
	if cur, err := h.manager.Current(c.Request.Context()); err == nil {
		resp.Current = cur.ID()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createProject(c *gin.Context) {
	var req createProjectRequest
	if !bindJSON(c, &req, true) {
		return
	}
	s, err := h.manager.Create(c.Request.Context(), req.Name)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, s.Summary())
}

func (h *Handler) currentProject(c *gin.Context) {
	s, err := h.manager.Current(c.Request.Context())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	var resp projectResponse
	err = h.manager.WithSession(c.Request.Context(), s.ID(), func(s *session.Session) error {
		resp = projectView(s)
		return nil
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getProject(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return projectView(s), nil
	})
}

func (h *Handler) renameProject(c *gin.Context) {
	var req renameProjectRequest
	if !bindJSON(c, &req, false) {
		return
	}
	if err := h.manager.Rename(c.Request.Context(), c.Param("id"), req.Name); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return s.Summary(), nil
	})
}

func (h *Handler) deleteProject(c *gin.Context) {
	if err := h.manager.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) switchProject(c *gin.Context) {
	s, err := h.manager.Switch(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s.Summary())
}

func (h *Handler) saveProject(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		if err := s.Save(c.Request.Context()); err != nil {
			return nil, err
		}
		return s.Summary(), nil
	})
}
