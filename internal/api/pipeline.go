package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storyreel/internal/jobs"
	"storyreel/internal/models"
	"storyreel/internal/pipeline"
	"storyreel/internal/session"
)

type assignCharactersRequest struct {
	CharacterIDs []string `json:"characterIds"`
}

// setDescriptionRequest: null в description снимает переопределение.
type setDescriptionRequest struct {
	Description *string `json:"description"`
}

type addSlotRequest struct {
	AfterSlotID string `json:"afterSlotId"`
}

type archiveSlotRequest struct {
	Archived *bool `json:"archived"`
}

type reorderSlotsRequest struct {
	SlotIDs []string `json:"slotIds" binding:"required"`
}

type generatePendingResponse struct {
	Slots    []*models.SceneSlot   `json:"slots"`
	Pipeline *models.ScenePipeline `json:"pipeline"`
}

type initVideoRequest struct {
	Title string `json:"title"`
}

// generateVideoRequest: пустой prompt - промпт из миниатюр, отсутствующий sound - значение по умолчанию.
type generateVideoRequest struct {
	Provider        string `json:"provider"`
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"durationSeconds" binding:"min=0"`
	Sound           *bool  `json:"sound"`
	ImageURL        string `json:"imageUrl"`
	AspectRatio     string `json:"aspectRatio"`
}

type waitVideoRequest struct {
	TimeoutSeconds      int `json:"timeoutSeconds" binding:"min=0"`
	PollIntervalSeconds int `json:"pollIntervalSeconds" binding:"min=0"`
}

func requireScenePipeline(s *session.Session) (*models.ScenePipeline, error) {
	p := s.ScenePipeline()
	if p == nil {
		return nil, fmt.Errorf("project %s: %w: scene pipeline not initialized", s.ID(), models.ErrNotFound)
	}
	return p, nil
}

func (h *Handler) getScenePipeline(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return requireScenePipeline(s)
	})
}

func (h *Handler) initScenePipeline(c *gin.Context) {
	h.withProject(c, http.StatusCreated, func(s *session.Session) (any, error) {
		return s.InitializeScenePipeline(c.Request.Context())
	})
}

func (h *Handler) assignCharacters(c *gin.Context) {
	var req assignCharactersRequest
	if !bindJSON(c, &req, false) {
		return
	}
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		if err := s.AssignCharacters(c.Request.Context(), c.Param("slotId"), req.CharacterIDs); err != nil {
			return nil, err
		}
		return requireScenePipeline(s)
	})
}

func (h *Handler) setSlotDescription(c *gin.Context) {
	var req setDescriptionRequest
	if !bindJSON(c, &req, false) {
		return
	}
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		if err := s.SetSlotDescription(c.Request.Context(), c.Param("slotId"), req.Description); err != nil {
			return nil, err
		}
		return requireScenePipeline(s)
	})
}

func (h *Handler) addSlot(c *gin.Context) {
	var req addSlotRequest
	if !bindJSON(c, &req, true) {
		return
	}
	h.withProject(c, http.StatusCreated, func(s *session.Session) (any, error) {
		return s.AddSlot(c.Request.Context(), req.AfterSlotID)
	})
}

func (h *Handler) cloneSlot(c *gin.Context) {
	h.withProject(c, http.StatusCreated, func(s *session.Session) (any, error) {
		return s.CloneSlot(c.Request.Context(), c.Param("slotId"))
	})
}

func (h *Handler) archiveSlot(c *gin.Context) {
	var req archiveSlotRequest
	if !bindJSON(c, &req, true) {
		return
	}
	archived := req.Archived == nil || *req.Archived
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		if err := s.ArchiveSlot(c.Request.Context(), c.Param("slotId"), archived); err != nil {
			return nil, err
		}
		return requireScenePipeline(s)
	})
}

func (h *Handler) removeSlot(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		if err := s.RemoveSlot(c.Request.Context(), c.Param("slotId")); err != nil {
			return nil, err
		}
		return requireScenePipeline(s)
	})
}

func (h *Handler) reorderSlots(c *gin.Context) {
	var req reorderSlotsRequest
	if !bindJSON(c, &req, false) {
		return
	}
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		if err := s.ReorderSlots(c.Request.Context(), req.SlotIDs); err != nil {
			return nil, err
		}
		return requireScenePipeline(s)
	})
}

func (h *Handler) generateSlot(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return s.GenerateSlot(c.Request.Context(), c.Param("slotId"))
	})
}

func (h *Handler) regenerateSlot(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return s.RegenerateSlot(c.Request.Context(), c.Param("slotId"))
	})
}

func (h *Handler) generatePendingSlots(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		slots, err := s.GenerateAllPendingSlots(c.Request.Context())
		if err != nil {
			return nil, err
		}
		return generatePendingResponse{Slots: slots, Pipeline: s.ScenePipeline()}, nil
	})
}

// --- видео ---

func requireVideoPipeline(s *session.Session) (*models.VideoPipeline, error) {
	vp := s.VideoPipeline()
	if vp == nil {
		return nil, fmt.Errorf("project %s: %w: video pipeline not initialized", s.ID(), models.ErrNotFound)
	}
	return vp, nil
}

func (h *Handler) getVideoPipeline(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return requireVideoPipeline(s)
	})
}

func (h *Handler) initVideoPipeline(c *gin.Context) {
	var req initVideoRequest
	if !bindJSON(c, &req, true) {
		return
	}
	h.withProject(c, http.StatusCreated, func(s *session.Session) (any, error) {
		return s.InitializeVideoPipeline(c.Request.Context(), req.Title)
	})
}

// parseVideoProvider допускает только видео-провайдеров; пусто - провайдер по умолчанию.
func parseVideoProvider(raw string) (models.ProviderKind, bool) {
	switch kind := models.ProviderKind(raw); kind {
	case "", models.ProviderMock, models.ProviderVideo:
		return kind, true
	default:
		return "", false
	}
}

func (h *Handler) generateVideo(c *gin.Context) {
	var req generateVideoRequest
	if !bindJSON(c, &req, true) {
		return
	}
	kind, ok := parseVideoProvider(req.Provider)
	if !ok {
		badRequest(c, fmt.Sprintf("Unknown video provider %q", req.Provider))
		return
	}
	opts := pipeline.GenerateOptions{
		Provider:        kind,
		Prompt:          req.Prompt,
		DurationSeconds: req.DurationSeconds,
		Sound:           req.Sound,
		ImageURL:        req.ImageURL,
		AspectRatio:     req.AspectRatio,
	}
	h.withProject(c, http.StatusAccepted, func(s *session.Session) (any, error) {
		return s.GenerateVideo(c.Request.Context(), opts)
	})
}

func (h *Handler) checkVideoStatus(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return s.CheckVideoStatus(c.Request.Context())
	})
}

func (h *Handler) waitForVideo(c *gin.Context) {
	var req waitVideoRequest
	if !bindJSON(c, &req, true) {
		return
	}
	opts := jobs.WaitOptions{
		Timeout:      time.Duration(req.TimeoutSeconds) * time.Second,
		PollInterval: time.Duration(req.PollIntervalSeconds) * time.Second,
	}
	if opts.Timeout <= 0 || opts.Timeout > h.maxWait {
		opts.Timeout = h.maxWait
	}
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return s.WaitForVideo(c.Request.Context(), opts)
	})
}

func (h *Handler) resetVideo(c *gin.Context) {
	h.withProject(c, http.StatusOK, func(s *session.Session) (any, error) {
		return s.ResetVideo(c.Request.Context())
	})
}
