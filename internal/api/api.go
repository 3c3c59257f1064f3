// Package api - HTTP-интерфейс студии поверх session.Manager.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"storyreel/internal/session"
)

// Handler обслуживает запросы к проектам. Все обращения к проекту идут через Manager.WithSession.
type Handler struct {
	manager *session.Manager
	logger  *zap.Logger
	// maxWait ограничивает длительность запроса ожидания видео.
	maxWait time.Duration
}

func NewHandler(manager *session.Manager, maxWait time.Duration, logger *zap.Logger) *Handler {
	if maxWait <= 0 {
		maxWait = 10 * time.Minute
	}
	return &Handler{manager: manager, logger: logger.Named("APIHandler"), maxWait: maxWait}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	projects := router.Group("/projects")
	{
		projects.GET("", h.listProjects)
		projects.POST("", h.createProject)
		projects.GET("/current", h.currentProject)
		projects.GET("/:id", h.getProject)
		projects.PATCH("/:id", h.renameProject)
		projects.DELETE("/:id", h.deleteProject)
		projects.POST("/:id/switch", h.switchProject)
		projects.POST("/:id/save", h.saveProject)

		projects.GET("/:id/story", h.currentStory)
		projects.POST("/:id/story/generate", h.generateStory)
		projects.POST("/:id/story/improve", h.improveStory)
		projects.POST("/:id/story/expand", h.expandStory)
		projects.POST("/:id/story/revert", h.revertStory)
		projects.POST("/:id/story/branch", h.branchStory)

		projects.GET("/:id/characters/:itemId/versions", h.characterVersions)
		projects.POST("/:id/characters/:itemId/enhance", h.enhanceCharacter)
		projects.POST("/:id/characters/:itemId/image", h.characterImage)
		projects.GET("/:id/scenes/:itemId/versions", h.sceneVersions)
		projects.POST("/:id/scenes/:itemId/enhance", h.enhanceScene)
		projects.POST("/:id/scenes/:itemId/image", h.sceneImage)

		slots := projects.Group("/:id/pipeline/scenes")
		slots.GET("", h.getScenePipeline)
		slots.POST("", h.initScenePipeline)
		slots.POST("/generate-pending", h.generatePendingSlots)
		slots.PUT("/order", h.reorderSlots)
		slots.POST("/slots", h.addSlot)
		slots.DELETE("/slots/:slotId", h.removeSlot)
		slots.PUT("/slots/:slotId/characters", h.assignCharacters)
		slots.PUT("/slots/:slotId/description", h.setSlotDescription)
		slots.POST("/slots/:slotId/clone", h.cloneSlot)
		slots.POST("/slots/:slotId/archive", h.archiveSlot)
		slots.POST("/slots/:slotId/generate", h.generateSlot)
		slots.POST("/slots/:slotId/regenerate", h.regenerateSlot)

		video := projects.Group("/:id/pipeline/video")
		video.GET("", h.getVideoPipeline)
		video.POST("", h.initVideoPipeline)
		video.POST("/generate", h.generateVideo)
		video.POST("/status", h.checkVideoStatus)
		video.POST("/wait", h.waitForVideo)
		video.POST("/reset", h.resetVideo)
	}
}

// withProject выполняет fn под блокировкой проекта из пути и отдает результат как JSON.
func (h *Handler) withProject(c *gin.Context, status int, fn func(s *session.Session) (any, error)) {
	var out any
	err := h.manager.WithSession(c.Request.Context(), c.Param("id"), func(s *session.Session) error {
		var err error
		out, err = fn(s)
		return err
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	if out == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(status, out)
}

// bindJSON разбирает тело запроса. Пустое тело допустимо только при optional.
func bindJSON(c *gin.Context, dst any, optional bool) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	badRequest(c, "Invalid request data: "+err.Error())
	return false
}

// RouterConfig - параметры HTTP-роутера.
type RouterConfig struct {
	Env            string
	AllowedOrigins []string
	// BlobRoot - каталог локального blob-хранилища, отдается по /blobs. Пусто - не отдается.
	BlobRoot string
	// Metrics - middleware метрик gin. nil отключает сбор метрик запросов.
	Metrics *ginprometheus.Prometheus
}

// NewRouter собирает gin.Engine: логирование, CORS, метрики, /health и маршруты проектов.
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(GinZapLogger(logger))
	router.Use(gin.Recovery())
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.HandlerFunc())
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", requestIDHeader}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.BlobRoot != "" {
		router.Static("/blobs", cfg.BlobRoot)
	}

	h.RegisterRoutes(router)
	return router
}
