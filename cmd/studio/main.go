package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"storyreel/internal/api"
	"storyreel/internal/blobstore"
	"storyreel/internal/config"
	"storyreel/internal/jobs"
	"storyreel/internal/models"
	"storyreel/internal/notify"
	"storyreel/internal/pipeline"
	"storyreel/internal/provider/imagegen"
	"storyreel/internal/provider/llm"
	"storyreel/internal/provider/mockjob"
	"storyreel/internal/provider/refimage"
	"storyreel/internal/provider/videojob"
	"storyreel/internal/session"
	"storyreel/internal/storage"
	"storyreel/internal/storywriter"
	"storyreel/pkg/logger"
)

const (
	jobCleanupInterval = 10 * time.Minute
	jobRecordTTL       = time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	aiCfg, err := config.LoadAI()
	if err != nil {
		log.Fatalf("Failed to load AI config: %v", err)
	}

	lg, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()
	zap.ReplaceGlobals(lg)

	lg.Info("Starting storyreel studio",
		zap.String("env", cfg.AppEnv),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("blobs", cfg.Blob.Driver),
		zap.String("ai_client", aiCfg.ClientType),
		zap.String("image_provider", cfg.Image.Provider),
		zap.String("video_provider", cfg.Video.Provider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Хранилища ---
	store, err := storage.Open(ctx, cfg.Storage, lg)
	if err != nil {
		lg.Fatal("Failed to open document storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			lg.Error("Failed to close document storage", zap.Error(err))
		}
	}()

	blobs, blobRoot, err := setupBlobs(ctx, cfg.Blob, lg)
	if err != nil {
		lg.Fatal("Failed to initialize blob storage", zap.Error(err))
	}

	// --- Провайдеры ---
	ai, err := llm.NewAIClient(aiCfg, lg)
	if err != nil {
		lg.Fatal("Failed to create AI client", zap.Error(err))
	}
	temperature, maxTokens := aiCfg.Temperature, aiCfg.MaxTokens
	writer := storywriter.New(ai, llm.GenerationParams{Temperature: &temperature, MaxTokens: &maxTokens}, lg)

	registry := jobs.NewRegistry(lg)
	registry.Register(mockjob.New(mockjob.Config{Duration: cfg.Video.MockDuration, PlaceholderURL: cfg.Video.PlaceholderURL}, lg))
	if cfg.Video.APIKey != "" {
		registry.Register(videojob.New(videojob.Config{BaseURL: cfg.Video.BaseURL, APIKey: cfg.Video.APIKey, Model: cfg.Video.Model}, lg))
	}

	images := setupImages(cfg.Image, blobs, lg)
	if cfg.RefImage.Enabled {
		refClient := refimage.New(refimage.Config{BaseURL: cfg.RefImage.BaseURL, APIKey: cfg.RefImage.APIKey, Model: cfg.RefImage.Model}, lg)
		registry.Register(refClient)
		images = imagegen.NewReference(refClient, images, jobs.WaitOptions{
			PollInterval: cfg.RefImage.PollInterval,
			Timeout:      cfg.RefImage.Timeout,
		}, lg)
	}

	// --- Уведомления ---
	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.RabbitMQURL != "" {
		mq, err := notify.DialRabbitMQ(cfg.Notify.RabbitMQURL, cfg.Notify.Queue, lg)
		if err != nil {
			lg.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer func() {
			if err := mq.Close(); err != nil {
				lg.Error("Failed to close RabbitMQ notifier", zap.Error(err))
			}
		}()
		notifier = mq
	}
	registry.OnUpdate(notify.JobUpdates(notifier, lg))

	// --- Движки и сессии ---
	videoWait := jobs.WaitOptions{PollInterval: cfg.Video.PollInterval, Timeout: cfg.Video.Timeout}
	videoSound := cfg.Video.Sound
	videoDefaults := pipeline.GenerateOptions{
		Provider:        models.ProviderKind(cfg.Video.Provider),
		DurationSeconds: cfg.Video.Duration,
		Sound:           &videoSound,
	}
	manager, err := session.NewManager(ctx, &session.Deps{
		Writer:        writer,
		Images:        images,
		Scenes:        pipeline.NewSceneEngine(images, lg),
		Video:         pipeline.NewVideoEngine(registry, videoDefaults, videoWait, lg),
		Store:         store,
		Blobs:         blobs,
		Notifier:      notifier,
		KeyPrefix:     cfg.Storage.KeyPrefix,
		AutoSave:      cfg.AutoSave,
		PersistImages: cfg.PersistImages,
		Logger:        lg,
	})
	if err != nil {
		lg.Fatal("Failed to load projects", zap.Error(err))
	}

	go cleanupJobs(ctx, registry)

	// --- HTTP ---
	handler := api.NewHandler(manager, cfg.Video.Timeout, lg)
	router := api.NewRouter(handler, api.RouterConfig{
		Env:            cfg.AppEnv,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		BlobRoot:       blobRoot,
		Metrics:        ginprometheus.NewPrometheus("gin"),
	}, lg)

	// ожидание видео держит соединение до таймаута видео
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Video.Timeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("Starting HTTP server", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	lg.Info("Server exiting")
}

// setupBlobs возвращает blob-хранилище и, для локального, его корень для раздачи по /blobs.
func setupBlobs(ctx context.Context, cfg config.BlobConfig, lg *zap.Logger) (blobstore.Store, string, error) {
	switch cfg.Driver {
	case "s3":
		s3, err := blobstore.NewS3(ctx, blobstore.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			Prefix:        cfg.S3Prefix,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.PublicBaseURL,
		}, lg)
		return s3, "", err
	case "local", "":
		local, err := blobstore.NewLocal(cfg.LocalRoot, cfg.PublicBaseURL, lg)
		if err != nil {
			return nil, "", err
		}
		return local, local.Root(), nil
	default:
		return nil, "", fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

func setupImages(cfg config.ImageConfig, blobs blobstore.Store, lg *zap.Logger) imagegen.Generator {
	switch cfg.Provider {
	case "openai":
		return imagegen.NewOpenAI(imagegen.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.Model,
			Size:    cfg.Size,
			Quality: cfg.Quality,
			Style:   cfg.Style,
		}, lg)
	case "sana":
		return imagegen.NewSana(imagegen.SanaConfig{
			BaseURL:           cfg.SanaBaseURL,
			Timeout:           time.Duration(cfg.SanaTimeoutSec) * time.Second,
			Ratio:             cfg.SanaRatio,
			PromptStyleSuffix: cfg.PromptStyleSuffix,
		}, blobs, lg)
	default:
		lg.Info("Using mock image generator", zap.String("configured", cfg.Provider))
		return imagegen.Mock{}
	}
}

// cleanupJobs периодически удаляет старые завершенные записи задач.
func cleanupJobs(ctx context.Context, registry *jobs.Registry) {
	ticker := time.NewTicker(jobCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registry.Cleanup(jobRecordTTL)
		}
	}
}
