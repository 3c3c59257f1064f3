package imagegen

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storyreel/internal/jobs"
	"storyreel/internal/models"
)

// Reference генерирует изображение через асинхронного провайдера, когда есть референсы
// персонажей, и делегирует базовому генератору в остальных случаях.
type Reference struct {
	jobs     jobs.Client
	fallback Generator
	wait     jobs.WaitOptions
	logger   *zap.Logger
}

var _ Generator = (*Reference)(nil)

func NewReference(client jobs.Client, fallback Generator, wait jobs.WaitOptions, logger *zap.Logger) *Reference {
	return &Reference{jobs: client, fallback: fallback, wait: wait, logger: logger.Named("ReferenceImage")}
}

func (g *Reference) Generate(ctx context.Context, req Request) (Result, error) {
	if len(req.ReferenceURLs) == 0 {
		return g.fallback.Generate(ctx, req)
	}

	created, err := g.jobs.CreateTask(ctx, jobs.Input{Prompt: req.Prompt, ImageURLs: req.ReferenceURLs, Size: req.Size})
	if err != nil {
		return Result{}, err
	}
	log := g.logger.With(zap.String("job_id", created.JobID))
	log.Info("Reference image job submitted", zap.Int("references", len(req.ReferenceURLs)))

	opts := g.wait
	if opts.PollInterval <= 0 || opts.Timeout <= 0 {
		defaults := jobs.ImageWaitDefaults()
		if opts.PollInterval <= 0 {
			opts.PollInterval = defaults.PollInterval
		}
		if opts.Timeout <= 0 {
			opts.Timeout = defaults.Timeout
		}
	}
	st, err := jobs.WaitUntilTerminal(ctx, g.jobs, created.JobID, opts)
	if err != nil {
		log.Warn("Reference image job did not complete", zap.Error(err))
		return Result{}, err
	}
	if st.ResultURL == "" {
		return Result{}, fmt.Errorf("job %s: %w: completed without result url", created.JobID, models.ErrInvalidProviderResponse)
	}
	return Result{URL: st.ResultURL}, nil
}
