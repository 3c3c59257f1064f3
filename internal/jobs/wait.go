package jobs

import (
	"context"
	"fmt"
	"time"

	"storyreel/internal/models"
)

// WaitOptions задает параметры ожидания терминального состояния.
type WaitOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration
	Clock        Clock
	// OnProgress вызывается после каждого успешного опроса.
	OnProgress func(Status)
}

// VideoWaitDefaults - параметры ожидания видео-задач.
func VideoWaitDefaults() WaitOptions {
	return WaitOptions{PollInterval: 5 * time.Second, Timeout: 10 * time.Minute}
}

// ImageWaitDefaults - параметры ожидания задач генерации изображений.
func ImageWaitDefaults() WaitOptions {
	return WaitOptions{PollInterval: 3 * time.Second, Timeout: 2 * time.Minute}
}

func (o WaitOptions) withDefaults(fallback WaitOptions) WaitOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = fallback.PollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = fallback.Timeout
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	return o
}

// WaitUntilTerminal опрашивает задачу с фиксированным интервалом до терминального состояния.
// failed возвращается сразу как ErrGenerationFailed, без повторов. По истечении Timeout
// возвращается ErrGenerationTimeout независимо от последнего состояния.
// Отмена ctx прерывает только ожидание: удаленная задача продолжает выполняться.
func WaitUntilTerminal(ctx context.Context, c Client, jobID string, opts WaitOptions) (Status, error) {
	opts = opts.withDefaults(VideoWaitDefaults())
	kind := string(c.Kind())
	start := opts.Clock.Now()

	for {
		st, err := c.GetStatus(ctx, jobID)
		if err != nil {
			jobPollsTotal.WithLabelValues(kind, "error").Inc()
			return st, fmt.Errorf("poll job %s: %w", jobID, err)
		}
		jobPollsTotal.WithLabelValues(kind, string(st.State)).Inc()
		if opts.OnProgress != nil {
			opts.OnProgress(st)
		}

		switch st.State {
		case StateCompleted:
			jobOutcomesTotal.WithLabelValues(kind, "completed").Inc()
			return st, nil
		case StateFailed:
			jobOutcomesTotal.WithLabelValues(kind, "failed").Inc()
			msg := st.Error
			if msg == "" {
				msg = "provider reported failure"
			}
			return st, fmt.Errorf("job %s: %w: %s", jobID, models.ErrGenerationFailed, msg)
		}

		if elapsed := opts.Clock.Now().Sub(start); elapsed > opts.Timeout {
			jobOutcomesTotal.WithLabelValues(kind, "timeout").Inc()
			return st, fmt.Errorf("job %s after %s: %w", jobID, elapsed.Round(time.Second), models.ErrGenerationTimeout)
		}

		select {
		case <-ctx.Done():
			return st, fmt.Errorf("wait for job %s: %w", jobID, ctx.Err())
		case <-opts.Clock.After(opts.PollInterval):
		}
	}
}
