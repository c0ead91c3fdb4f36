package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tenderprice/tenderprice/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogReindex rebuilds the denormalized catalog search text.
	TaskCatalogReindex = "catalog:reindex"
)

// CatalogReindexPayload carries the reason a rebuild was requested.
type CatalogReindexPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewCatalogReindexTask constructs an Asynq task.
func NewCatalogReindexTask(payload CatalogReindexPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogReindex, data), nil
}

// Reindexer recomputes search text for all catalog entries.
type Reindexer interface {
	Reindex(ctx context.Context) (int64, error)
}

// CatalogReindexJob processes TaskCatalogReindex tasks.
type CatalogReindexJob struct {
	service Reindexer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewCatalogReindexJob constructs the job.
func NewCatalogReindexJob(service Reindexer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogReindexJob {
	return &CatalogReindexJob{service: service, logger: logger, metrics: metrics}
}

// Handle runs one reindex pass.
func (j *CatalogReindexJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CatalogReindexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics.Track(TaskCatalogReindex)
	start := time.Now()
	updated, err := j.service.Reindex(ctx)
	if err != nil {
		j.log().Error("catalog reindex", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics.AddEntries(TaskCatalogReindex, updated)
	j.log().Info("catalog reindex complete",
		slog.Int64("entries", updated),
		slog.String("reason", payload.Reason),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(nil)
}

func (j *CatalogReindexJob) log() *slog.Logger {
	if j.logger != nil {
		return j.logger
	}
	return slog.Default()
}
