package ports

import (
	"context"
	"time"

	"github.com/mkoehler/docsort/internal/core/domain"
)

// TextExtractor turns a scanned PDF into raw text. Implementations cache per
// path and invalidate on mtime/size change.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// PreviewRenderer renders a small preview image for the UI layer.
type PreviewRenderer interface {
	RenderPreview(ctx context.Context, path string) ([]byte, error)
}

// InferenceRequest carries everything the AI service needs for one
// classification call.
type InferenceRequest struct {
	Text         string
	Filename     string
	Categories   []string
	TemplateHint string
}

type InferenceResponse struct {
	Category    string
	Subcategory string
	Confidence  float64
	Raw         string
}

// InferenceClient is the one network-bound operation of the engine; every
// call must carry a bounded deadline.
type InferenceClient interface {
	ClassifyText(ctx context.Context, req InferenceRequest) (InferenceResponse, error)
}

// FileService performs filesystem moves and exposes the category tree. The
// tree is strictly the set of valid classification targets.
type FileService interface {
	Move(ctx context.Context, sourcePath, targetPath string) error
	Delete(ctx context.Context, path string) error
	ListTree(ctx context.Context, root string) ([]domain.Category, error)
}

// JobRepository persists batch job state. Save must be safe to call after
// every task transition and must never replace a stored cancelled status
// with another one, so a cancel written by one process survives the saves
// of the process running the job. Load reconstructs in-memory state on
// process start.
type JobRepository interface {
	Create(ctx context.Context, job *domain.BatchJob) error
	Save(ctx context.Context, job *domain.BatchJob) error
	GetByID(ctx context.Context, id string) (*domain.BatchJob, error)
	List(ctx context.Context, status domain.JobStatus) ([]domain.BatchJob, error)
	ListUnfinished(ctx context.Context) ([]domain.BatchJob, error)
}

// RuleRepository persists user-authored workflow rules.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.WorkflowRule) error
	List(ctx context.Context) ([]domain.WorkflowRule, error)
	Delete(ctx context.Context, id string) error
}

// JobQueue broadcasts job submissions from the API process to the worker.
type JobQueue interface {
	PublishJobSubmitted(ctx context.Context, jobID string) error
	SubscribeJobSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// ProcessObserver receives batch processing telemetry. Implementations must
// be safe for concurrent use by the worker pool.
type ProcessObserver interface {
	StartDocument()
	FinishDocument(duration time.Duration, err error)
	FinishJob(status string)
	ObserveQueueLag(lag time.Duration)
}
