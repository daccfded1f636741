package ports

import (
	"context"

	"github.com/mkoehler/docsort/internal/core/domain"
)

// DocumentEngine is the single-document, synchronous surface exposed to the
// web layer.
type DocumentEngine interface {
	Classify(ctx context.Context, path string) (domain.ClassificationResult, error)
	SuggestFilename(ctx context.Context, path string) (domain.FilenameSuggestion, error)
	MatchTemplate(ctx context.Context, path string) (*domain.TemplateMatch, error)
	EvaluateWorkflow(ctx context.Context, doc domain.Document, cls domain.ClassificationResult, tm *domain.TemplateMatch) ([]domain.Action, error)
}

// TaskSpec describes one document in a batch submission.
type TaskSpec struct {
	Path           string `json:"path"`
	TargetCategory string `json:"target_category,omitempty"`
}

// BatchService is the durable multi-document surface.
type BatchService interface {
	Submit(ctx context.Context, name string, tasks []TaskSpec) (string, error)
	Status(ctx context.Context, jobID string) (*domain.BatchJob, error)
	Cancel(ctx context.Context, jobID string) error
	List(ctx context.Context, status domain.JobStatus) ([]domain.BatchJob, error)
}
