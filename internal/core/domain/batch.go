package domain

import "time"

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskError   TaskStatus = "error"
)

// TaskResult records what the pipeline produced for one document.
type TaskResult struct {
	Category          string               `json:"category"`
	Source            ClassificationSource `json:"source"`
	TemplateID        string               `json:"template_id,omitempty"`
	SuggestedFilename string               `json:"suggested_filename"`
	TargetPath        string               `json:"target_path"`
	Tags              []string             `json:"tags,omitempty"`
	Skipped           bool                 `json:"skipped,omitempty"`
}

type BatchTask struct {
	ID             string      `json:"id"`
	Path           string      `json:"path"`
	TargetCategory string      `json:"target_category,omitempty"`
	Status         TaskStatus  `json:"status"`
	Error          string      `json:"error,omitempty"`
	Result         *TaskResult `json:"result,omitempty"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	FinishedAt     *time.Time  `json:"finished_at,omitempty"`
}

// BatchJob is mutated only by the batch processor and persisted after every
// state transition so a restart can resume not-yet-done tasks.
type BatchJob struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Status     JobStatus   `json:"status"`
	Tasks      []BatchTask `json:"tasks"`
	CreatedAt  time.Time   `json:"created_at"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

func (j *BatchJob) Counts() (done, failed, pending int) {
	for _, t := range j.Tasks {
		switch t.Status {
		case TaskDone:
			done++
		case TaskError:
			failed++
		default:
			pending++
		}
	}
	return done, failed, pending
}

// Resumable reports whether a job interrupted mid-run still has work left.
func (j *BatchJob) Resumable() bool {
	if j.Status != JobRunning && j.Status != JobPending {
		return false
	}
	_, _, pending := j.Counts()
	return pending > 0
}
