package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkoehler/docsort/internal/core/domain"
	"github.com/mkoehler/docsort/internal/core/ports"
	"github.com/mkoehler/docsort/internal/core/usecase"
	"github.com/mkoehler/docsort/internal/core/workflow"
)

const defaultWorkers = 4

// Processor owns the batch job state machine. Jobs are persisted after every
// task transition so an interrupted run can be resumed by a later process.
// Task failures stay inside the task record; a job with failed tasks still
// finishes as completed.
type Processor struct {
	pipeline *usecase.DocumentPipeline
	repo     ports.JobRepository
	queue    ports.JobQueue
	workers  int
	logger   *slog.Logger
	clock    func() time.Time
	observer ports.ProcessObserver

	mu     sync.Mutex
	active map[string]*jobRun
}

type jobRun struct {
	cancelled bool
}

type nopObserver struct{}

func (nopObserver) StartDocument()                      {}
func (nopObserver) FinishDocument(time.Duration, error) {}
func (nopObserver) FinishJob(string)                    {}
func (nopObserver) ObserveQueueLag(time.Duration)       {}

type Option func(*Processor)

// WithQueue routes submissions through a job queue instead of running them
// in-process. The worker process subscribes on the other end.
func WithQueue(queue ports.JobQueue) Option {
	return func(p *Processor) { p.queue = queue }
}

func WithClock(clock func() time.Time) Option {
	return func(p *Processor) { p.clock = clock }
}

func WithObserver(observer ports.ProcessObserver) Option {
	return func(p *Processor) { p.observer = observer }
}

func NewProcessor(pipeline *usecase.DocumentPipeline, repo ports.JobRepository, workers int, logger *slog.Logger, opts ...Option) *Processor {
	if workers <= 0 {
		workers = defaultWorkers
	}
	p := &Processor{
		pipeline: pipeline,
		repo:     repo,
		workers:  workers,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
		observer: nopObserver{},
		active:   make(map[string]*jobRun),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit persists a pending job and hands it to the worker side. Without a
// queue the job runs on a background goroutine of this process.
func (p *Processor) Submit(ctx context.Context, name string, specs []ports.TaskSpec) (string, error) {
	if len(specs) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("no tasks"))
	}
	tasks := make([]domain.BatchTask, 0, len(specs))
	for i, spec := range specs {
		if spec.Path == "" {
			return "", domain.WrapError(domain.ErrInvalidInput, "submit batch", fmt.Errorf("task %d: empty path", i))
		}
		tasks = append(tasks, domain.BatchTask{
			ID:             uuid.NewString(),
			Path:           spec.Path,
			TargetCategory: spec.TargetCategory,
			Status:         domain.TaskPending,
		})
	}

	job := &domain.BatchJob{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    domain.JobPending,
		Tasks:     tasks,
		CreatedAt: p.clock(),
	}
	if err := p.repo.Create(ctx, job); err != nil {
		return "", domain.WrapError(domain.ErrPersistence, "submit batch", err)
	}
	p.logger.Info("batch_submitted", "job_id", job.ID, "name", name, "tasks", len(tasks))

	if p.queue != nil {
		if err := p.queue.PublishJobSubmitted(ctx, job.ID); err != nil {
			return "", fmt.Errorf("publish job: %w", err)
		}
		return job.ID, nil
	}
	go func() {
		if err := p.Run(context.Background(), job.ID); err != nil {
			p.logger.Error("batch_run_failed", "job_id", job.ID, "error", err.Error())
		}
	}()
	return job.ID, nil
}

func (p *Processor) Status(ctx context.Context, jobID string) (*domain.BatchJob, error) {
	return p.repo.GetByID(ctx, jobID)
}

func (p *Processor) List(ctx context.Context, status domain.JobStatus) ([]domain.BatchJob, error) {
	return p.repo.List(ctx, status)
}

// Cancel is cooperative: a running job stops dispatching new tasks, in-flight
// tasks finish and are recorded. A job running in another process is
// cancelled through its stored status, which the dispatch loop re-reads and
// which Save never overwrites. Cancelling an already finished job is a no-op.
func (p *Processor) Cancel(ctx context.Context, jobID string) error {
	p.mu.Lock()
	run, running := p.active[jobID]
	if running {
		run.cancelled = true
	}
	p.mu.Unlock()
	if running {
		p.logger.Info("batch_cancel_requested", "job_id", jobID)
		return nil
	}

	job, err := p.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	switch job.Status {
	case domain.JobPending, domain.JobRunning:
		job.Status = domain.JobCancelled
		now := p.clock()
		job.FinishedAt = &now
		if err := p.repo.Save(ctx, job); err != nil {
			return domain.WrapError(domain.ErrPersistence, "cancel batch", err)
		}
		p.logger.Info("batch_cancelled", "job_id", jobID)
	}
	return nil
}

// Run executes every not-yet-done task of a job through a bounded worker
// pool. Calling Run on a finished job is a no-op, so queue redeliveries are
// harmless.
func (p *Processor) Run(ctx context.Context, jobID string) error {
	job, err := p.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != domain.JobPending && job.Status != domain.JobRunning {
		return nil
	}

	run := &jobRun{}
	p.mu.Lock()
	if _, dup := p.active[jobID]; dup {
		p.mu.Unlock()
		return nil
	}
	p.active[jobID] = run
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.active, jobID)
		p.mu.Unlock()
	}()

	eng, err := p.pipeline.WorkflowEngine(ctx)
	if err != nil {
		return p.failJob(ctx, job, fmt.Errorf("workflow snapshot: %w", err))
	}

	var jobMu sync.Mutex
	now := p.clock()
	job.Status = domain.JobRunning
	if job.StartedAt == nil {
		job.StartedAt = &now
		p.observer.ObserveQueueLag(now.Sub(job.CreatedAt))
	}
	// Tasks left running by a crashed run are re-queued; their move either
	// already happened (and the retry records an error) or never started.
	for i := range job.Tasks {
		if job.Tasks[i].Status == domain.TaskRunning {
			job.Tasks[i].Status = domain.TaskPending
		}
	}
	if err := p.repo.Save(ctx, job); err != nil {
		return domain.WrapError(domain.ErrPersistence, "start batch", err)
	}
	p.logger.Info("batch_started", "job_id", job.ID, "tasks", len(job.Tasks), "workers", p.workers)

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				p.runTask(ctx, job, &jobMu, i, eng)
			}
		}()
	}

dispatch:
	for i := range job.Tasks {
		if job.Tasks[i].Status != domain.TaskPending {
			continue
		}
		if p.cancelRequested(ctx, run, job.ID) || ctx.Err() != nil {
			break dispatch
		}
		indices <- i
	}
	close(indices)
	wg.Wait()

	jobMu.Lock()
	defer jobMu.Unlock()
	finished := p.clock()
	job.FinishedAt = &finished
	p.mu.Lock()
	cancelled := run.cancelled
	p.mu.Unlock()
	if cancelled || ctx.Err() != nil {
		job.Status = domain.JobCancelled
	} else {
		job.Status = domain.JobCompleted
	}
	if err := p.repo.Save(ctx, job); err != nil {
		return domain.WrapError(domain.ErrPersistence, "finish batch", err)
	}
	p.observer.FinishJob(string(job.Status))
	done, failed, pending := job.Counts()
	p.logger.Info("batch_finished",
		"job_id", job.ID,
		"status", string(job.Status),
		"done", done,
		"failed", failed,
		"pending", pending,
	)
	return nil
}

// ResumeUnfinished re-runs every job an earlier process left behind. Called
// once on worker startup.
func (p *Processor) ResumeUnfinished(ctx context.Context) error {
	jobs, err := p.repo.ListUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("list unfinished jobs: %w", err)
	}
	for i := range jobs {
		job := jobs[i]
		if !job.Resumable() {
			continue
		}
		p.logger.Info("batch_resuming", "job_id", job.ID)
		go func(id string) {
			if err := p.Run(ctx, id); err != nil {
				p.logger.Error("batch_resume_failed", "job_id", id, "error", err.Error())
			}
		}(job.ID)
	}
	return nil
}

func (p *Processor) runTask(ctx context.Context, job *domain.BatchJob, jobMu *sync.Mutex, i int, eng *workflow.Engine) {
	jobMu.Lock()
	task := &job.Tasks[i]
	started := p.clock()
	task.Status = domain.TaskRunning
	task.StartedAt = &started
	p.save(ctx, job)
	spec := ports.TaskSpec{Path: task.Path, TargetCategory: task.TargetCategory}
	jobMu.Unlock()

	p.observer.StartDocument()
	result, err := p.pipeline.Process(ctx, spec, eng)
	p.observer.FinishDocument(p.clock().Sub(started), err)

	jobMu.Lock()
	defer jobMu.Unlock()
	finished := p.clock()
	task.FinishedAt = &finished
	if err != nil {
		task.Status = domain.TaskError
		task.Error = err.Error()
		p.logger.Warn("batch_task_failed", "job_id", job.ID, "task_id", task.ID, "path", task.Path, "error", err.Error())
	} else {
		task.Status = domain.TaskDone
		task.Result = &result
	}
	p.save(ctx, job)
}

// cancelRequested reports whether the job should stop dispatching. The local
// flag only covers Cancel calls within this process; an API process cancels a
// worker-run job by writing the cancelled status to the repository, so the
// stored status is checked between dispatches as well. A failed read does not
// cancel the run.
func (p *Processor) cancelRequested(ctx context.Context, run *jobRun, jobID string) bool {
	p.mu.Lock()
	cancelled := run.cancelled
	p.mu.Unlock()
	if cancelled {
		return true
	}
	stored, err := p.repo.GetByID(ctx, jobID)
	if err != nil {
		p.logger.Warn("batch_cancel_check_failed", "job_id", jobID, "error", err.Error())
		return false
	}
	if stored.Status != domain.JobCancelled {
		return false
	}
	p.mu.Lock()
	run.cancelled = true
	p.mu.Unlock()
	return true
}

// save persists the current job state. A persistence hiccup must not lose the
// in-memory transition, so it is logged and the run continues.
func (p *Processor) save(ctx context.Context, job *domain.BatchJob) {
	if err := p.repo.Save(ctx, job); err != nil {
		p.logger.Error("batch_save_failed", "job_id", job.ID, "error", err.Error())
	}
}

func (p *Processor) failJob(ctx context.Context, job *domain.BatchJob, cause error) error {
	job.Status = domain.JobFailed
	now := p.clock()
	job.FinishedAt = &now
	if err := p.repo.Save(ctx, job); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
