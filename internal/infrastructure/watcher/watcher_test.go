package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mkoehler/docsort/internal/core/domain"
	"github.com/mkoehler/docsort/internal/core/ports"
)

type batchServiceFake struct {
	mu        sync.Mutex
	submitted []ports.TaskSpec
	notify    chan string
}

func newBatchServiceFake() *batchServiceFake {
	return &batchServiceFake{notify: make(chan string, 16)}
}

func (f *batchServiceFake) Submit(_ context.Context, name string, tasks []ports.TaskSpec) (string, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, tasks...)
	f.mu.Unlock()
	f.notify <- name
	return "job-1", nil
}

func (f *batchServiceFake) Status(context.Context, string) (*domain.BatchJob, error) { return nil, nil }
func (f *batchServiceFake) Cancel(context.Context, string) error                      { return nil }
func (f *batchServiceFake) List(context.Context, domain.JobStatus) ([]domain.BatchJob, error) {
	return nil, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitForSubmission(t *testing.T, fake *batchServiceFake) string {
	t.Helper()
	select {
	case name := <-fake.notify:
		return name
	case <-time.After(5 * time.Second):
		t.Fatal("no submission observed")
		return ""
	}
}

func TestWatcherSubmitsNewPDF(t *testing.T) {
	inbox := t.TempDir()
	fake := newBatchServiceFake()
	w := New(inbox, fake, 50*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watch a moment to attach before writing.
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(inbox, "neuer_scan.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	name := waitForSubmission(t, fake)
	if name != "inbox: neuer_scan.pdf" {
		t.Fatalf("job name = %q", name)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.submitted) != 1 || fake.submitted[0].Path != path {
		t.Fatalf("submitted = %+v", fake.submitted)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestWatcherIgnoresNonPDF(t *testing.T) {
	inbox := t.TempDir()
	fake := newBatchServiceFake()
	w := New(inbox, fake, 50*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(inbox, "notiz.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	select {
	case name := <-fake.notify:
		t.Fatalf("unexpected submission: %s", name)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherSubmitsExistingFilesOnStart(t *testing.T) {
	inbox := t.TempDir()
	path := filepath.Join(inbox, "liegengeblieben.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	fake := newBatchServiceFake()
	w := New(inbox, fake, 50*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	name := waitForSubmission(t, fake)
	if name != "inbox: liegengeblieben.pdf" {
		t.Fatalf("job name = %q", name)
	}
}
