package maintenance_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/compaction"
	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/maintenance"
	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/transcript"
)

// newIdleService returns a compaction service whose threshold is far
// above anything the tests produce.
func newIdleService() *compaction.Service {
	return compaction.NewService(nil, nil, compaction.Config{ContextWindowTokens: 1 << 20}, nil, nil)
}

type countingJob struct {
	name string
	runs chan struct{}
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return "@every 1h" }
func (j *countingJob) Run(context.Context) error {
	j.runs <- struct{}{}
	return nil
}

func TestScheduler_RejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	s := maintenance.NewScheduler(nil)
	j := &countingJob{name: "sweep", runs: make(chan struct{}, 1)}
	if err := s.RegisterJob(j); err != nil {
		t.Fatalf("RegisterJob returned unexpected error: %v", err)
	}
	if err := s.RegisterJob(j); err == nil {
		t.Error("expected an error registering a duplicate job name")
	}
}

type badScheduleJob struct{}

func (badScheduleJob) Name() string              { return "bad" }
func (badScheduleJob) Schedule() string          { return "not a schedule" }
func (badScheduleJob) Run(context.Context) error { return nil }

func TestScheduler_StartRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	s := maintenance.NewScheduler(nil)
	if err := s.RegisterJob(badScheduleJob{}); err != nil {
		t.Fatalf("RegisterJob returned unexpected error: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Fatal("expected Start to fail on an invalid schedule")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := maintenance.NewScheduler(nil)
	if err := s.RegisterJob(&countingJob{name: "sweep", runs: make(chan struct{}, 1)}); err != nil {
		t.Fatalf("RegisterJob returned unexpected error: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start returned unexpected error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop returned unexpected error: %v", err)
	}
}

func TestRepairJob_RepairsTruncatedTranscripts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := session.NewRepository(filepath.Join(dir, "sessions.json"), session.Defaults{})
	main, err := repo.GetMain()
	if err != nil {
		t.Fatalf("GetMain returned unexpected error: %v", err)
	}

	transcriptsDir := filepath.Join(dir, "transcripts")
	ts := transcript.NewStore(transcriptsDir)
	t.Cleanup(func() { _ = ts.Close() })

	if err := ts.Append(main.ID, transcript.NewSessionStartEntry(main.ID)); err != nil {
		t.Fatalf("Append returned unexpected error: %v", err)
	}
	_ = ts.Close()

	// Simulate a crash mid-append.
	path := ts.Path(main.ID)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		t.Fatalf("open transcript: %v", err)
	}
	if _, err := f.WriteString(`{"type":"message","ro`); err != nil {
		t.Fatalf("write partial line: %v", err)
	}
	_ = f.Close()

	job := maintenance.NewRepairJob(repo, ts, "", nil)
	if job.Schedule() == "" {
		t.Error("expected a default schedule")
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}

	entries, err := ts.Read(main.ID)
	if err != nil {
		t.Fatalf("Read returned unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected the partial line to be dropped, got %d entries", len(entries))
	}
}

func TestCompactJob_NoopUnderThreshold(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := session.NewRepository(filepath.Join(dir, "sessions.json"), session.Defaults{})
	ts := transcript.NewStore(filepath.Join(dir, "transcripts"))
	t.Cleanup(func() { _ = ts.Close() })
	convs := conversation.NewFileStore(filepath.Join(dir, "conversations"))

	job := maintenance.NewCompactJob(newIdleService(), repo, ts, convs, nil, "", nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}

	main, err := repo.GetMain()
	if err != nil {
		t.Fatalf("GetMain returned unexpected error: %v", err)
	}
	entries, err := ts.Read(main.ID)
	if err != nil {
		t.Fatalf("Read returned unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("a no-op check must not touch the transcript, got %d entries", len(entries))
	}
}
