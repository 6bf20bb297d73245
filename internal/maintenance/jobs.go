package maintenance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mnemo-ai/mnemo/internal/compaction"
	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/transcript"
)

const (
	defaultRepairSchedule  = "@hourly"
	defaultCompactSchedule = "@every 10m"
)

// RepairJob sweeps every session transcript and truncates partial final
// lines left by a crash mid-append.
type RepairJob struct {
	sessions    *session.Repository
	transcripts *transcript.Store
	schedule    string
	logger      *slog.Logger
}

// NewRepairJob creates the repair sweep. An empty schedule uses the default.
func NewRepairJob(sessions *session.Repository, transcripts *transcript.Store, schedule string, logger *slog.Logger) *RepairJob {
	if schedule == "" {
		schedule = defaultRepairSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RepairJob{
		sessions:    sessions,
		transcripts: transcripts,
		schedule:    schedule,
		logger:      logger.With("component", "maintenance.repair"),
	}
}

func (j *RepairJob) Name() string     { return "transcript-repair" }
func (j *RepairJob) Schedule() string { return j.schedule }

// Run repairs all known transcripts. Individual failures are logged and
// do not abort the sweep.
func (j *RepairJob) Run(ctx context.Context) error {
	list, err := j.sessions.List()
	if err != nil {
		return fmt.Errorf("maintenance: list sessions: %w", err)
	}

	var failed int
	for _, meta := range list {
		if err := ctx.Err(); err != nil {
			return err
		}
		repaired, err := j.transcripts.Repair(meta.ID)
		if err != nil {
			failed++
			j.logger.Error("transcript repair failed", "session", meta.ID, "error", err)
			continue
		}
		if repaired {
			j.logger.Warn("transcript repaired", "session", meta.ID)
		}
	}
	if failed > 0 {
		return fmt.Errorf("maintenance: %d of %d transcripts failed to repair", failed, len(list))
	}
	return nil
}

// CompactJob checks whether the main session's conversation has outgrown
// its token budget and compacts it if so.
type CompactJob struct {
	service       *compaction.Service
	sessions      *session.Repository
	transcripts   *transcript.Store
	conversations conversation.Store
	memories      memory.Store
	schedule      string
	logger        *slog.Logger
}

// NewCompactJob creates the auto-compaction check. An empty schedule uses
// the default.
func NewCompactJob(
	service *compaction.Service,
	sessions *session.Repository,
	transcripts *transcript.Store,
	conversations conversation.Store,
	memories memory.Store,
	schedule string,
	logger *slog.Logger,
) *CompactJob {
	if schedule == "" {
		schedule = defaultCompactSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CompactJob{
		service:       service,
		sessions:      sessions,
		transcripts:   transcripts,
		conversations: conversations,
		memories:      memories,
		schedule:      schedule,
		logger:        logger.With("component", "maintenance.compact"),
	}
}

func (j *CompactJob) Name() string     { return "auto-compact" }
func (j *CompactJob) Schedule() string { return j.schedule }

// Run compacts the main session when it exceeds the threshold.
func (j *CompactJob) Run(ctx context.Context) error {
	main, err := j.sessions.GetMain()
	if err != nil {
		return fmt.Errorf("maintenance: resolve main session: %w", err)
	}

	conv, err := j.conversations.Load(ctx, main.ID)
	if err != nil {
		return fmt.Errorf("maintenance: load conversation: %w", err)
	}

	if !j.service.ShouldCompact(main, conv) {
		return nil
	}

	result, err := j.service.Compact(ctx, compaction.Request{
		Session:       main,
		Conversation:  conv,
		Memory:        j.memories,
		Transcripts:   j.transcripts,
		Sessions:      j.sessions,
		Conversations: j.conversations,
	})
	if err != nil {
		return fmt.Errorf("maintenance: compact session %s: %w", main.ID, err)
	}
	if result.Compacted {
		j.logger.Info("main session compacted",
			"session", main.ID,
			"messages_compacted", result.MessagesCompacted,
		)
	}
	return nil
}
