package compaction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/tokens"
	"github.com/mnemo-ai/mnemo/internal/transcript"
)

// summaryLabel prefixes the synthetic system message carrying the summary.
const summaryLabel = "[Conversation Summary]\n"

// Service orchestrates compaction. The session status field is the only
// mutual-exclusion mechanism: a session in the compacting state is never
// compacted again until its status returns to active. That guard is
// process-local and advisory — it is not a distributed lock.
type Service struct {
	estimator  tokens.Estimator
	summarizer Summarizer
	cfg        Config
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *Metrics
	now        func() time.Time
}

// NewService creates a compaction service. A nil estimator falls back to
// the character heuristic; a nil summarizer to the line summarizer;
// metrics may be nil.
func NewService(estimator tokens.Estimator, summarizer Summarizer, cfg Config, logger *slog.Logger, metrics *Metrics) *Service {
	if estimator == nil {
		estimator = tokens.Heuristic{}
	}
	if summarizer == nil {
		summarizer = NewLineSummarizer(estimator)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		estimator:  estimator,
		summarizer: summarizer,
		cfg:        cfg.withDefaults(),
		logger:     logger.With("component", "compaction"),
		tracer:     noop.NewTracerProvider().Tracer(""),
		metrics:    metrics,
		now:        time.Now,
	}
}

// SetTracer installs a tracer for span instrumentation. The default is a
// no-op tracer.
func (s *Service) SetTracer(tracer trace.Tracer) {
	if tracer != nil {
		s.tracer = tracer
	}
}

// Threshold returns the configured compaction trigger in tokens.
func (s *Service) Threshold() int {
	return s.cfg.Threshold()
}

// ShouldCompact reports whether the conversation has outgrown the token
// budget. It always returns false while the session is compacting.
func (s *Service) ShouldCompact(sess *session.Metadata, conv *conversation.Conversation) bool {
	if sess.Status == session.StatusCompacting {
		return false
	}
	return tokens.EstimateMessages(s.estimator, conv.Messages) > s.Threshold()
}

// Request groups the compaction inputs: the session and conversation to
// act on, plus handles to the stores the protocol writes through.
type Request struct {
	Session       *session.Metadata
	Conversation  *conversation.Conversation
	Memory        memory.Store
	Transcripts   *transcript.Store
	Sessions      *session.Repository
	Conversations conversation.Store

	// Force skips the token-threshold comparison. The compacting status
	// guard still applies.
	Force bool
}

// Result describes what a Compact call did.
type Result struct {
	Compacted         bool
	Summary           string
	MessagesCompacted int
	MemoriesFlushed   int
	Conversation      *conversation.Conversation
	Session           *session.Metadata
}

// Compact runs the compaction protocol. The side effects are ordered —
// memory extraction, memory flush, transcript markers, conversation
// rewrite, metadata update — and the first failing step's error is
// returned to the caller.
//
// On any failure after the status transition, the session status is
// forced back to active before returning; memory entries and transcript
// markers already written are deliberately NOT rolled back. They are
// additive audit artifacts, and the conversation itself is untouched
// until the rewrite step succeeds, so a partial failure never loses
// user-visible messages. A retried compaction may therefore re-extract
// and re-save the same memories; the store does not deduplicate.
func (s *Service) Compact(ctx context.Context, req Request) (result *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "compaction.compact",
		trace.WithAttributes(attribute.String("session.id", req.Session.ID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	started := s.now()
	conv := req.Conversation

	// The persisted status is the advisory lock. Re-read it at entry so
	// concurrent callers back off even when their session snapshot is
	// stale; the caller's copy is never trusted for the guard.
	sess, err := req.Sessions.Get(req.Session.ID)
	if err != nil {
		s.metrics.recordFailed()
		return nil, err
	}
	if sess.Status == session.StatusCompacting || (!req.Force && !s.ShouldCompact(sess, conv)) {
		s.metrics.recordSkipped()
		return &Result{Compacted: false, Conversation: conv, Session: sess}, nil
	}

	keep := req.keepCount(s.cfg.KeepRecentMessages)
	compactedCount := len(conv.Messages) - keep
	if compactedCount <= 0 {
		s.metrics.recordSkipped()
		return &Result{Compacted: false, Conversation: conv, Session: sess}, nil
	}
	head := conv.Messages[:compactedCount]
	tail := conv.Messages[compactedCount:]

	// Acquire the lock: the status transition must be persisted before
	// any destructive step runs.
	compacting := session.StatusCompacting
	if _, err := req.Sessions.Update(sess.ID, session.Update{Status: &compacting}); err != nil {
		s.metrics.recordFailed()
		return nil, err
	}
	locked := true
	defer func() {
		// Release the advisory lock on every exit path. Only the status
		// is reverted; earlier side effects stand.
		if !locked {
			return
		}
		active := session.StatusActive
		if _, rbErr := req.Sessions.Update(sess.ID, session.Update{Status: &active}); rbErr != nil {
			s.logger.Error("failed to release compacting status",
				"session", sess.ID,
				"error", rbErr,
			)
		}
	}()

	mems := ExtractMemories(head, sess.ID)
	for _, m := range mems {
		if _, err := req.Memory.Save(ctx, m); err != nil {
			s.metrics.recordFailed()
			return nil, err
		}
	}

	// Memories must be durable before the flush marker is written.
	if f, ok := req.Memory.(memory.Flusher); ok {
		if err := f.Flush(ctx); err != nil {
			s.metrics.recordFailed()
			return nil, err
		}
	}

	if err := req.Transcripts.Append(sess.ID, transcript.NewMemoryFlushEntry(len(mems))); err != nil {
		s.metrics.recordFailed()
		return nil, err
	}

	summary, err := s.summarizer.Summarize(ctx, head, s.cfg)
	if err != nil {
		s.metrics.recordFailed()
		return nil, err
	}

	if err := req.Transcripts.Append(sess.ID, transcript.NewCompactionEntry(summary, compactedCount)); err != nil {
		s.metrics.recordFailed()
		return nil, err
	}
	if err := req.Transcripts.Sync(sess.ID); err != nil {
		s.metrics.recordFailed()
		return nil, err
	}

	// The conversation rewrite is the single point at which the
	// caller-visible state changes.
	newConv := &conversation.Conversation{
		SessionID: conv.SessionID,
		Messages:  append([]conversation.Message{summaryMessage(summary, s.now())}, tail...),
	}
	if err := req.Conversations.Save(ctx, newConv); err != nil {
		s.metrics.recordFailed()
		return nil, err
	}

	active := session.StatusActive
	compactedAt := s.now()
	msgCount := len(newConv.Messages)
	tokenCount := tokens.EstimateMessages(s.estimator, newConv.Messages)
	updated, err := req.Sessions.Update(sess.ID, session.Update{
		Status:          &active,
		LastCompactedAt: &compactedAt,
		MessageCount:    &msgCount,
		TokenCount:      &tokenCount,
	})
	if err != nil {
		s.metrics.recordFailed()
		return nil, err
	}
	locked = false

	s.metrics.recordCompacted(compactedCount, len(mems), s.now().Sub(started).Seconds())
	s.logger.Info("conversation compacted",
		"session", sess.ID,
		"messages_compacted", compactedCount,
		"memories_extracted", len(mems),
		"messages_remaining", msgCount,
	)
	span.SetAttributes(
		attribute.Int("compaction.messages", compactedCount),
		attribute.Int("compaction.memories", len(mems)),
	)

	return &Result{
		Compacted:         true,
		Summary:           summary,
		MessagesCompacted: compactedCount,
		MemoriesFlushed:   len(mems),
		Conversation:      newConv,
		Session:           updated,
	}, nil
}

// keepCount clamps the retain setting to the conversation bounds.
func (r Request) keepCount(keepRecent int) int {
	if keepRecent < 0 {
		keepRecent = 0
	}
	if keepRecent > len(r.Conversation.Messages) {
		keepRecent = len(r.Conversation.Messages)
	}
	return keepRecent
}

// summaryMessage builds the synthetic system message that replaces the
// compacted head.
func summaryMessage(summary string, at time.Time) conversation.Message {
	return conversation.Message{
		ID:        uuid.NewString(),
		Role:      conversation.RoleSystem,
		Content:   summaryLabel + summary,
		CreatedAt: at,
	}
}
