package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mnemo-ai/mnemo/internal/compaction"
	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/inspect"
	"github.com/mnemo-ai/mnemo/internal/maintenance"
	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/telemetry"
	"github.com/mnemo-ai/mnemo/internal/tokens"
	"github.com/mnemo-ai/mnemo/internal/transcript"
	"github.com/mnemo-ai/mnemo/internal/workspace"
	"github.com/mnemo-ai/mnemo/modules/memory/sqlite"
)

// App bundles the wired stores and the daemon lifecycle around them.
// CLI commands use the stores directly; serve runs the daemon.
type App struct {
	Config        *config.Config
	Workspace     *workspace.Workspace
	Sessions      *session.Repository
	Transcripts   *transcript.Store
	Conversations *conversation.FileStore
	Memories      *sqlite.Store
	Compactor     *compaction.Service
	Registry      *prometheus.Registry
	Logger        *slog.Logger

	daemon *Daemon
}

// Build resolves the workspace, opens every store, and registers the
// long-running components. Nothing listens until Run.
func Build(cfg *config.Config, version string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	root := cfg.Workspace
	if root == "" {
		resolved, err := workspace.DefaultRoot()
		if err != nil {
			return nil, fmt.Errorf("daemon: resolve workspace: %w", err)
		}
		root = resolved
	}
	ws := workspace.New(root)
	if err := ws.EnsureStructure(); err != nil {
		return nil, fmt.Errorf("daemon: prepare workspace: %w", err)
	}

	sessions := session.NewRepository(ws.SessionsFile(), session.Defaults{
		Title:    cfg.Session.Title,
		Model:    cfg.Session.Model,
		Provider: cfg.Session.Provider,
	})
	transcripts := transcript.NewStore(ws.TranscriptsDir())
	conversations := conversation.NewFileStore(ws.ConversationsDir())

	memPath := cfg.Memory.Path
	if memPath == "" {
		memPath = sqlite.DefaultPath(ws.DataDir())
	}
	memories, err := sqlite.Open(sqlite.Config{
		Path:        memPath,
		WAL:         cfg.Memory.WAL,
		BusyTimeout: cfg.Memory.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := compaction.NewMetrics(registry)

	compactor := compaction.NewService(
		tokens.ForEncoding(cfg.Compaction.Encoding),
		nil,
		compaction.Config{
			ContextWindowTokens: cfg.Compaction.ContextWindowTokens,
			TokenThresholdRatio: cfg.Compaction.TokenThresholdRatio,
			KeepRecentMessages:  cfg.Compaction.KeepRecentMessages,
			SummaryTokenBudget:  cfg.Compaction.SummaryTokenBudget,
		},
		logger,
		metrics,
	)

	app := &App{
		Config:        cfg,
		Workspace:     ws,
		Sessions:      sessions,
		Transcripts:   transcripts,
		Conversations: conversations,
		Memories:      memories,
		Compactor:     compactor,
		Registry:      registry,
		Logger:        logger,
		daemon:        New(logger),
	}
	app.register(version)
	return app, nil
}

// register adds the lifecycle components in start order. Components
// stop in reverse, so the stores registered first close last.
func (a *App) register(version string) {
	cfg := a.Config

	a.daemon.Add(Component{
		Name: "stores",
		Stop: func(context.Context) error {
			if err := a.Transcripts.Close(); err != nil {
				return err
			}
			return a.Memories.Close()
		},
	})

	if cfg.Telemetry.Enabled {
		var shutdown telemetry.ShutdownFunc
		a.daemon.Add(Component{
			Name: "telemetry",
			Start: func() error {
				tracer, stop, err := telemetry.Setup(
					context.Background(),
					cfg.Telemetry.Endpoint,
					cfg.Telemetry.Insecure,
					version,
				)
				if err != nil {
					return err
				}
				shutdown = stop
				a.Compactor.SetTracer(tracer)
				return nil
			},
			Stop: func(ctx context.Context) error {
				if shutdown == nil {
					return nil
				}
				return shutdown(ctx)
			},
		})
	}

	if cfg.Inspector.Enabled {
		server := inspect.NewServer(inspect.Options{
			Addr:        cfg.Inspector.Listen,
			Logger:      a.Logger,
			Sessions:    a.Sessions,
			Transcripts: a.Transcripts,
			Memories:    a.Memories,
			Registry:    a.Registry,
		})
		a.daemon.Add(Component{
			Name:  "inspector",
			Start: server.Start,
			Stop:  server.Stop,
		})
	}

	if cfg.Maintenance.Enabled {
		scheduler := maintenance.NewScheduler(a.Logger)
		a.daemon.Add(Component{
			Name: "maintenance",
			Start: func() error {
				if err := scheduler.RegisterJob(maintenance.NewRepairJob(
					a.Sessions, a.Transcripts, cfg.Maintenance.RepairSchedule, a.Logger,
				)); err != nil {
					return err
				}
				if err := scheduler.RegisterJob(maintenance.NewCompactJob(
					a.Compactor, a.Sessions, a.Transcripts, a.Conversations, a.Memories,
					cfg.Maintenance.CompactSchedule, a.Logger,
				)); err != nil {
					return err
				}
				return scheduler.Start()
			},
			Stop: scheduler.Stop,
		})
	}

}

// Run starts the daemon and blocks until a shutdown signal.
func (a *App) Run() error {
	return a.daemon.Run()
}

// Close releases the stores without running the daemon, for one-shot
// CLI commands.
func (a *App) Close() error {
	if err := a.Transcripts.Close(); err != nil {
		return err
	}
	return a.Memories.Close()
}
