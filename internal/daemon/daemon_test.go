package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/daemon"
)

func TestDaemon_StartStopOrder(t *testing.T) {
	t.Parallel()

	var order []string
	d := daemon.New(nil)
	for _, name := range []string{"a", "b", "c"} {
		name := name
		d.Add(daemon.Component{
			Name:  name,
			Start: func() error { order = append(order, "start:"+name); return nil },
			Stop:  func(context.Context) error { order = append(order, "stop:"+name); return nil },
		})
	}

	if err := d.Start(); err != nil {
		t.Fatalf("Start returned unexpected error: %v", err)
	}
	d.Stop()

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestDaemon_StartFailureStopsStarted(t *testing.T) {
	t.Parallel()

	var stopped []string
	d := daemon.New(nil)
	d.Add(daemon.Component{
		Name:  "first",
		Start: func() error { return nil },
		Stop:  func(context.Context) error { stopped = append(stopped, "first"); return nil },
	})
	bootErr := errors.New("bind failed")
	d.Add(daemon.Component{
		Name:  "second",
		Start: func() error { return bootErr },
		Stop:  func(context.Context) error { stopped = append(stopped, "second"); return nil },
	})

	err := d.Start()
	if !errors.Is(err, bootErr) {
		t.Fatalf("Start error = %v, want the boot failure", err)
	}
	if len(stopped) != 1 || stopped[0] != "first" {
		t.Errorf("stopped = %v, want only the started component", stopped)
	}
}

func TestBuild_WiresWorkspace(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Workspace = filepath.Join(t.TempDir(), "ws")

	app, err := daemon.Build(cfg, "test", nil)
	if err != nil {
		t.Fatalf("Build returned unexpected error: %v", err)
	}
	defer func() { _ = app.Close() }()

	main, err := app.Sessions.GetMain()
	if err != nil {
		t.Fatalf("GetMain returned unexpected error: %v", err)
	}
	if main.ID == "" {
		t.Error("expected a bootstrapped main session")
	}
	if app.Compactor.Threshold() <= 0 {
		t.Error("compactor threshold should be positive")
	}
	if err := app.Memories.Ping(context.Background()); err != nil {
		t.Errorf("memory store should be open: %v", err)
	}
}
