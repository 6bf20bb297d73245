package main

import (
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts the daemon to the system service manager.
type program struct {
	cmd *cobra.Command
	err chan error
}

func (p *program) Start(service.Service) error {
	go func() {
		app, err := buildApp(p.cmd)
		if err != nil {
			p.err <- err
			return
		}
		p.err <- app.Run()
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	return nil
}

func serviceConfig() *service.Config {
	return &service.Config{
		Name:        "mnemo",
		DisplayName: "mnemo persistence daemon",
		Description: "Local persistence for conversational AI sessions.",
		Arguments:   []string{"serve"},
	}
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the system service",
	}
	cmd.AddCommand(
		serviceActionCmd("install", "Install mnemo as a system service"),
		serviceActionCmd("uninstall", "Remove the mnemo system service"),
		serviceActionCmd("start", "Start the installed service"),
		serviceActionCmd("stop", "Stop the installed service"),
	)
	return cmd
}

func serviceActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prg := &program{cmd: cmd, err: make(chan error, 1)}
			svc, err := service.New(prg, serviceConfig())
			if err != nil {
				return err
			}
			if err := service.Control(svc, action); err != nil {
				return fmt.Errorf("service %s: %w", action, err)
			}
			fmt.Printf("Service %s: done\n", action)
			return nil
		},
	}
}
