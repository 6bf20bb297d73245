package config

import (
	"errors"
	"fmt"
	"math"
	"net"

	"github.com/robfig/cron/v3"
)

// Validate checks the structural validity of a Config: the version
// field, numeric ranges on the compaction knobs, listen addresses, and
// cron expressions. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateCompaction(cfg.Compaction)...)
	errs = append(errs, validateMemory(cfg.Memory)...)
	errs = append(errs, validateInspector(cfg.Inspector)...)
	errs = append(errs, validateMaintenance(cfg.Maintenance)...)
	errs = append(errs, validateTelemetry(cfg.Telemetry)...)

	return errors.Join(errs...)
}

func validateCompaction(c CompactionConfig) []error {
	var errs []error
	if c.ContextWindowTokens < 0 {
		errs = append(errs, fmt.Errorf("config: compaction.context_window_tokens must be non-negative, got %d", c.ContextWindowTokens))
	}
	if c.TokenThresholdRatio < 0 || c.TokenThresholdRatio > 1 ||
		math.IsNaN(c.TokenThresholdRatio) || math.IsInf(c.TokenThresholdRatio, 0) {
		errs = append(errs, fmt.Errorf("config: compaction.token_threshold_ratio must be within [0, 1], got %v", c.TokenThresholdRatio))
	}
	if c.KeepRecentMessages < 0 {
		errs = append(errs, fmt.Errorf("config: compaction.keep_recent_messages must be non-negative, got %d", c.KeepRecentMessages))
	}
	if c.SummaryTokenBudget < 0 {
		errs = append(errs, fmt.Errorf("config: compaction.summary_token_budget must be non-negative, got %d", c.SummaryTokenBudget))
	}
	return errs
}

func validateMemory(c MemoryConfig) []error {
	var errs []error
	if c.BusyTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: memory.busy_timeout must be non-negative, got %d", c.BusyTimeout))
	}
	return errs
}

func validateInspector(c InspectorConfig) []error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("config: inspector.listen is required when the inspector is enabled"))
	} else if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		errs = append(errs, fmt.Errorf("config: inspector.listen %q: %w", c.Listen, err))
	}
	return errs
}

func validateMaintenance(c MaintenanceConfig) []error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for _, sched := range []struct{ name, expr string }{
		{"maintenance.repair_schedule", c.RepairSchedule},
		{"maintenance.compact_schedule", c.CompactSchedule},
	} {
		if sched.expr == "" {
			continue
		}
		if _, err := parser.Parse(sched.expr); err != nil {
			errs = append(errs, fmt.Errorf("config: %s %q: %w", sched.name, sched.expr, err))
		}
	}
	return errs
}

func validateTelemetry(c TelemetryConfig) []error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("config: telemetry.endpoint is required when telemetry is enabled"))
	}
	return errs
}
