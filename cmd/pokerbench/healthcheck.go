package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/pokerbench/pokerbench/internal/config"
	"github.com/pokerbench/pokerbench/internal/modeltransport"
)

// checkStatus is one health-check line's verdict.
type checkStatus string

const (
	statusPass checkStatus = "PASS"
	statusWarn checkStatus = "WARN"
	statusFail checkStatus = "FAIL"
)

// HealthCheckCmd validates a config and, with --probe, issues one
// no-op model call per agent to confirm the transport can actually reach
// every configured model (§7: "the health-check CLI surfaces per-check
// pass/warn/fail with a nonzero exit on any fail").
type HealthCheckCmd struct {
	Config string `arg:"" help:"Path to the benchmark's HCL config file"`
	Server string `default:"ws://localhost:8080/ws" help:"Model-serving WebSocket endpoint"`
	Probe  bool   `help:"Issue one no-op model call per agent to confirm reachability"`
}

func (c *HealthCheckCmd) Run() error {
	failed := false

	cfg, err := config.Load(c.Config)
	if err != nil {
		report(statusFail, fmt.Sprintf("load config: %v", err))
		return fmt.Errorf("pokerbench: health-check failed")
	}
	report(statusPass, "config parsed")

	if err := cfg.Validate(); err != nil {
		report(statusFail, fmt.Sprintf("validate config: %v", err))
		return fmt.Errorf("pokerbench: health-check failed")
	}
	report(statusPass, fmt.Sprintf("config valid: %d agents, %d blind levels", len(cfg.Agents), len(cfg.Tournament.BlindLevels)))

	if _, err := cfg.BlindSchedule(); err != nil {
		report(statusFail, fmt.Sprintf("build blind schedule: %v", err))
		failed = true
	} else {
		report(statusPass, "blind schedule well-formed")
	}

	if errs, warnings := cfg.ReasoningIssues(); len(errs) > 0 {
		report(statusFail, strings.Join(errs, "; "))
		failed = true
	} else if len(warnings) > 0 {
		report(statusWarn, strings.Join(warnings, "; "))
	} else {
		report(statusPass, "reasoning config valid")
	}

	if errs, warnings := cfg.ProviderIssues(); len(errs) > 0 {
		report(statusFail, strings.Join(errs, "; "))
		failed = true
	} else if len(warnings) > 0 {
		report(statusWarn, strings.Join(warnings, "; "))
	} else {
		report(statusPass, "provider config valid")
	}

	if cfg.Output.LogDir != "" {
		if err := os.MkdirAll(cfg.Output.LogDir, 0o755); err != nil {
			report(statusWarn, fmt.Sprintf("output.log_dir %q not writable: %v", cfg.Output.LogDir, err))
		} else {
			report(statusPass, fmt.Sprintf("output.log_dir %q writable", cfg.Output.LogDir))
		}
	}

	if !c.Probe {
		report(statusWarn, "skipped model probes (pass --probe to exercise the transport)")
		if failed {
			return fmt.Errorf("pokerbench: health-check failed")
		}
		return nil
	}

	if os.Getenv("OPENROUTER_API_KEY") == "" {
		report(statusWarn, "OPENROUTER_API_KEY not set")
	}

	logger := quietLogger()
	transport := modeltransport.NewWSTransport(c.Server, os.Getenv("OPENROUTER_API_KEY"), logger, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := transport.Connect(ctx); err != nil {
		report(statusFail, fmt.Sprintf("connect to %s: %v", c.Server, err))
		return fmt.Errorf("pokerbench: health-check failed")
	}
	defer transport.Close()
	report(statusPass, fmt.Sprintf("connected to %s", c.Server))

	for _, a := range cfg.Agents {
		probeCtx, probeCancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := transport.Call(probeCtx, modeltransport.Request{
			Model: a.Model,
			Messages: []modeltransport.Message{
				{Role: modeltransport.RoleUser, Content: "ping"},
			},
		})
		probeCancel()
		if err != nil {
			report(statusFail, fmt.Sprintf("probe agent %q (%s): %v", a.Name, a.Model, err))
			failed = true
			continue
		}
		report(statusPass, fmt.Sprintf("probe agent %q (%s) reachable", a.Name, a.Model))
	}

	if failed {
		return fmt.Errorf("pokerbench: health-check failed")
	}
	return nil
}

func report(status checkStatus, msg string) {
	fmt.Printf("[%s] %s\n", status, msg)
}

// quietLogger builds a charmbracelet/log.Logger that suppresses everything
// below Fatal, the way cmd/benchmark/main.go's zerolog.Disabled default
// keeps a probe run's own transport chatter out of the health-check's
// pass/warn/fail lines.
func quietLogger() *charmlog.Logger {
	return charmlog.NewWithOptions(os.Stderr, charmlog.Options{Level: charmlog.FatalLevel})
}
