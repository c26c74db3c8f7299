package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/juju/clock"
	"github.com/systemstart/firstboot/pkg/logging"
	"github.com/systemstart/firstboot/pkg/plan"
	"github.com/systemstart/firstboot/pkg/run"
)

var version = "dev"

const (
	_ = iota
	exitDotenvError
	exitLoadPlanFailed
	exitLoadContextFailed
	exitMarkerError
	exitPreconditionViolation
	exitFailedAtStep
	exitTimedOut
)

const lockTimeout = 2 * time.Second

var (
	planFile    string
	markerFile  string
	contextFile string
	loggingType string
	logLevel    string
	showVersion bool
)

func init() {
	flag.StringVar(
		&planFile,
		"plan",
		"firstboot.yaml",
		"bootstrap plan YAML file")
	flag.StringVar(
		&markerFile,
		"marker",
		run.DefaultMarkerPath,
		"durable run marker file")
	flag.StringVar(
		&contextFile,
		"context-file",
		"",
		"global context YAML file")
	flag.StringVar(
		&loggingType,
		"logging-type",
		"tint",
		"logging type: json, text or tint")
	flag.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error")
	flag.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	_ = logging.Initialize(os.Stderr, loggingType, logLevel)

	includeEnv()

	p := loadPlan()
	globalContext := loadGlobalContext()

	releaser, err := run.Acquire(clock.WallClock, lockTimeout)
	if err != nil {
		if errors.Is(err, run.ErrAlreadyRunning) {
			slog.Error("precondition violation", "error", err)
			os.Exit(exitPreconditionViolation)
		}
		slog.Error("failed to acquire bootstrap lock", "error", err)
		os.Exit(exitPreconditionViolation)
	}
	defer releaser.Release()

	orchestrator := run.New(run.NewMarker(markerFile))

	state, err := orchestrator.Run(p, globalContext)
	if err != nil {
		slog.Error("bootstrap run failed", "error", err)
		os.Exit(exitMarkerError)
	}

	switch state.Outcome {
	case run.OutcomeSuccess:
		slog.Info("done", "outcome", string(state.Outcome))
	case run.OutcomeTimedOut:
		slog.Error("bootstrap timed out", "step", state.FailedStep)
		os.Exit(exitTimedOut)
	default:
		slog.Error("bootstrap failed", "step", state.FailedStep)
		os.Exit(exitFailedAtStep)
	}
}

func loadPlan() *plan.Plan {
	p, err := plan.LoadPlan(planFile)
	if err != nil {
		slog.Error("failed to load plan", "filename", planFile, "error", err)
		os.Exit(exitLoadPlanFailed)
	}
	return p
}

func loadGlobalContext() map[string]any {
	if contextFile == "" {
		return nil
	}

	ctx, err := plan.LoadContextFile(contextFile)
	if err != nil {
		slog.Error("failed to load context file", "filename", contextFile, "error", err)
		os.Exit(exitLoadContextFailed)
	}
	return ctx
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Debug("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}
