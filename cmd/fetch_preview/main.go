// Command fetch_preview runs one search plan and prints the FetchResult as
// JSON on stdout.
//
//	fetch_preview -plan plan.json [-config evidence.yaml]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/evidencefetch/internal/app"
	"github.com/dshills/evidencefetch/internal/config"
	"github.com/dshills/evidencefetch/internal/logging"
	"github.com/dshills/evidencefetch/pkg/types"
)

func main() {
	planPath := flag.String("plan", "", "path to a SearchPlan JSON file (required)")
	configPath := flag.String("config", "", "path to a YAML config file")
	verbose := flag.Bool("v", false, "log at debug level")
	flag.Parse()

	if *planPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*planPath, *configPath, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "fetch_preview: %v\n", err)
		os.Exit(1)
	}
}

func run(planPath, configPath string, verbose bool) error {
	plan, err := readPlan(planPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, app.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := a.Engine.Fetch(ctx, plan)
	if err != nil {
		return err
	}
	logger.Debug("Run finished", zap.Int("items", len(result.Items)), zap.String("strategy", result.Stats.Strategy))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readPlan(path string) (types.SearchPlan, error) {
	var plan types.SearchPlan
	data, err := os.ReadFile(path)
	if err != nil {
		return plan, fmt.Errorf("failed to read plan: %w", err)
	}
	if err := json.Unmarshal(data, &plan); err != nil {
		return plan, fmt.Errorf("failed to parse plan: %w", err)
	}
	if strings.TrimSpace(plan.ID) == "" {
		plan.ID = uuid.NewString()
	}
	return plan, nil
}
