// Package main implements the zysolver CLI commands.
// This file contains the solve command, the tool's main entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/config"
	"github.com/DevGuyRash/zybooks-problem-solver/internal/logging"
	"github.com/DevGuyRash/zybooks-problem-solver/internal/solve"
	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

var (
	solveForce   bool
	solveTypes   []string
	solveProbes  string
	solveNoWatch bool
)

var solveCmd = &cobra.Command{
	Use:   "solve [lesson-url]",
	Short: "Complete every participation activity on a lesson page",
	Long: `Scans the lesson page for participation activities, then solves them:
same-type activities strictly one after another with a human-ish pause,
different types concurrently. Without a URL the current page of the
connected browser is used, which is how you hand over a lesson you
already have on screen.

Progress streams to stdout as it happens. Ctrl+C stops the run cleanly:
in-flight observations finish, no further input is simulated.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSolve,
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	probes, probesPath, err := loadProbes(cfg, solveProbes)
	if err != nil {
		return err
	}
	types, err := parseTypes(solveTypes)
	if err != nil {
		return err
	}

	if logging.IsDebugMode() {
		if err := logging.InitAudit(); err != nil {
			logger.Warn("audit log disabled", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	attachControlURL(cfg)
	live := surface.NewLive(cfg.LiveOptions())
	logger.Info("Connecting to Chrome")
	if err := live.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to chrome: %w", err)
	}
	defer live.Close()

	url := ""
	if len(args) > 0 {
		url = args[0]
	}
	navCtx, navCancel := context.WithTimeout(ctx, cfg.Browser.NavTimeout())
	err = live.Open(navCtx, url)
	navCancel()
	if err != nil {
		return fmt.Errorf("failed to open lesson: %w", err)
	}

	runner := solve.NewRunner(live, solve.RunnerConfig{
		Probes: probes,
		Timing: cfg.SolveTiming(),
		Force:  solveForce,
		Types:  types,
	})
	runner.Log().SetWriter(os.Stdout)

	// Hot reload selector edits while the run is in flight.
	if !solveNoWatch {
		watcher, werr := surface.NewProbeWatcher(probesPath, runner.SetProbes)
		if werr == nil {
			werr = watcher.Start(ctx)
			if werr == nil {
				defer watcher.Stop()
			}
		}
		if werr != nil {
			logger.Debug("probe hot reload unavailable", zap.Error(werr))
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "stopping: waiting for in-flight observations...")
		runner.Stop()
	}()

	results, runErr := runner.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	printResults(results)
	return nil
}

func parseTypes(names []string) ([]solve.TaskType, error) {
	var types []solve.TaskType
	for _, name := range names {
		t, err := solve.ParseTaskType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// attachControlURL points the config at a browser previously started with
// 'zysolver browser launch', unless one is already configured.
func attachControlURL(cfg *config.Config) {
	if cfg.Browser.DebuggerURL != "" {
		return
	}
	data, err := os.ReadFile(controlFilePath())
	if err != nil || len(data) == 0 {
		return
	}
	cfg.Browser.DebuggerURL = strings.TrimSpace(string(data))
	logger.Info("Connecting to existing browser", zap.String("url", cfg.Browser.DebuggerURL))
}

func controlFilePath() string {
	return filepath.Join(resolveWorkspace(), ".zysolver", "browser", "control.txt")
}

func printResults(results []solve.Result) {
	if len(results) == 0 {
		fmt.Println("No activities found on the page.")
		return
	}

	fmt.Println()
	for _, res := range results {
		line := fmt.Sprintf("  %-12s %-36s %-17s attempts=%d in %s",
			res.Task.Type, res.Task.Key, res.Outcome, res.Attempts,
			res.Elapsed.Round(time.Millisecond))
		if res.Err != nil {
			line += fmt.Sprintf("  (%v)", res.Err)
		}
		fmt.Println(line)
	}

	counts := solve.CountOutcomes(results)
	complete := counts[solve.OutcomeSolved] + counts[solve.OutcomeAlreadyComplete]
	fmt.Printf("\n%d/%d activities complete\n", complete, len(results))
}
