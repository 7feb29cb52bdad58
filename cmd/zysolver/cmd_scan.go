// Package main implements the zysolver CLI commands.
// This file contains the scan command for inspecting a page without solving it.
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/solve"
	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

var (
	scanHTML   string
	scanProbes string
	scanTypes  []string
)

var scanCmd = &cobra.Command{
	Use:   "scan [lesson-url]",
	Short: "List the participation activities on a page without touching them",
	Long: `Detects every activity the solver would act on and reports its type,
key and completion state. Nothing is clicked. Use it to check probe
selectors against a new page layout, or with --html to inspect a saved
page offline.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	probes, _, err := loadProbes(cfg, scanProbes)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var sfc surface.Surface
	if scanHTML != "" {
		snap, serr := surface.OpenSnapshot(scanHTML)
		if serr != nil {
			return fmt.Errorf("failed to open snapshot: %w", serr)
		}
		sfc = snap
	} else {
		attachControlURL(cfg)
		live := surface.NewLive(cfg.LiveOptions())
		if cerr := live.Connect(ctx); cerr != nil {
			return fmt.Errorf("failed to connect to chrome: %w", cerr)
		}
		defer live.Close()

		url := ""
		if len(args) > 0 {
			url = args[0]
		}
		navCtx, navCancel := context.WithTimeout(ctx, cfg.Browser.NavTimeout())
		oerr := live.Open(navCtx, url)
		navCancel()
		if oerr != nil {
			return fmt.Errorf("failed to open lesson: %w", oerr)
		}
		sfc = live
	}

	tasks, err := solve.Scan(ctx, sfc, probes)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if len(scanTypes) > 0 {
		want, terr := parseTypes(scanTypes)
		if terr != nil {
			return terr
		}
		keep := tasks[:0]
		for _, task := range tasks {
			for _, t := range want {
				if task.Type == t {
					keep = append(keep, task)
					break
				}
			}
		}
		tasks = keep
	}
	if len(tasks) == 0 {
		fmt.Println("No activities found on the page.")
		return nil
	}

	classifier := solve.NewClassifier(sfc, probes.Chevron)
	fmt.Printf("%-12s %-36s %s\n", "TYPE", "KEY", "STATE")
	for i := range tasks {
		task := &tasks[i]
		state := "incomplete"
		if done, cerr := classifier.Complete(ctx, task); cerr != nil {
			state = "unknown"
		} else if done {
			state = "complete"
		}
		fmt.Printf("%-12s %-36s %s\n", task.Type, task.Key, state)
	}
	fmt.Printf("\n%d activities\n", len(tasks))
	return nil
}
