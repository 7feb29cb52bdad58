// Package main implements the zysolver CLI commands.
// This file contains browser session management commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// =============================================================================
// BROWSER COMMANDS - Chrome session management
// =============================================================================

var browserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Manage the Chrome session zysolver drives",
}

var browserLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Start a visible Chrome window and keep it up for later runs",
	Long: `Starts Chrome with a persistent profile and records its control URL in
.zysolver/browser/control.txt. Later 'solve' and 'scan' invocations
attach to this window, so you log in to zyBooks once and keep the
session across runs. Ctrl+C shuts the browser down.`,
	RunE: browserLaunch,
}

func browserLaunch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info("Launching browser")

	// The launch window is for logging in, so never headless.
	opts := cfg.LiveOptions()
	opts.Headless = false
	live := surface.NewLive(opts)
	if err := live.Connect(context.Background()); err != nil {
		return fmt.Errorf("failed to launch chrome: %w", err)
	}

	// Write control URL to file for other commands to attach to
	controlFile := controlFilePath()
	if err := os.MkdirAll(filepath.Dir(controlFile), 0o755); err == nil {
		if err := os.WriteFile(controlFile, []byte(live.ControlURL()), 0o644); err != nil {
			logger.Warn("failed to write browser control file", zap.Error(err))
		}
	}

	fmt.Printf("Browser launched. Control URL: %s\n", live.ControlURL())
	fmt.Println("Log in to zyBooks in this window, then run 'zysolver solve'.")
	fmt.Println("Press Ctrl+C to shut the browser down")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	// Clean up control file
	if err := os.Remove(controlFile); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove browser control file", zap.Error(err))
	}
	return live.Close()
}
