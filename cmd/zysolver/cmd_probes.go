// Package main implements the zysolver CLI commands.
// This file contains the probes command group for managing page selectors.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

var probesForce bool

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "Manage the selectors the engine uses to read the page",
	Long: `The engine finds activities, candidates and feedback through probe
selectors loaded from .zysolver/probes.yaml. When zyBooks changes its
markup, edit that file instead of rebuilding. A running 'solve' picks
edits up live.`,
}

var probesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in probe set to the workspace for editing",
	RunE:  runProbesInit,
}

var probesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the probe file",
	RunE:  runProbesCheck,
}

func runProbesInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.ProbesPath(resolveWorkspace())
	if _, err := os.Stat(path); err == nil && !probesForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := surface.DefaultProbes().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func runProbesCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, path, err := loadProbes(cfg, "")
	if err != nil {
		return err
	}
	if _, serr := os.Stat(path); os.IsNotExist(serr) {
		fmt.Printf("%s not found, built-in defaults in effect\n", path)
		return nil
	}
	fmt.Printf("%s OK\n", path)
	return nil
}
