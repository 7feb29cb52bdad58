package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/config"
	"github.com/DevGuyRash/zybooks-problem-solver/internal/logging"
	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

const version = "0.3.0"

var (
	// Global flags
	verbose    bool
	workspace  string
	configFile string
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "zysolver",
	Short: "zysolver - complete zyBooks participation activities automatically",
	Long: `zysolver completes the interactive participation activities on a zyBooks
lesson page. It drives a real Chrome session, simulating the same input
events a student produces and watching the page's asynchronous feedback,
until every activity's completion chevron fills.

Typical session:

  zysolver browser launch          # start Chrome once, log in to zyBooks
  zysolver solve                   # complete the lesson currently on screen
  zysolver solve <lesson-url>      # or navigate there first

Every selector the engine uses lives in .zysolver/probes.yaml, so a
zyBooks markup change is a config edit rather than a rebuild.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(resolveWorkspace()); err != nil {
			fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		}

		// Initialize logger
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAudit()
		logging.CloseAll()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the zysolver version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("zysolver " + version)
	},
}

// resolveWorkspace returns the --workspace flag when set, otherwise the
// nearest directory carrying a .zysolver dotdir, otherwise the cwd.
func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	root, err := config.FindWorkspaceRoot()
	if err != nil {
		cwd, _ := os.Getwd()
		return cwd
	}
	return root
}

// loadConfig reads and validates the effective configuration.
func loadConfig() (*config.Config, error) {
	path := configFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadProbes reads the probe set for a run. A missing file yields the
// built-in defaults; a present but broken one is a hard error.
func loadProbes(cfg *config.Config, override string) (surface.ProbeSet, string, error) {
	path := override
	if path == "" {
		path = cfg.ProbesPath(resolveWorkspace())
	}
	ps, err := surface.LoadProbes(path)
	if err != nil {
		return ps, path, fmt.Errorf("failed to load probes: %w", err)
	}
	return ps, path, nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: nearest .zysolver, else current)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: <workspace>/.zysolver/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	// Solve flags
	solveCmd.Flags().BoolVar(&solveForce, "force", false, "Re-solve activities whose chevron is already filled")
	solveCmd.Flags().StringSliceVar(&solveTypes, "types", nil, "Restrict to task types (radio, clickable, shortanswer, animation, matching)")
	solveCmd.Flags().StringVar(&solveProbes, "probes", "", "Probe file override")
	solveCmd.Flags().BoolVar(&solveNoWatch, "no-watch", false, "Disable probe file hot reload")

	// Scan flags
	scanCmd.Flags().StringVar(&scanHTML, "html", "", "Scan a saved HTML snapshot instead of a live page")
	scanCmd.Flags().StringSliceVar(&scanTypes, "types", nil, "Restrict to task types (radio, clickable, shortanswer, animation, matching)")
	scanCmd.Flags().StringVar(&scanProbes, "probes", "", "Probe file override")

	// Probes subcommands
	probesInitCmd.Flags().BoolVar(&probesForce, "force", false, "Overwrite an existing probe file")
	probesCmd.AddCommand(probesInitCmd)
	probesCmd.AddCommand(probesCheckCmd)

	// Config subcommands
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	// Browser subcommands
	browserCmd.AddCommand(browserLaunchCmd)

	// Add commands to root
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(probesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(browserCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
