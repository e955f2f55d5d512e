package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cogstyle/internal/lint"
	"cogstyle/internal/pysrc"
	"cogstyle/internal/runner"
	"cogstyle/internal/selector"
	"cogstyle/internal/stages"
	"cogstyle/internal/watch"
	"cogstyle/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

var (
	configFile string
	verbose    bool
	allFiles   bool
	showDiff   bool

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cogstyle",
	Short: "Style enforcement for Python cog repositories",
	Long: `cogstyle runs one style pipeline over the staged (or tracked) Python
files of a repository: unused-import pruning, import sorting and
formatting, plus a static-error lint.

Every command reads the same style profile, so the stages can never
disagree about line length or target version.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config from %s: %w", configFile, err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var lintCmd = &cobra.Command{
	Use:   "lint [paths...]",
	Short: "Report syntax errors, undefined names and misplaced flow statements",
	RunE: func(cmd *cobra.Command, args []string) error {
		parser, files, err := setup(args)
		if err != nil {
			return err
		}

		linter := lint.New(parser, cfg)
		total := 0
		for _, file := range files {
			findings, err := linter.CheckFile(file)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					logger.Warn("file vanished before linting, skipping", zap.String("file", file))
					continue
				}
				return err
			}
			for _, f := range findings {
				fmt.Println(f)
			}
			total += len(findings)
		}

		if total > 0 {
			return fmt.Errorf("%d problem(s) found", total)
		}
		return nil
	},
}

var stylecheckCmd = &cobra.Command{
	Use:   "stylecheck [paths...]",
	Short: "Report files the pipeline would rewrite, touching nothing",
	RunE: func(cmd *cobra.Command, args []string) error {
		parser, files, err := setup(args)
		if err != nil {
			return err
		}

		pipeline := runner.New(stages.NewRegistry(parser), cfg, logger)
		result := pipeline.Check(files, showDiff)

		for _, file := range result.Changed {
			fmt.Printf("would reformat %s\n", file)
		}
		for file, ferr := range result.Failed {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, ferr)
		}
		if showDiff && result.Diff != "" {
			fmt.Print(result.Diff)
		}

		if !result.Ok() {
			return fmt.Errorf("%d file(s) would be reformatted, %d failed",
				len(result.Changed), len(result.Failed))
		}
		return nil
	},
}

var reformatCmd = &cobra.Command{
	Use:   "reformat [paths...]",
	Short: "Run the pipeline and rewrite files in place",
	RunE: func(cmd *cobra.Command, args []string) error {
		parser, files, err := setup(args)
		if err != nil {
			return err
		}

		pipeline := runner.New(stages.NewRegistry(parser), cfg, logger)
		result := pipeline.Apply(files)

		for _, file := range result.Changed {
			fmt.Printf("reformatted %s\n", file)
		}
		for file, ferr := range result.Failed {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, ferr)
		}

		if len(result.Failed) > 0 {
			return fmt.Errorf("%d file(s) failed", len(result.Failed))
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run stylecheck whenever a source file changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		parser, err := pysrc.NewParser()
		if err != nil {
			return err
		}

		pipeline := runner.New(stages.NewRegistry(parser), cfg, logger)
		watcher, err := watch.New(".", cfg, pipeline, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return watcher.Run(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cogstyle version %s\n", version)
	},
}

// setup builds the parser and resolves the file set shared by the lint
// and pipeline commands.
func setup(args []string) (*pysrc.Parser, []string, error) {
	parser, err := pysrc.NewParser()
	if err != nil {
		return nil, nil, err
	}

	files, err := selector.New(cfg, logger).Select(args, allFiles)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		logger.Debug("no matching files, nothing to do")
	}
	return parser, files, nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultFile, "Path to the style profile")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&allFiles, "all", false, "Take every tracked file, ignoring the staged subset")
	stylecheckCmd.Flags().BoolVar(&showDiff, "diff", false, "Print a unified diff of the would-be changes")

	rootCmd.AddCommand(lintCmd, stylecheckCmd, reformatCmd, watchCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
