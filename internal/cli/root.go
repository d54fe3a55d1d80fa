// Package cli implements the quacksim command line.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/nqrduck/quacksim/internal/config"
	"github.com/nqrduck/quacksim/internal/logging"
	"github.com/nqrduck/quacksim/internal/simulator"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	jsonOutput  bool
	jsonlOutput bool
	logLevel    string
	logFormat   string
	noProgress  bool
	noColor     bool

	appConfig *config.Config

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "quacksim",
	Short: "Simulate NQR pulse sequences",
	Long: `quacksim translates NQR pulse sequences into sampled excitation waveforms,
runs them through a magnetization simulation engine, and keeps a history of
the resulting measurements.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./quacksim.yaml or ~/.config/quacksim/quacksim.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.PersistentFlags().BoolVar(&jsonlOutput, "jsonl", false, "output JSON lines")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable progress output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// SetVersion records build metadata shown by --version.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return &PreflightError{
			Message:  err.Error(),
			Hint:     "Check the config file and QUACKSIM_* environment variables",
			NextStep: "quacksim config path",
			Err:      err,
		}
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	logging.Init(cfg.Logging)
	appConfig = cfg
	return nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	if appConfig == nil {
		return config.DefaultConfig()
	}
	return appConfig
}

// PreflightError is a user-facing error with remediation hints.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
	Err      error
}

func (e *PreflightError) Error() string {
	return e.Message
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}

// Exit codes.
const (
	exitFailure       = 1
	exitConfiguration = 2
	exitTranslation   = 3
	exitEngine        = 4
)

// HandleError prints err to w and returns the process exit code.
func HandleError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}

	var pre *PreflightError
	if errors.As(err, &pre) {
		fmt.Fprintf(w, "%s %s\n", colorize("Error:", colorRed), pre.Message)
		if pre.Hint != "" {
			fmt.Fprintf(w, "  hint: %s\n", pre.Hint)
		}
		if pre.NextStep != "" {
			fmt.Fprintf(w, "  next: %s\n", pre.NextStep)
		}
	} else {
		fmt.Fprintf(w, "%s %v\n", colorize("Error:", colorRed), err)
	}

	switch {
	case errors.Is(err, simulator.ErrConfiguration), errors.Is(err, config.ErrInvalidConfig):
		return exitConfiguration
	case errors.Is(err, simulator.ErrSequenceTranslation):
		return exitTranslation
	case errors.Is(err, simulator.ErrEngineInvocation):
		return exitEngine
	default:
		return exitFailure
	}
}
