package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nqrduck/quacksim/internal/config"
	"github.com/nqrduck/quacksim/internal/db"
	"github.com/nqrduck/quacksim/internal/events"
	"github.com/nqrduck/quacksim/internal/logging"
	"github.com/nqrduck/quacksim/internal/measurement"
	"github.com/nqrduck/quacksim/internal/models"
	"github.com/nqrduck/quacksim/internal/sequence"
	"github.com/nqrduck/quacksim/internal/simulator"
	"github.com/spf13/cobra"
)

var (
	runAverages int
	runPoints   int
	runNoise    float64
	runParallel int
	runNoSave   bool
	runOutput   string
	runDomain   string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runAverages, "averages", 0, "override simulation.averages")
	runCmd.Flags().IntVar(&runPoints, "points", 0, "override simulation.number_points")
	runCmd.Flags().Float64Var(&runNoise, "noise", 0, "override simulation.noise (µV)")
	runCmd.Flags().IntVar(&runParallel, "parallel", 0, "override simulation.max_parallel_runs")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "do not store the measurement or ledger entry")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "also write the measurement as CSV to this file")
	runCmd.Flags().StringVar(&runDomain, "domain", domainTime, "CSV domain for --output (time, frequency)")
}

var runCmd = &cobra.Command{
	Use:   "run <sequence>",
	Short: "Simulate a pulse sequence",
	Long: `Simulate a pulse sequence, given by name (builtin or from the sequence
search paths) or by path to a YAML file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := runConfig(cmd, GetConfig())
		logger := logging.Component("run")

		if err := validateDomain(runDomain); err != nil {
			return err
		}

		seq, err := sequence.Resolve(args[0], cfg.Sequences.Dir)
		if err != nil {
			return &PreflightError{
				Message:  err.Error(),
				Hint:     "List available sequences with quacksim sequence list",
				NextStep: "quacksim sequence list",
				Err:      err,
			}
		}

		eng, closeEngine, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer closeEngine()

		controller, err := simulator.New(cfg, eng)
		if err != nil {
			return err
		}

		var database *db.DB
		if !runNoSave {
			database, err = openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()
		}

		plan, err := prepareRun(controller, seq, cfg.Engine.Kind, database)
		if err != nil {
			return err
		}
		runs := len(plan.Pulses)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		progress := startProgress(fmt.Sprintf("Simulating %s (%d run(s))", seq.Name, runs))
		started := time.Now()
		m, err := controller.Execute(ctx, plan)
		elapsed := time.Since(started)
		if err != nil {
			progress.Fail(err)
			recordAbandoned(database, seq.Name, cfg.Engine.Kind, err)
			return err
		}
		progress.Done()

		result := runResult{
			Sequence: seq.Name,
			Engine:   cfg.Engine.Kind,
			Runs:     runs,
			Points:   m.Len(),
			Duration: elapsed.String(),
		}

		if database != nil {
			rec := &models.MeasurementRecord{
				Sequence:    seq.Name,
				Engine:      cfg.Engine.Kind,
				Averages:    cfg.Simulation.Averages,
				Measurement: m,
				Metadata: map[string]string{
					"runs":           strconv.Itoa(runs),
					"number_points":  strconv.Itoa(cfg.Simulation.NumberPoints),
					"apply_tx_phase": strconv.FormatBool(cfg.Simulation.ApplyTxPhase),
				},
			}
			if err := db.NewMeasurementRepository(database).Create(ctx, rec); err != nil {
				return fmt.Errorf("failed to store measurement: %w", err)
			}
			result.ID = rec.ID

			if err := events.LogRunCompleted(ctx, db.NewEventRepository(database), events.RunCompleted{
				Sequence:      seq.Name,
				MeasurementID: rec.ID,
				Measurement:   m.Name(),
				Engine:        cfg.Engine.Kind,
				Runs:          runs,
				Points:        m.Len(),
				Duration:      elapsed,
			}); err != nil {
				logger.Warn().Err(err).Msg("failed to record completed run")
			}
		}

		if runOutput != "" {
			if err := writeMeasurementFile(runOutput, m, runDomain); err != nil {
				return err
			}
		}

		if IsJSONOutput() || IsJSONLOutput() {
			result.Measurement = m
			return WriteOutput(os.Stdout, result)
		}
		fmt.Println(renderRunSummary(result, m))
		return nil
	},
}

// prepareRun translates seq into a plan. A failed translation is recorded
// as an abandoned run.
func prepareRun(controller *simulator.Controller, seq *sequence.Sequence, engineKind string, database *db.DB) (*simulator.Plan, error) {
	plan, err := controller.Prepare(seq)
	if err != nil {
		recordAbandoned(database, seq.Name, engineKind, err)
		return nil, err
	}
	return plan, nil
}

// recordAbandoned writes a run.abandoned ledger entry. It is a no-op when
// saving is disabled.
func recordAbandoned(database *db.DB, sequenceName, engineKind string, runErr error) {
	if database == nil {
		return
	}
	err := events.LogRunAbandoned(context.Background(), db.NewEventRepository(database), sequenceName, engineKind, runErr)
	if err != nil {
		logger := logging.Component("run")
		logger.Warn().Err(err).Msg("failed to record abandoned run")
	}
}

type runResult struct {
	ID          string                   `json:"id,omitempty"`
	Sequence    string                   `json:"sequence"`
	Engine      string                   `json:"engine"`
	Runs        int                      `json:"runs"`
	Points      int                      `json:"points"`
	Duration    string                   `json:"duration"`
	Measurement *measurement.Measurement `json:"measurement,omitempty"`
}

// runConfig returns a copy of base with the run flags applied.
func runConfig(cmd *cobra.Command, base *config.Config) *config.Config {
	cfg := *base
	flags := cmd.Flags()
	if flags.Changed("averages") {
		cfg.Simulation.Averages = runAverages
	}
	if flags.Changed("points") {
		cfg.Simulation.NumberPoints = runPoints
	}
	if flags.Changed("noise") {
		cfg.Simulation.Noise = runNoise
	}
	if flags.Changed("parallel") {
		cfg.Simulation.MaxParallelRuns = runParallel
	}
	return &cfg
}

func renderRunSummary(result runResult, m *measurement.Measurement) string {
	pairs := [][2]string{
		{"Measurement", m.Name()},
	}
	if result.ID != "" {
		pairs = append(pairs, [2]string{"ID", result.ID})
	}
	pairs = append(pairs,
		[2]string{"Engine", result.Engine},
		[2]string{"Runs", strconv.Itoa(result.Runs)},
		[2]string{"Points", strconv.Itoa(result.Points)},
	)
	if axis := m.TimeAxis(); len(axis) > 0 {
		pairs = append(pairs, [2]string{"Window", formatMicros(axis[0]) + " .. " + formatMicros(axis[len(axis)-1])})
	}
	pairs = append(pairs,
		[2]string{"Resonance", formatMHz(m.ResonantFrequency())},
		[2]string{"Elapsed", result.Duration},
	)
	return renderSummary(colorize("Simulation complete", colorGreen), pairs)
}
