package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/nqrduck/quacksim/internal/sequence"
	"github.com/nqrduck/quacksim/internal/simulator"
	"github.com/spf13/cobra"
)

var (
	translatePoints int
	translateOutput string
)

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().IntVar(&translatePoints, "points", 0, "override simulation.number_points")
	translateCmd.Flags().StringVarP(&translateOutput, "output", "o", "", "write the sampled waveform as CSV to this file (- for stdout)")
}

var translateCmd = &cobra.Command{
	Use:   "translate <sequence>",
	Short: "Show the sampled waveform of a sequence without simulating",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *GetConfig()
		if cmd.Flags().Changed("points") {
			cfg.Simulation.NumberPoints = translatePoints
		}

		seq, err := sequence.Resolve(args[0], cfg.Sequences.Dir)
		if err != nil {
			return &PreflightError{
				Message:  err.Error(),
				NextStep: "quacksim sequence list",
				Err:      err,
			}
		}

		controller, err := simulator.New(&cfg, nil)
		if err != nil {
			return err
		}
		plan, err := controller.Prepare(seq)
		if err != nil {
			return err
		}

		if translateOutput != "" {
			out := io.Writer(os.Stdout)
			if translateOutput != "-" {
				f, err := os.Create(translateOutput)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", translateOutput, err)
				}
				defer f.Close()
				out = f
			}
			return writePlanCSV(out, plan)
		}

		summary := summarizePlan(plan)
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, summary)
		}

		pairs := [][2]string{
			{"Length", formatSeconds(seq.Length())},
			{"Dwell time", formatSeconds(plan.DwellTime)},
			{"Samples", strconv.Itoa(summary.Samples)},
			{"Runs", strconv.Itoa(summary.Runs)},
		}
		if plan.HasWindow {
			pairs = append(pairs, [2]string{"Window", formatMicros(plan.Window.Begin) + " .. " + formatMicros(plan.Window.Stop)})
		} else {
			pairs = append(pairs, [2]string{"Window", "none (full signal)"})
		}
		fmt.Println(renderSummary("Sequence "+seq.Name, pairs))
		fmt.Println()

		rows := make([][]string, 0, len(summary.Events))
		for _, ev := range summary.Events {
			rows = append(rows, []string{
				ev.Name,
				formatSeconds(ev.Duration),
				strconv.Itoa(ev.Samples),
				formatYesNo(ev.Transmit),
				formatYesNo(ev.Readout),
			})
		}
		return writeTable(os.Stdout, []string{"EVENT", "DURATION", "SAMPLES", "TX", "RX"}, rows)
	},
}

type planSummary struct {
	Sequence    string         `json:"sequence"`
	DwellTime   float64        `json:"dwell_time"`
	Samples     int            `json:"samples"`
	Runs        int            `json:"runs"`
	WindowBegin *float64       `json:"window_begin_us,omitempty"`
	WindowStop  *float64       `json:"window_stop_us,omitempty"`
	Events      []eventSummary `json:"events"`
}

type eventSummary struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
	Samples  int     `json:"samples"`
	Transmit bool    `json:"transmit"`
	Readout  bool    `json:"readout"`
}

func summarizePlan(plan *simulator.Plan) planSummary {
	summary := planSummary{
		Sequence:  plan.Sequence.Name,
		DwellTime: plan.DwellTime,
		Runs:      len(plan.Pulses),
	}
	if len(plan.Pulses) > 0 {
		summary.Samples = plan.Pulses[0].Len()
	}
	if plan.HasWindow {
		begin, stop := plan.Window.Begin, plan.Window.Stop
		summary.WindowBegin = &begin
		summary.WindowStop = &stop
	}
	for _, event := range plan.Sequence.Events {
		tx := event.Transmit()
		summary.Events = append(summary.Events, eventSummary{
			Name:     event.Name,
			Duration: event.Duration,
			Samples:  sequence.SampleCount(event.Duration, plan.DwellTime),
			Transmit: tx != nil && tx.Amplitude != 0,
			Readout:  event.IsReadout(),
		})
	}
	return summary
}

func writePlanCSV(out io.Writer, plan *simulator.Plan) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"run", "index", "time_us", "amplitude", "phase"}); err != nil {
		return err
	}
	for run, pulse := range plan.Pulses {
		for i := range pulse.Amplitude {
			t := float64(i) * pulse.DwellTime * 1e6
			if err := w.Write([]string{
				strconv.Itoa(run),
				strconv.Itoa(i),
				strconv.FormatFloat(t, 'g', -1, 64),
				strconv.FormatFloat(pulse.Amplitude[i], 'g', -1, 64),
				strconv.FormatFloat(pulse.Phase[i], 'g', -1, 64),
			}); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}
