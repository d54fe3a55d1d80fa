package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/nqrduck/quacksim/internal/db"
	"github.com/nqrduck/quacksim/internal/events"
	"github.com/nqrduck/quacksim/internal/logging"
	"github.com/nqrduck/quacksim/internal/measurement"
	"github.com/nqrduck/quacksim/internal/models"
	"github.com/spf13/cobra"
)

const (
	domainTime      = "time"
	domainFrequency = "frequency"
)

var (
	measurementListSequence string
	measurementListSince    time.Duration
	measurementListLimit    int

	measurementShowPoints int

	measurementExportDomain string
	measurementExportOutput string
)

func init() {
	rootCmd.AddCommand(measurementCmd)
	measurementCmd.AddCommand(measurementListCmd)
	measurementCmd.AddCommand(measurementShowCmd)
	measurementCmd.AddCommand(measurementExportCmd)
	measurementCmd.AddCommand(measurementDeleteCmd)

	measurementListCmd.Flags().StringVar(&measurementListSequence, "sequence", "", "filter by sequence name")
	measurementListCmd.Flags().DurationVar(&measurementListSince, "since", 0, "only measurements newer than this (e.g. 24h)")
	measurementListCmd.Flags().IntVar(&measurementListLimit, "limit", 20, "maximum number of measurements")

	measurementShowCmd.Flags().IntVar(&measurementShowPoints, "points", 5, "number of leading samples to print")

	measurementExportCmd.Flags().StringVar(&measurementExportDomain, "domain", domainTime, "domain to export (time, frequency)")
	measurementExportCmd.Flags().StringVarP(&measurementExportOutput, "output", "o", "-", "output file (- for stdout)")
}

var measurementCmd = &cobra.Command{
	Use:     "measurement",
	Aliases: []string{"measurements", "m"},
	Short:   "Inspect stored measurements",
}

var measurementListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored measurements",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		q := db.MeasurementQuery{Sequence: measurementListSequence, Limit: measurementListLimit}
		if measurementListSince > 0 {
			since := time.Now().Add(-measurementListSince)
			q.Since = &since
		}
		records, err := db.NewMeasurementRepository(database).List(context.Background(), q)
		if err != nil {
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, records)
		}
		if len(records) == 0 {
			fmt.Println("No measurements stored. Run one with: quacksim run FID")
			return nil
		}

		rows := make([][]string, 0, len(records))
		for _, rec := range records {
			rows = append(rows, []string{
				rec.ID,
				rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				rec.Sequence,
				strconv.Itoa(rec.Averages),
				strconv.Itoa(rec.Points),
				rec.Engine,
			})
		}
		return writeTable(os.Stdout, []string{"ID", "CREATED", "SEQUENCE", "AVERAGES", "POINTS", "ENGINE"}, rows)
	},
}

var measurementShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored measurement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		rec, err := db.NewMeasurementRepository(database).Get(context.Background(), args[0])
		if err != nil {
			return measurementLookupError(args[0], err)
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, rec)
		}

		m := rec.Measurement
		pairs := [][2]string{
			{"ID", rec.ID},
			{"Sequence", rec.Sequence},
			{"Created", rec.CreatedAt.Local().Format(time.RFC3339)},
			{"Engine", rec.Engine},
			{"Averages", strconv.Itoa(rec.Averages)},
			{"Points", strconv.Itoa(m.Len())},
			{"Resonance", formatMHz(m.ResonantFrequency())},
		}
		if m.TargetFrequency() != 0 {
			pairs = append(pairs, [2]string{"Target", formatMHz(m.TargetFrequency())})
		}
		for _, key := range slices.Sorted(maps.Keys(rec.Metadata)) {
			pairs = append(pairs, [2]string{key, rec.Metadata[key]})
		}
		fmt.Println(renderSummary(m.Name(), pairs))

		ledger, err := db.NewEventRepository(database).ListByEntity(context.Background(), models.EntityTypeMeasurement, rec.ID, 20)
		if err != nil {
			return err
		}
		for _, event := range ledger {
			fmt.Printf("%s  %s  %s\n", event.Timestamp.Local().Format("2006-01-02 15:04:05"), formatEventType(event), describeEventPayload(event))
		}

		n := min(measurementShowPoints, m.Len())
		if n <= 0 {
			return nil
		}
		fmt.Println()
		axis, signal := m.TimeAxis(), m.Signal()
		rows := make([][]string, 0, n)
		for i := 0; i < n; i++ {
			rows = append(rows, []string{
				formatMicros(axis[i]),
				strconv.FormatFloat(real(signal[i]), 'g', 6, 64),
				strconv.FormatFloat(imag(signal[i]), 'g', 6, 64),
			})
		}
		return writeTable(os.Stdout, []string{"TIME", "REAL", "IMAG"}, rows)
	},
}

var measurementExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a measurement as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateDomain(measurementExportDomain); err != nil {
			return err
		}

		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		rec, err := db.NewMeasurementRepository(database).Get(context.Background(), args[0])
		if err != nil {
			return measurementLookupError(args[0], err)
		}

		if measurementExportOutput == "-" {
			if err := writeMeasurementCSV(os.Stdout, rec.Measurement, measurementExportDomain); err != nil {
				return err
			}
		} else if err := writeMeasurementFile(measurementExportOutput, rec.Measurement, measurementExportDomain); err != nil {
			return err
		}

		if err := events.LogMeasurementExported(context.Background(), db.NewEventRepository(database), rec.ID, measurementExportDomain, measurementExportOutput); err != nil {
			logger := logging.Component("measurement")
			logger.Warn().Err(err).Msg("failed to record export")
		}
		return nil
	},
}

var measurementDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored measurement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := context.Background()
		if err := db.NewMeasurementRepository(database).Delete(ctx, args[0]); err != nil {
			return measurementLookupError(args[0], err)
		}
		if err := events.LogMeasurementDeleted(ctx, db.NewEventRepository(database), args[0]); err != nil {
			logger := logging.Component("measurement")
			logger.Warn().Err(err).Msg("failed to record deletion")
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, map[string]string{"deleted": args[0]})
		}
		fmt.Printf("Deleted measurement %s\n", args[0])
		return nil
	},
}

func measurementLookupError(id string, err error) error {
	if errors.Is(err, db.ErrMeasurementNotFound) {
		return &PreflightError{
			Message:  fmt.Sprintf("measurement %s not found", id),
			NextStep: "quacksim measurement list",
			Err:      err,
		}
	}
	return err
}

func validateDomain(domain string) error {
	switch domain {
	case domainTime, domainFrequency:
		return nil
	default:
		return fmt.Errorf("unknown domain %q (want %s or %s)", domain, domainTime, domainFrequency)
	}
}

func writeMeasurementFile(path string, m *measurement.Measurement, domain string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeMeasurementCSV(f, m, domain); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeMeasurementCSV writes one row per sample: time in µs or frequency in
// kHz, then the real and imaginary parts.
func writeMeasurementCSV(out io.Writer, m *measurement.Measurement, domain string) error {
	var axis []float64
	var values []complex128
	var header string

	switch domain {
	case domainTime:
		axis, values, header = m.TimeAxis(), m.Signal(), "time_us"
	case domainFrequency:
		axis, values = m.FrequencyDomain()
		header = "frequency_khz"
	default:
		return validateDomain(domain)
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{header, "real", "imag"}); err != nil {
		return err
	}
	for i := range values {
		if err := w.Write([]string{
			strconv.FormatFloat(axis[i], 'g', -1, 64),
			strconv.FormatFloat(real(values[i]), 'g', -1, 64),
			strconv.FormatFloat(imag(values[i]), 'g', -1, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
