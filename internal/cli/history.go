package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nqrduck/quacksim/internal/db"
	"github.com/nqrduck/quacksim/internal/models"
	"github.com/spf13/cobra"
)

var (
	historySequence string
	historyType     string
	historySince    time.Duration
	historyLimit    int

	historyPruneOlderThan time.Duration
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historySequence, "sequence", "", "filter by sequence name")
	historyCmd.Flags().StringVar(&historyType, "type", "", "filter by event type (run.completed, run.abandoned, ...)")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only events newer than this (e.g. 24h)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum number of events")

	historyCmd.AddCommand(historyPruneCmd)
	historyPruneCmd.Flags().DurationVar(&historyPruneOlderThan, "older-than", 30*24*time.Hour, "delete ledger entries older than this")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the run ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		q := db.EventQuery{Limit: historyLimit, Newest: true}
		if historySequence != "" {
			entityType := models.EntityTypeSequence
			q.EntityType = &entityType
			q.EntityID = &historySequence
		}
		if historyType != "" {
			eventType := models.EventType(historyType)
			q.Type = &eventType
		}
		if historySince > 0 {
			since := time.Now().Add(-historySince)
			q.Since = &since
		}

		page, err := db.NewEventRepository(database).Query(context.Background(), q)
		if err != nil {
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, page.Events)
		}
		if len(page.Events) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		rows := make([][]string, 0, len(page.Events))
		for _, event := range page.Events {
			rows = append(rows, []string{
				event.Timestamp.Local().Format("2006-01-02 15:04:05"),
				formatEventType(event),
				event.EntityID,
				describeEventPayload(event),
			})
		}
		return writeTable(os.Stdout, []string{"TIME", "EVENT", "ENTITY", "DETAILS"}, rows)
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old ledger entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyPruneOlderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		removed, err := db.NewEventRepository(database).Prune(context.Background(), time.Now().Add(-historyPruneOlderThan))
		if err != nil {
			return err
		}
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, map[string]int64{"removed": removed})
		}
		fmt.Printf("Removed %d ledger entries\n", removed)
		return nil
	},
}

func describeEventPayload(event *models.Event) string {
	switch event.Type {
	case models.EventTypeRunCompleted:
		var p models.RunCompletedPayload
		if !decodePayload(event, &p) {
			return ""
		}
		details := fmt.Sprintf("%d run(s), %d points, %s via %s", p.Runs, p.Points, p.Duration, p.Engine)
		if p.MeasurementID != "" {
			details += ", measurement " + p.MeasurementID
		}
		return details
	case models.EventTypeRunAbandoned:
		var p models.RunAbandonedPayload
		if !decodePayload(event, &p) {
			return ""
		}
		return truncate(p.Reason+": "+p.Error, 80)
	case models.EventTypeMeasurementExported:
		return event.Metadata["domain"] + " -> " + event.Metadata["path"]
	default:
		return ""
	}
}
