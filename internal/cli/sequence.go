package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nqrduck/quacksim/internal/sequence"
	"github.com/spf13/cobra"
)

var sequenceListTags []string

func init() {
	rootCmd.AddCommand(sequenceCmd)
	sequenceCmd.AddCommand(sequenceListCmd)
	sequenceCmd.AddCommand(sequenceShowCmd)

	sequenceListCmd.Flags().StringSliceVar(&sequenceListTags, "tag", nil, "filter by tag (repeatable)")
}

var sequenceCmd = &cobra.Command{
	Use:     "sequence",
	Aliases: []string{"sequences", "seq"},
	Short:   "Inspect pulse sequences",
}

var sequenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available sequences",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := sequence.LoadFromSearchPaths(GetConfig().Sequences.Dir)
		if err != nil {
			return err
		}
		items = filterSequences(items, sequenceListTags)

		if IsJSONOutput() || IsJSONLOutput() {
			out := make([]sequenceInfo, 0, len(items))
			for _, seq := range items {
				out = append(out, describeSequence(seq))
			}
			return WriteOutput(os.Stdout, out)
		}

		rows := make([][]string, 0, len(items))
		for _, seq := range items {
			info := describeSequence(seq)
			rows = append(rows, []string{
				info.Name,
				strconv.Itoa(info.Events),
				formatSeconds(info.Length),
				strings.Join(info.Tags, ","),
				info.Source,
				truncate(info.Description, 50),
			})
		}
		return writeTable(os.Stdout, []string{"NAME", "EVENTS", "LENGTH", "TAGS", "SOURCE", "DESCRIPTION"}, rows)
	},
}

var sequenceShowCmd = &cobra.Command{
	Use:   "show <sequence>",
	Short: "Show the events of a sequence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := sequence.Resolve(args[0], GetConfig().Sequences.Dir)
		if err != nil {
			return &PreflightError{Message: err.Error(), NextStep: "quacksim sequence list", Err: err}
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(os.Stdout, describeSequence(seq))
		}

		fmt.Println(bold(seq.Name))
		if seq.Description != "" {
			fmt.Println(seq.Description)
		}
		fmt.Println()

		rows := make([][]string, 0, len(seq.Events))
		for _, event := range seq.Events {
			rows = append(rows, describeEventRow(event))
		}
		return writeTable(os.Stdout, []string{"EVENT", "DURATION", "TX AMP", "TX PHASE", "SHAPE", "CYCLES", "RX"}, rows)
	},
}

type sequenceInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source"`
	Events      int      `json:"events"`
	Length      float64  `json:"length"`
}

func describeSequence(seq *sequence.Sequence) sequenceInfo {
	source := seq.Source
	if source == "" {
		source = sequence.BuiltinSource
	}
	return sequenceInfo{
		Name:        seq.Name,
		Description: seq.Description,
		Tags:        seq.Tags,
		Source:      source,
		Events:      len(seq.Events),
		Length:      seq.Length(),
	}
}

func describeEventRow(event *sequence.Event) []string {
	row := []string{event.Name, formatSeconds(event.Duration), "-", "-", "-", "-", "off"}
	if tx := event.Transmit(); tx != nil {
		row[2] = strconv.FormatFloat(tx.Amplitude, 'g', -1, 64)
		row[3] = strconv.FormatFloat(tx.Phase, 'g', -1, 64) + "°"
		if tx.Shape != nil && tx.Amplitude != 0 {
			row[4] = tx.Shape.Name()
		}
		if tx.PhaseCycles > 1 {
			row[5] = fmt.Sprintf("%d (group %d)", tx.PhaseCycles, tx.PhaseCycleGroup)
		}
	}
	if event.IsReadout() {
		rx := event.Receive()
		row[6] = "on " + strconv.FormatFloat(rx.Phase, 'g', -1, 64) + "°"
		if len(rx.ReadoutScheme) > 0 {
			row[6] += fmt.Sprintf(" (%d-step scheme)", len(rx.ReadoutScheme))
		}
	}
	return row
}

// filterSequences keeps sequences carrying any of tags.
func filterSequences(items []*sequence.Sequence, tags []string) []*sequence.Sequence {
	if len(tags) == 0 {
		return items
	}
	want := make(map[string]bool, len(tags))
	for _, tag := range tags {
		want[strings.ToLower(strings.TrimSpace(tag))] = true
	}

	var out []*sequence.Sequence
	for _, seq := range items {
		for _, tag := range seq.Tags {
			if want[strings.ToLower(tag)] {
				out = append(out, seq)
				break
			}
		}
	}
	return out
}
