package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nqrduck/quacksim/internal/logging"
	"github.com/nqrduck/quacksim/internal/models"
	"github.com/nqrduck/quacksim/internal/sequence"
)

func formatEventType(event *models.Event) string {
	label, color := eventLabel(event)
	return colorize(formatStatusLabel(label, string(event.Type)), color)
}

func eventLabel(event *models.Event) (string, string) {
	switch event.Type {
	case models.EventTypeRunCompleted:
		return "OK", colorGreen
	case models.EventTypeRunAbandoned:
		var payload models.RunAbandonedPayload
		decodePayload(event, &payload)
		switch payload.Reason {
		case "canceled":
			return "WARN", colorYellow
		case "configuration", "translation":
			return "ERR", colorMagenta
		default:
			return "ERR", colorRed
		}
	default:
		return "INFO", colorCyan
	}
}

// decodePayload unmarshals the event payload into v and reports whether it
// succeeded. Malformed payloads are logged at debug level.
func decodePayload(event *models.Event, v any) bool {
	if err := json.Unmarshal(event.Payload, v); err != nil {
		logger := logging.Component("history")
		logger.Debug().
			Err(err).
			Str("event_id", event.ID).
			Str("type", string(event.Type)).
			Msg("malformed event payload")
		return false
	}
	return true
}

func formatStatusLabel(label, status string) string {
	normalized := strings.TrimSpace(status)
	if normalized != "" {
		normalized = strings.ReplaceAll(normalized, "_", " ")
	}
	if normalized == "" {
		return label
	}
	return fmt.Sprintf("%s %s", label, normalized)
}

func formatMHz(hz float64) string {
	return strconv.FormatFloat(hz/1e6, 'f', -1, 64) + " MHz"
}

func formatMicros(us float64) string {
	return strconv.FormatFloat(us, 'f', 3, 64) + " µs"
}

func formatSeconds(seconds float64) string {
	return sequence.FormatDuration(seconds)
}

func truncate(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}
