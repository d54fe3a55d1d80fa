package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/nqrduck/quacksim/internal/logging"
	"github.com/nqrduck/quacksim/internal/models"
	"github.com/stretchr/testify/require"
)

func TestEventLabel(t *testing.T) {
	abandoned := func(reason string) *models.Event {
		payload, err := json.Marshal(models.RunAbandonedPayload{Reason: reason, Error: "boom"})
		require.NoError(t, err)
		return &models.Event{Type: models.EventTypeRunAbandoned, Payload: payload}
	}

	tests := []struct {
		name      string
		event     *models.Event
		wantLabel string
		wantColor string
	}{
		{"completed", &models.Event{Type: models.EventTypeRunCompleted}, "OK", colorGreen},
		{"canceled", abandoned("canceled"), "WARN", colorYellow},
		{"translation", abandoned("translation"), "ERR", colorMagenta},
		{"engine", abandoned("engine"), "ERR", colorRed},
		{"exported", &models.Event{Type: models.EventTypeMeasurementExported}, "INFO", colorCyan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, color := eventLabel(tt.event)
			require.Equal(t, tt.wantLabel, label)
			require.Equal(t, tt.wantColor, color)
		})
	}
}

func TestMalformedPayloadIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logging.InitWithWriter(logging.Config{Level: "debug", Format: "json"}, &buf)
	t.Cleanup(func() { logging.InitWithWriter(logging.Config{}, &bytes.Buffer{}) })

	event := &models.Event{
		ID:      "evt-1",
		Type:    models.EventTypeRunAbandoned,
		Payload: json.RawMessage(`{"reason": `),
	}

	label, color := eventLabel(event)
	require.Equal(t, "ERR", label)
	require.Equal(t, colorRed, color)
	require.Empty(t, describeEventPayload(event))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	require.Equal(t, "debug", entry["level"])
	require.Equal(t, "history", entry["component"])
	require.Equal(t, "evt-1", entry["event_id"])
	require.Equal(t, "malformed event payload", entry["message"])
	require.NotEmpty(t, entry["error"])
}
