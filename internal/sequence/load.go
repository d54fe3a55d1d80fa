package sequence

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Event types accepted in sequence files.
const (
	EventTypePulse   = "pulse"
	EventTypeBlank   = "blank"
	EventTypeReadout = "readout"
)

type sequenceFile struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Tags        []string    `yaml:"tags,omitempty"`
	Events      []eventFile `yaml:"events"`
}

type eventFile struct {
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type,omitempty"`
	Duration string  `yaml:"duration"`
	TX       *txFile `yaml:"tx,omitempty"`
	RX       *rxFile `yaml:"rx,omitempty"`
}

type txFile struct {
	Amplitude       float64 `yaml:"amplitude"`
	Phase           float64 `yaml:"phase"`
	Shape           string  `yaml:"shape,omitempty"`
	PhaseCycles     int     `yaml:"phase_cycles,omitempty"`
	PhaseCycleGroup int     `yaml:"phase_cycle_group,omitempty"`
}

type rxFile struct {
	Enabled       *bool         `yaml:"enabled,omitempty"`
	Phase         float64       `yaml:"phase"`
	ReadoutScheme []ReadoutStep `yaml:"readout_scheme,omitempty"`
}

// LoadSequence reads a single sequence from disk.
func LoadSequence(path string) (*Sequence, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sequence path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sequence %s: %w", path, err)
	}

	seq, err := ParseSequence(data)
	if err != nil {
		return nil, fmt.Errorf("parse sequence %s: %w", path, err)
	}
	seq.Source = path
	return seq, nil
}

// LoadSequencesFromDir loads every .yaml/.yml file directly inside dir,
// sorted by sequence name. A missing or empty dir yields no sequences.
func LoadSequencesFromDir(dir string) ([]*Sequence, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return loadFS(os.DirFS(dir), dir)
}

// loadFS parses the top-level sequence files of fsys. origin prefixes the
// file names used as Source and in errors.
func loadFS(fsys fs.FS, origin string) ([]*Sequence, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read sequences dir %s: %w", origin, err)
	}

	var sequences []*Sequence
	for _, entry := range entries {
		if entry.IsDir() || !isSequenceFile(entry.Name()) {
			continue
		}
		path := filepath.Join(origin, entry.Name())
		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read sequence %s: %w", path, err)
		}
		seq, err := ParseSequence(data)
		if err != nil {
			return nil, fmt.Errorf("parse sequence %s: %w", path, err)
		}
		seq.Source = path
		sequences = append(sequences, seq)
	}

	slices.SortFunc(sequences, func(a, b *Sequence) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return sequences, nil
}

func isSequenceFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// ParseSequence decodes a YAML sequence document.
func ParseSequence(data []byte) (*Sequence, error) {
	var file sequenceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	seq := New(file.Name)
	if seq.Name == "" {
		return nil, fmt.Errorf("sequence name is required")
	}
	seq.Description = strings.TrimSpace(file.Description)
	seq.Tags = file.Tags

	if len(file.Events) == 0 {
		return nil, fmt.Errorf("sequence events are required")
	}

	for i := range file.Events {
		event, err := buildEvent(&file.Events[i])
		if err != nil {
			return nil, fmt.Errorf("sequence event %d: %w", i+1, err)
		}
		if err := seq.AddEvent(event); err != nil {
			return nil, fmt.Errorf("sequence event %d: %w", i+1, err)
		}
	}

	return seq, nil
}

func buildEvent(ef *eventFile) (*Event, error) {
	duration, err := ParseDuration(ef.Duration)
	if err != nil {
		return nil, err
	}

	event := &Event{Name: strings.TrimSpace(ef.Name), Duration: duration}
	eventType := strings.ToLower(strings.TrimSpace(ef.Type))

	switch eventType {
	case "":
	case EventTypePulse:
		if ef.TX == nil || ef.TX.Amplitude == 0 {
			return nil, fmt.Errorf("pulse %q needs a non-zero tx amplitude", event.Name)
		}
	case EventTypeBlank:
		if ef.TX == nil {
			ef.TX = &txFile{}
		}
	case EventTypeReadout:
		if ef.TX == nil {
			ef.TX = &txFile{}
		}
		if ef.RX == nil {
			ef.RX = &rxFile{}
		}
		if ef.RX.Enabled == nil {
			enabled := true
			ef.RX.Enabled = &enabled
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", ef.Type)
	}

	if ef.TX != nil {
		tx := &TransmitPulse{
			Amplitude:       ef.TX.Amplitude,
			Phase:           ef.TX.Phase,
			PhaseCycles:     ef.TX.PhaseCycles,
			PhaseCycleGroup: ef.TX.PhaseCycleGroup,
		}
		if tx.PhaseCycles < 0 {
			return nil, fmt.Errorf("phase_cycles must be >= 0")
		}
		if tx.Amplitude != 0 || ef.TX.Shape != "" {
			shape, err := ShapeByName(ef.TX.Shape)
			if err != nil {
				return nil, err
			}
			tx.Shape = shape
		}
		event.Parameters = append(event.Parameters, tx)
	}

	if ef.RX != nil {
		rx := &ReceiveGate{
			Phase:         ef.RX.Phase,
			ReadoutScheme: ef.RX.ReadoutScheme,
		}
		if ef.RX.Enabled != nil {
			rx.Enabled = *ef.RX.Enabled
		}
		event.Parameters = append(event.Parameters, rx)
	}

	return event, nil
}
