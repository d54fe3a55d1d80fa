package sequence

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSequence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fid.yaml")

	yaml := `name: custom-fid
description: Example FID
events:
  - name: tx
    type: pulse
    duration: 3u
    tx:
      amplitude: 100
      phase: 90
      shape: gaussian
      phase_cycles: 2
  - name: blank
    type: blank
    duration: 5u
  - name: rx
    type: readout
    duration: 100u
    rx:
      phase: 45
`

	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write sequence: %v", err)
	}

	seq, err := LoadSequence(path)
	if err != nil {
		t.Fatalf("LoadSequence: %v", err)
	}

	if seq.Name != "custom-fid" {
		t.Fatalf("expected name custom-fid, got %q", seq.Name)
	}
	if seq.Source != path {
		t.Fatalf("expected source %q, got %q", path, seq.Source)
	}
	if len(seq.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(seq.Events))
	}

	tx := seq.Events[0].Transmit()
	if tx == nil || tx.Phase != 90 || tx.PhaseCycles != 2 {
		t.Fatalf("unexpected tx parameter: %+v", tx)
	}
	if _, ok := tx.Shape.(GaussianFunction); !ok {
		t.Fatalf("expected gaussian shape, got %T", tx.Shape)
	}

	blank := seq.Events[1].Transmit()
	if blank == nil || blank.Amplitude != 0 {
		t.Fatalf("expected blank event to get a zero tx parameter, got %+v", blank)
	}

	rx := seq.Events[2].Receive()
	if rx == nil || !rx.Enabled || rx.Phase != 45 {
		t.Fatalf("unexpected rx parameter: %+v", rx)
	}
}

func TestParseSequenceKeepsMissingTransmit(t *testing.T) {
	seq, err := ParseSequence([]byte(`name: broken
events:
  - name: mystery
    duration: 10u
`))
	if err != nil {
		t.Fatalf("ParseSequence: %v", err)
	}
	if seq.Events[0].Transmit() != nil {
		t.Fatal("expected untyped event without tx to have no transmit parameter")
	}
}

func TestParseSequenceErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "events:\n  - name: a\n    duration: 1u\n"},
		{"no events", "name: x\n"},
		{"bad duration", "name: x\nevents:\n  - name: a\n    duration: soon\n"},
		{"infinite duration", "name: x\nevents:\n  - name: rx\n    type: readout\n    duration: inf\n"},
		{"nan duration", "name: x\nevents:\n  - name: a\n    duration: NaN\n"},
		{"unknown type", "name: x\nevents:\n  - name: a\n    type: jump\n    duration: 1u\n"},
		{"pulse without amplitude", "name: x\nevents:\n  - name: a\n    type: pulse\n    duration: 1u\n"},
		{"unknown shape", "name: x\nevents:\n  - name: a\n    duration: 1u\n    tx:\n      amplitude: 1\n      shape: star\n"},
		{"duplicate event", "name: x\nevents:\n  - name: a\n    duration: 1u\n  - name: a\n    duration: 1u\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSequence([]byte(tt.yaml)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadSequencesFromDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.yaml":   "name: bravo\nevents:\n  - name: a\n    type: blank\n    duration: 1u\n",
		"a.yml":    "name: alpha\nevents:\n  - name: a\n    type: blank\n    duration: 1u\n",
		"notes.md": "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	seqs, err := LoadSequencesFromDir(dir)
	if err != nil {
		t.Fatalf("LoadSequencesFromDir: %v", err)
	}
	if len(seqs) != 2 || seqs[0].Name != "alpha" || seqs[1].Name != "bravo" {
		t.Fatalf("unexpected sequences: %+v", seqs)
	}

	missing, err := LoadSequencesFromDir(filepath.Join(dir, "missing"))
	if err != nil || len(missing) != 0 {
		t.Fatalf("expected empty result for missing dir, got %v, %v", missing, err)
	}
}

func TestLoadBuiltinSequences(t *testing.T) {
	seqs, err := LoadBuiltinSequences()
	if err != nil {
		t.Fatalf("LoadBuiltinSequences: %v", err)
	}

	for _, name := range []string{"COMPFID", "FID", "SE", "SEPC"} {
		seq := FindByName(seqs, name)
		if seq == nil {
			t.Fatalf("builtin %s missing", name)
		}
		if seq.Source != "builtin" {
			t.Fatalf("expected builtin source, got %q", seq.Source)
		}
		if _, err := NewPhaseTable(seq); err != nil {
			t.Fatalf("phase table for %s: %v", name, err)
		}
	}

	sepc := FindByName(seqs, "sepc")
	table, _ := NewPhaseTable(sepc)
	if table.Runs() != 4 {
		t.Fatalf("expected SEPC to need 4 runs, got %d", table.Runs())
	}
}

func TestResolvePrefersUserFiles(t *testing.T) {
	dir := t.TempDir()
	content := "name: FID\ndescription: user override\nevents:\n  - name: a\n    type: blank\n    duration: 1u\n"
	if err := os.WriteFile(filepath.Join(dir, "fid.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	seq, err := Resolve("fid", dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if seq.Description != "user override" {
		t.Fatalf("expected user sequence to shadow builtin, got %q", seq.Description)
	}

	if _, err := Resolve("does-not-exist", dir); err == nil {
		t.Fatal("expected not found error")
	}

	byPath, err := Resolve(filepath.Join(dir, "fid.yaml"), "")
	if err != nil || byPath.Source == "builtin" {
		t.Fatalf("expected path resolution, got %v, %v", byPath, err)
	}
}
