package sequence

import (
	"os"
	"path/filepath"
	"strings"
)

// SearchPaths returns sequence directories in precedence order.
func SearchPaths(configuredDir string) []string {
	paths := make([]string, 0, 3)
	if configuredDir != "" {
		paths = append(paths, configuredDir)
	}
	paths = append(paths, filepath.Join(".quacksim", "sequences"))

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "quacksim", "sequences"))
	}
	return paths
}

// LoadFromSearchPaths loads sequences from search paths with first-hit
// precedence, followed by builtins not shadowed by a user file.
func LoadFromSearchPaths(configuredDir string) ([]*Sequence, error) {
	seen := make(map[string]*Sequence)
	order := make([]string, 0)

	add := func(items []*Sequence) {
		for _, seq := range items {
			key := strings.ToLower(seq.Name)
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = seq
			order = append(order, key)
		}
	}

	for _, path := range SearchPaths(configuredDir) {
		items, err := LoadSequencesFromDir(path)
		if err != nil {
			return nil, err
		}
		add(items)
	}

	builtins, err := LoadBuiltinSequences()
	if err != nil {
		return nil, err
	}
	add(builtins)

	resolved := make([]*Sequence, 0, len(order))
	for _, key := range order {
		resolved = append(resolved, seen[key])
	}
	return resolved, nil
}

// Resolve finds a sequence by file path or by case-insensitive name.
func Resolve(ref, configuredDir string) (*Sequence, error) {
	ref = strings.TrimSpace(ref)
	if isSequenceFile(ref) {
		return LoadSequence(ref)
	}

	all, err := LoadFromSearchPaths(configuredDir)
	if err != nil {
		return nil, err
	}
	if seq := FindByName(all, ref); seq != nil {
		return seq, nil
	}
	return nil, &NotFoundError{Name: ref}
}

// FindByName returns the sequence with a case-insensitive name match.
func FindByName(items []*Sequence, name string) *Sequence {
	for _, seq := range items {
		if strings.EqualFold(seq.Name, name) {
			return seq
		}
	}
	return nil
}

// NotFoundError reports an unknown sequence reference.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "sequence not found: " + e.Name
}
