package sequence

import (
	"embed"
	"io/fs"
)

// BuiltinSource is the Source of sequences bundled with the binary.
const BuiltinSource = "builtin"

//go:embed builtin/*.yaml
var builtinFS embed.FS

// LoadBuiltinSequences returns the FID, SE, SEPC and COMPFID reference
// sequences, sorted by name.
func LoadBuiltinSequences() ([]*Sequence, error) {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		return nil, err
	}
	sequences, err := loadFS(sub, BuiltinSource)
	if err != nil {
		return nil, err
	}
	for _, seq := range sequences {
		seq.Source = BuiltinSource
	}
	return sequences, nil
}
