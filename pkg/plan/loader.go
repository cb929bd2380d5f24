package plan

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and strictly decodes a plan document from disk.
func LoadFile(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load strictly decodes a plan document from a reader. Unknown fields are
// rejected at this structural phase; downstream validation never has to
// deal with typos silently becoming no-ops.
func Load(r io.Reader) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("structural decode: %w", err)
	}
	return &p, nil
}
