// Package knowledge loads the curated question/answer set consulted before
// falling back to generation.
//
// A Base is read-only once loaded. Entries keep the order of the source file,
// which matters for tie-breaking during retrieval.
//
// Source format (JSON, or YAML when the file ends in .yaml/.yml):
//
//	{"data": [{"question": "When was the faculty founded?", "answer": "1969"}]}
package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is a single question/answer record.
type Entry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Format identifies the encoding of a knowledge source.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Base is an ordered, immutable collection of entries.
type Base struct {
	entries []Entry
	source  string
}

// document mirrors the on-disk layout. Data is a pointer so a missing
// top-level field can be told apart from an empty list.
type document struct {
	Data *[]Entry `json:"data" yaml:"data"`
}

// Load reads a knowledge base from path. The format is picked from the
// file extension; anything other than .yaml/.yml is treated as JSON.
func Load(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}

	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}

	base, err := Parse(bytes.NewReader(data), format)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.Source = path
		}
		return nil, err
	}
	base.source = path
	return base, nil
}

// Parse decodes a knowledge base from r.
func Parse(r io.Reader, format Format) (*Base, error) {
	var doc document

	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, &LoadError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
		}
	default:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, &LoadError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
		}
	}

	if doc.Data == nil {
		return nil, &LoadError{Err: ErrMissingData}
	}

	entries := make([]Entry, 0, len(*doc.Data))
	for i, e := range *doc.Data {
		if strings.TrimSpace(e.Question) == "" {
			return nil, &LoadError{Index: i + 1, Err: ErrEmptyQuestion}
		}
		entries = append(entries, e)
	}

	return &Base{entries: entries}, nil
}

// New builds a base directly from entries. The slice is copied.
func New(entries ...Entry) *Base {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Base{entries: cp}
}

// Len returns the number of entries.
func (b *Base) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// At returns the i-th entry.
func (b *Base) At(i int) Entry {
	return b.entries[i]
}

// Entries returns a copy of all entries in source order.
func (b *Base) Entries() []Entry {
	if b == nil {
		return nil
	}
	result := make([]Entry, len(b.entries))
	copy(result, b.entries)
	return result
}

// Source returns the path the base was loaded from, if any.
func (b *Base) Source() string {
	return b.source
}

// Contains reports whether answer is the answer of some entry.
func (b *Base) Contains(answer string) bool {
	for _, e := range b.entries {
		if e.Answer == answer {
			return true
		}
	}
	return false
}
