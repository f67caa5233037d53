// Package dict maps dive computer model numbers to product metadata. A
// built-in table covers the known hardware; a JSON file can add or
// override entries for devices released after this build.
package dict

import (
	"fmt"
	"sort"
	"strings"
)

// Entry describes one hardware model.
type Entry struct {
	Model uint32
	Name  string
	// Petrel marks the Petrel hardware generation and its successors,
	// which record 32-byte samples and may use the native format.
	Petrel bool
}

type Store struct {
	models map[uint32]Entry
}

// builtin is the factory model table. The Predator is the only member of
// the legacy generation.
var builtin = []Entry{
	{Model: 2, Name: "Predator", Petrel: false},
	{Model: 3, Name: "Petrel", Petrel: true},
	{Model: 4, Name: "Nerd", Petrel: true},
	{Model: 5, Name: "Perdix", Petrel: true},
	{Model: 6, Name: "Perdix AI", Petrel: true},
	{Model: 7, Name: "Nerd 2", Petrel: true},
	{Model: 8, Name: "Teric", Petrel: true},
	{Model: 9, Name: "Peregrine", Petrel: true},
	{Model: 10, Name: "Petrel 3", Petrel: true},
	{Model: 11, Name: "Perdix 2", Petrel: true},
	{Model: 12, Name: "Tern", Petrel: true},
}

type JSONFile struct {
	Models []JSONEntry `json:"models"`
}

type JSONEntry struct {
	Model  int    `json:"model"`
	Name   string `json:"name"`
	Petrel bool   `json:"petrel"`
}

// Builtin returns the factory table alone.
func Builtin() *Store {
	store := &Store{models: make(map[uint32]Entry, len(builtin))}
	for _, e := range builtin {
		store.models[e.Model] = e
	}
	return store
}

// FromJSON layers the file entries over the factory table. Entries may
// override builtin models; duplicates within the file are rejected.
func FromJSON(file JSONFile) (*Store, error) {
	store := Builtin()
	seen := make(map[uint32]bool)
	for i, entry := range file.Models {
		if entry.Model < 0 || entry.Model > 0xFFFF {
			return nil, fmt.Errorf("models[%d]: model number out of range", i)
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("models[%d]: empty name", i)
		}
		model := uint32(entry.Model)
		if seen[model] {
			return nil, fmt.Errorf("models[%d]: duplicate model %d", i, model)
		}
		seen[model] = true
		store.models[model] = Entry{Model: model, Name: name, Petrel: entry.Petrel}
	}
	return store, nil
}

// Lookup returns the entry for a model number.
func (s *Store) Lookup(model uint32) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	entry, ok := s.models[model]
	return entry, ok
}

// Name returns the product name, or a placeholder with the raw model
// number for unknown hardware.
func (s *Store) Name(model uint32) string {
	if entry, ok := s.Lookup(model); ok {
		return entry.Name
	}
	return fmt.Sprintf("unknown model %d", model)
}

// Petrel reports whether the model belongs to the Petrel generation.
// Unknown models default to the modern generation.
func (s *Store) Petrel(model uint32) bool {
	if entry, ok := s.Lookup(model); ok {
		return entry.Petrel
	}
	return true
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.models)
}

// Entries returns the table sorted by model number.
func (s *Store) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, 0, len(s.models))
	for _, e := range s.models {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}
