// Package archive persists dive summaries in an embedded key/value store.
// Dives are keyed by a time-sortable id so listings come back in ingest
// order, with a fingerprint index for deduplication.
package archive

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	json "github.com/goccy/go-json"
	"github.com/segmentio/ksuid"

	"example.com/divelog/internal/export"
)

const (
	divePrefix        = "dive/"
	fingerprintPrefix = "fp/"
)

// ErrNotFound reports a missing dive id or fingerprint.
var ErrNotFound = errors.New("dive not found")

// Stored is one archived dive with its assigned id.
type Stored struct {
	ID      string         `json:"id"`
	Summary export.Summary `json:"summary"`
}

type Store struct {
	db *pebble.DB
}

func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put archives a summary. A dive with the same fingerprint keeps its
// original id; the second return reports whether a new entry was created.
func (s *Store) Put(sum export.Summary) (string, bool, error) {
	if sum.Fingerprint == "" {
		return "", false, fmt.Errorf("summary without fingerprint")
	}

	if id, err := s.idForFingerprint(sum.Fingerprint); err == nil {
		return id, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", false, err
	}

	id := ksuid.New().String()
	data, err := json.Marshal(sum)
	if err != nil {
		return "", false, err
	}
	if err := s.db.Set([]byte(divePrefix+id), data, pebble.NoSync); err != nil {
		return "", false, err
	}
	if err := s.db.Set([]byte(fingerprintPrefix+sum.Fingerprint), []byte(id), pebble.Sync); err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *Store) idForFingerprint(fp string) (string, error) {
	data, closer, err := s.db.Get([]byte(fingerprintPrefix + fp))
	if err == pebble.ErrNotFound {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	id := string(data)
	if err := closer.Close(); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns the archived summary for an id.
func (s *Store) Get(id string) (export.Summary, error) {
	data, closer, err := s.db.Get([]byte(divePrefix + id))
	if err == pebble.ErrNotFound {
		return export.Summary{}, ErrNotFound
	}
	if err != nil {
		return export.Summary{}, err
	}
	defer closer.Close()

	var sum export.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return export.Summary{}, err
	}
	return sum, nil
}

// ByFingerprint resolves a raw dive log fingerprint to its archive entry.
func (s *Store) ByFingerprint(fp string) (Stored, error) {
	id, err := s.idForFingerprint(fp)
	if err != nil {
		return Stored{}, err
	}
	sum, err := s.Get(id)
	if err != nil {
		return Stored{}, err
	}
	return Stored{ID: id, Summary: sum}, nil
}

// List returns archived dives in id order, oldest first. A non-positive
// limit returns everything.
func (s *Store) List(limit int) ([]Stored, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(divePrefix),
		UpperBound: []byte(divePrefix + "\xff"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Stored
	for iter.First(); iter.Valid(); iter.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		var sum export.Summary
		if err := json.Unmarshal(iter.Value(), &sum); err != nil {
			return nil, fmt.Errorf("corrupt entry %s: %w", iter.Key(), err)
		}
		out = append(out, Stored{
			ID:      string(iter.Key()[len(divePrefix):]),
			Summary: sum,
		})
	}
	return out, iter.Error()
}
