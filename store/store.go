// Package store persists comparison results in a bbolt database.
package store

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"lapcompare/models"
)

var comparisonsBucket = []byte("comparisons")

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("store: comparison not found")

// Entry is the listing view of a stored comparison.
type Entry struct {
	ID           string    `json:"id"`
	Driver1      string    `json:"driver1"`
	Driver2      string    `json:"driver2"`
	FasterDriver string    `json:"fasterDriver"`
	LapTimeGap   float64   `json:"lapTimeGap"`
	Created      time.Time `json:"created"`
}

type record struct {
	Entry      Entry              `json:"entry"`
	Comparison *models.Comparison `json:"comparison"`
}

type Store struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "store: could not open %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(comparisonsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store: could not create bucket")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NewID returns a fresh comparison id.
func NewID() string {
	return uuid.New().String()
}

// Put stores c under id, replacing any earlier result with that id. c.ID is set to id.
func (s *Store) Put(id string, c *models.Comparison) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.Wrapf(err, "store: invalid id %q", id)
	}
	if c == nil {
		return errors.New("store: nil comparison")
	}
	c.ID = id

	rec := record{
		Entry: Entry{
			ID:           id,
			Driver1:      c.Driver1.Name,
			Driver2:      c.Driver2.Name,
			FasterDriver: c.Summary.FasterDriver,
			LapTimeGap:   c.Summary.LapTimeGap,
			Created:      time.Now().UTC(),
		},
		Comparison: c,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "store: could not encode comparison")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(comparisonsBucket).Put([]byte(id), data)
	})
}

// Get returns the raw JSON of the stored comparison, so callers can serve it
// without decoding.
func (s *Store) Get(id string) ([]byte, error) {
	var out []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(comparisonsBucket).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}

		var rec struct {
			Comparison json.RawMessage `json:"comparison"`
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return errors.Wrapf(err, "store: corrupt record %s", id)
		}
		out = append([]byte(nil), rec.Comparison...)
		return nil
	})

	return out, err
}

// Comparison decodes the stored comparison.
func (s *Store) Comparison(id string) (*models.Comparison, error) {
	data, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	var c models.Comparison
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrapf(err, "store: corrupt comparison %s", id)
	}
	return &c, nil
}

// List returns every stored entry, newest first.
func (s *Store) List() ([]Entry, error) {
	entries := []Entry{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(comparisonsBucket).ForEach(func(k, v []byte) error {
			var rec struct {
				Entry Entry `json:"entry"`
			}
			if err := json.Unmarshal(v, &rec); err != nil {
				return errors.Wrapf(err, "store: corrupt record %s", k)
			}
			entries = append(entries, rec.Entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Created.After(entries[j].Created)
	})
	return entries, nil
}

// Delete removes a stored comparison. Unknown ids are not an error.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(comparisonsBucket).Delete([]byte(id))
	})
}
