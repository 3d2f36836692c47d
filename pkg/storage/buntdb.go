package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/tidwall/buntdb"

	"github.com/gambcl/chartstudies/pkg/core"
)

const (
	signalPrefix = "signal:"
	timeIndex    = "signal_time"
)

// BuntStorage implements core.SignalStorage on a BuntDB key/value store
type BuntStorage struct {
	lastID int64
	db     *buntdb.DB
}

// record wraps a signal with a numeric timestamp so the index sorts
// chronologically regardless of the signal's time zone
type record struct {
	Unix   int64       `json:"unix"`
	Signal core.Signal `json:"signal"`
}

// FromMemory creates an in-memory storage
func FromMemory() (*BuntStorage, error) {
	return NewBuntStorage(":memory:")
}

// FromFile creates a file-based storage
func FromFile(file string) (*BuntStorage, error) {
	return NewBuntStorage(file)
}

// NewBuntStorage opens a BuntDB file (or ":memory:") and resumes the ID sequence
func NewBuntStorage(sourceFile string) (*BuntStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex(timeIndex, signalPrefix+"*", buntdb.IndexJSON("unix"))
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	storage := &BuntStorage{db: db}

	err = db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(signalPrefix+"*", func(key, _ string) bool {
			id, err := strconv.ParseInt(strings.TrimPrefix(key, signalPrefix), 10, 64)
			if err == nil && id > storage.lastID {
				storage.lastID = id
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan signals: %w", err)
	}

	return storage, nil
}

func (b *BuntStorage) getID() int64 {
	return atomic.AddInt64(&b.lastID, 1)
}

func signalKey(id int64) string {
	return fmt.Sprintf("%s%020d", signalPrefix, id)
}

// CreateSignal stores a new signal, assigning its ID
func (b *BuntStorage) CreateSignal(signal *core.Signal) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		signal.ID = b.getID()
		content, err := json.Marshal(record{Unix: signal.Time.UnixMilli(), Signal: *signal})
		if err != nil {
			return fmt.Errorf("failed to marshal signal: %w", err)
		}

		_, _, err = tx.Set(signalKey(signal.ID), string(content), nil)
		if err != nil {
			return fmt.Errorf("failed to store signal: %w", err)
		}

		return nil
	})
}

// Signals retrieves the signals matching all filters, oldest first
func (b *BuntStorage) Signals(filters ...core.SignalFilter) ([]*core.Signal, error) {
	signals := make([]*core.Signal, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		var decodeErr error
		err := tx.Ascend(timeIndex, func(key, value string) bool {
			var r record
			if err := json.Unmarshal([]byte(value), &r); err != nil {
				decodeErr = fmt.Errorf("failed to unmarshal signal %s: %w", key, err)
				return false
			}

			for _, filter := range filters {
				if !filter(r.Signal) {
					return true
				}
			}

			signal := r.Signal
			signals = append(signals, &signal)
			return true
		})
		if err != nil {
			return fmt.Errorf("failed to iterate over signals: %w", err)
		}
		return decodeErr
	})
	if err != nil {
		return nil, err
	}

	return signals, nil
}

// Close closes the database
func (b *BuntStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
