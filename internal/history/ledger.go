// Package history is the append-only ledger of print attempts. Entries are
// immutable once recorded; aggregates are recomputed on demand so they can
// never drift from the log.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thereceipt/pos-print-engine/pkg/document"
)

const keyPrefix = "entry_"

// Entry is one print attempt: one per print() call, never one per copy.
type Entry struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Role         string        `json:"role"`
	PrinterName  string        `json:"printer_name"`
	DocumentType document.Type `json:"document_type"`
	Reference    string        `json:"reference,omitempty"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}

// Ledger stores entries in badger under time-ordered keys, bounded to a
// configurable number of most-recent entries.
type Ledger struct {
	db     *badger.DB
	cap    int
	logger *zap.Logger
}

// Open opens (or creates) the ledger in dir. An empty dir opens an
// in-memory ledger, used by tests and embedders that do not want disk.
func Open(dir string, maxEntries int, logger *zap.Logger) (*Ledger, error) {
	if maxEntries < 1 {
		return nil, fmt.Errorf("history cap must be positive, got %d", maxEntries)
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir).
			WithValueLogFileSize(1 << 20).
			WithSyncWrites(false)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}

	return &Ledger{db: db, cap: maxEntries, logger: logger}, nil
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record appends one entry, evicting the oldest entries once the cap is
// exceeded. Missing id/timestamp are filled in.
func (l *Ledger) Record(entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	// Zero-padded nanos keep lexicographic key order equal to time order.
	key := fmt.Sprintf("%s%020d_%s", keyPrefix, entry.Timestamp.UnixNano(), entry.ID)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	err = l.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), data); err != nil {
			return err
		}
		return l.evictLocked(txn)
	})
	if err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}

	l.logger.Debug("recorded print attempt",
		zap.String("id", entry.ID),
		zap.String("document", string(entry.DocumentType)),
		zap.Bool("success", entry.Success))
	return nil
}

// evictLocked removes oldest-first until at most cap entries remain. Runs
// inside the Record transaction so readers never see an over-cap ledger.
func (l *Ledger) evictLocked(txn *badger.Txn) error {
	itOpts := badger.DefaultIteratorOptions
	itOpts.PrefetchValues = false
	it := txn.NewIterator(itOpts)
	defer it.Close()

	prefix := []byte(keyPrefix)
	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}

	for i := 0; len(keys)-i > l.cap; i++ {
		if err := txn.Delete(keys[i]); err != nil {
			return err
		}
	}
	return nil
}

// Recent returns up to limit entries, most recent first.
func (l *Ledger) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = l.cap
	}

	var entries []Entry
	err := l.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Reverse = true
		it := txn.NewIterator(itOpts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		// In reverse mode the seek key must sort after every entry key.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(entries) < limit; it.Next() {
			var entry Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return entries, nil
}
