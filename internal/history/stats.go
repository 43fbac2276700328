package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Statistics are derived aggregates over the current ledger contents.
type Statistics struct {
	Total           int            `json:"total"`
	Successful      int            `json:"successful"`
	Failed          int            `json:"failed"`
	SuccessRate     float64        `json:"success_rate"`
	ByRole          map[string]int `json:"by_role"`
	ByDocumentType  map[string]int `json:"by_document_type"`
	CountLast24Hour int            `json:"count_last_24h"`
}

// Statistics scans the whole log and aggregates it. It is recomputed on
// every call; nothing is cached incrementally.
func (l *Ledger) Statistics() (Statistics, error) {
	stats := Statistics{
		ByRole:         make(map[string]int),
		ByDocumentType: make(map[string]int),
	}
	cutoff := time.Now().Add(-24 * time.Hour)

	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}

			stats.Total++
			if entry.Success {
				stats.Successful++
			} else {
				stats.Failed++
			}
			stats.ByRole[entry.Role]++
			stats.ByDocumentType[string(entry.DocumentType)]++
			if entry.Timestamp.After(cutoff) {
				stats.CountLast24Hour++
			}
		}
		return nil
	})
	if err != nil {
		return Statistics{}, fmt.Errorf("failed to aggregate history: %w", err)
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.Total)
	}

	return stats, nil
}
