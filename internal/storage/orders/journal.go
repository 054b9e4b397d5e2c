// Package orders persists order attempt events for audit.
package orders

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/signalbot/internal/domain"
)

const (
	DefaultDir   = "./wal/orders"
	segmentLimit = 1000
	maxSegments  = 20

	orderKeyPrefix = "order_"
)

// Journal is an append-only WAL of order events.
type Journal struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewJournal initializes a WAL-backed order journal.
func NewJournal(dir string) (*Journal, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "order_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init order journal WAL")
	}

	return &Journal{wal: wal}, nil
}

// Append writes the order event to the WAL.
func (j *Journal) Append(event domain.OrderEvent) error {
	if j == nil || j.wal == nil {
		return errors.New("order journal is not initialized")
	}
	if event.Symbol == "" {
		return errors.New("order event symbol is required")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order event")
	}

	key := orderKeyPrefix + event.OrderLinkID

	j.mu.Lock()
	defer j.mu.Unlock()

	nextIndex := j.wal.CurrentIndex() + 1
	return j.wal.Write(nextIndex, key, payload)
}

// EventsAfter returns all order events written after the provided WAL index.
func (j *Journal) EventsAfter(index uint64) ([]domain.OrderEventRecord, error) {
	if j == nil || j.wal == nil {
		return nil, errors.New("order journal is not initialized")
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	current := j.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.OrderEventRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := j.wal.Get(idx)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(key, orderKeyPrefix) {
			continue
		}

		var event domain.OrderEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrap(err, "decode order event")
		}
		records = append(records, domain.OrderEventRecord{Index: idx, Event: event})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (j *Journal) CurrentIndex() uint64 {
	if j == nil || j.wal == nil {
		return 0
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (j *Journal) Close() error {
	if j == nil || j.wal == nil {
		return errors.New("order journal is not initialized")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	return j.wal.Close()
}
