// Package usersettings persists per-user settings in a WAL-backed store.
package usersettings

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/signalbot/internal/domain"
)

const (
	DefaultDir   = "./wal/usersettings"
	segmentLimit = 1000
	maxSegments  = 10

	settingsKeyPrefix = "user_settings_"
)

// Store keeps the latest settings per user in memory, backed by a WAL.
// Replay is last-writer-wins: the highest index for a user wins.
type Store struct {
	wal   *gowal.Wal
	mu    sync.RWMutex
	users map[int64]domain.UserSettings
}

// NewStore opens the WAL and replays it into memory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "settings_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init settings WAL")
	}

	s := &Store{wal: wal, users: make(map[int64]domain.UserSettings)}
	if err := s.replay(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) replay() error {
	current := s.wal.CurrentIndex()
	for idx := uint64(1); idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(key, settingsKeyPrefix) {
			continue
		}

		var settings domain.UserSettings
		if err := json.Unmarshal(payload, &settings); err != nil {
			return errors.Wrap(err, "decode user settings")
		}
		s.users[settings.UserID] = settings
	}

	return nil
}

// Get returns the settings for the user, if any.
func (s *Store) Get(userID int64) (domain.UserSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.users[userID]
	return settings, ok
}

// Put writes the settings to the WAL and updates the in-memory view.
func (s *Store) Put(settings domain.UserSettings) error {
	if s == nil || s.wal == nil {
		return errors.New("settings store is not initialized")
	}
	if settings.UserID == 0 {
		return errors.New("user id is required")
	}

	payload, err := json.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "marshal user settings")
	}

	key := fmt.Sprintf("%s%d", settingsKeyPrefix, settings.UserID)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return errors.Wrap(err, "write user settings")
	}
	s.users[settings.UserID] = settings

	return nil
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("settings store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
