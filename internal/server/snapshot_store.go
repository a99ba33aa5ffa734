package server

import (
	"encoding/json"
	"sync"

	"github.com/example/wordsync/pkg/models"
)

// SnapshotStore keeps the latest upload of every user. An upload replaces
// the previous one as a whole, so local deletions reach other devices.
type SnapshotStore struct {
	mu    sync.RWMutex
	users map[string]snapshot
}

type snapshot struct {
	payload   models.UploadPayload
	updatedAt int64
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{users: make(map[string]snapshot)}
}

// Put stores payload for its user
func (s *SnapshotStore) Put(payload models.UploadPayload, updatedAt int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[payload.UserID] = snapshot{payload: payload, updatedAt: updatedAt}
}

// Get returns the download view of userID's snapshot. A user that never
// uploaded gets empty collections.
func (s *SnapshotStore) Get(userID string) (*models.DownloadData, error) {
	s.mu.RLock()
	snap, ok := s.users[userID]
	s.mu.RUnlock()

	data := &models.DownloadData{Settings: models.Settings{}}
	if !ok {
		return data, nil
	}

	var err error
	p := snap.payload
	if data.WordRecords, err = rawAll(p.WordRecords); err != nil {
		return nil, err
	}
	if data.ChapterRecords, err = rawAll(p.ChapterRecords); err != nil {
		return nil, err
	}
	if data.ReviewRecords, err = rawAll(p.ReviewRecords); err != nil {
		return nil, err
	}
	if data.ScheduleRecords, err = rawAll(p.ScheduleRecords); err != nil {
		return nil, err
	}
	if data.LedgerEntries, err = rawAll(p.LedgerEntries); err != nil {
		return nil, err
	}
	if data.AchievementUnlocks, err = rawAll(p.AchievementUnlocks); err != nil {
		return nil, err
	}
	if p.Settings != nil {
		data.Settings = p.Settings
	}
	return data, nil
}

func rawAll[T any](records []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
