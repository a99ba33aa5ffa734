package sync

import (
	"context"
	"strconv"
	"time"

	"github.com/example/wordsync/internal/database"
	"github.com/example/wordsync/internal/merge"
	"github.com/example/wordsync/internal/syncerr"
	"github.com/example/wordsync/pkg/models"
)

// State of the orchestrator's sync session
type State int32

const (
	StateIdle State = iota
	StateSyncing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Keys of the sync_meta table
const (
	MetaLastUploadAt   = "last_upload_at"
	MetaLastDownloadAt = "last_download_at"
	MetaLastSuccessAt  = "last_success_at"
	MetaLastError      = "last_error"
)

// Status is a snapshot of the orchestrator plus the last known good sync.
// A failed session ends back in StateIdle; LastError and LastErrorKind keep
// the failure until the next successful session.
type Status struct {
	State          State
	LastUploadAt   time.Time
	LastDownloadAt time.Time
	LastSuccessAt  time.Time
	LastError      string
	LastErrorKind  syncerr.ErrorKind
	LastReport     merge.Report
}

// LoadStatus reads the persisted part of Status from the store. State is
// always Idle since no session outlives its process.
func LoadStatus(ctx context.Context, store *database.Store) (Status, error) {
	meta := store.Meta()
	var st Status

	for _, f := range []struct {
		key string
		dst *time.Time
	}{
		{MetaLastUploadAt, &st.LastUploadAt},
		{MetaLastDownloadAt, &st.LastDownloadAt},
		{MetaLastSuccessAt, &st.LastSuccessAt},
	} {
		v, err := meta.GetValue(ctx, f.key)
		if err != nil {
			return st, err
		}
		*f.dst = parseMillis(v)
	}

	v, err := meta.GetValue(ctx, MetaLastError)
	if err != nil {
		return st, err
	}
	st.LastError = v
	return st, nil
}

func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return models.FromMillis(ms)
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(models.Millis(t), 10)
}
