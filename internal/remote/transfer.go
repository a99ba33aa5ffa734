// Package remote is the network boundary of the sync core: one upload call
// and one download call against the sync server.
package remote

//go:generate mockgen -source=transfer.go -destination=mock/transfer_mock.go -package=mock_remote

import (
	"context"

	"github.com/example/wordsync/pkg/models"
)

// Transfer moves snapshots between the device and the sync server.
// Implementations return syncerr.ErrAuth when the credential is rejected
// and syncerr.ErrNetwork for transport failures and timeouts.
type Transfer interface {
	Upload(ctx context.Context, payload models.UploadPayload) (models.Ack, error)
	Download(ctx context.Context, userID string) (*models.DownloadData, error)
}
