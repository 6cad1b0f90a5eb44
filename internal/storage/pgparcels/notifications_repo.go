package pgparcels

import (
	"context"
	"encoding/json"

	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) InsertNotification(ctx context.Context, n *models.Notification) error {
	var data []byte
	if n.Data != nil {
		b, err := json.Marshal(n.Data)
		if err != nil {
			return errors.Wrap(err, "marshal notification data")
		}
		data = b
	}

	_, err := s.db.Exec(ctx, `
INSERT INTO notifications (id, user_id, parcel_id, title, body, data, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, n.ID, n.UserID, n.ParcelID, n.Title, n.Body, data, n.CreatedAt.UTC())
	return errors.Wrap(err, "insert notification")
}
