package pgparcels

import (
	"context"

	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) CreateTrackingEvent(ctx context.Context, e *models.TrackingEvent) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO parcel_tracking_events (id, parcel_id, event_type, note, created_by_user_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, e.ID, e.ParcelID, string(e.EventType), e.Note, e.CreatedByUserID, e.CreatedAt.UTC())
	return errors.Wrap(err, "insert tracking event")
}

func (s *Storage) ListTrackingEvents(ctx context.Context, parcelID string, limit int) ([]*models.TrackingEvent, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, parcel_id, event_type, note, created_by_user_id, created_at
FROM parcel_tracking_events
WHERE parcel_id = $1
ORDER BY created_at ASC, seq ASC
LIMIT $2
`, parcelID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select tracking events")
	}
	defer rows.Close()

	out := []*models.TrackingEvent{}
	for rows.Next() {
		var e models.TrackingEvent
		var eventType string
		if err := rows.Scan(&e.ID, &e.ParcelID, &eventType, &e.Note, &e.CreatedByUserID, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan tracking event")
		}
		e.EventType = models.ParcelStatus(eventType)
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
