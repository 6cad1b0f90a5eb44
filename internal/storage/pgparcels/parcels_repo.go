package pgparcels

import (
	"context"
	"time"

	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/BearBump/ParcelTrack/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const parcelColumns = `
  id, origin, destination,
  origin_lat, origin_lng, destination_lat, destination_lng,
  sender_id, transporter_id, receiver_id,
  receiver_name, receiver_phone, receiver_email, receiver_lat, receiver_lng,
  compensation, status,
  manual_tracking_enabled, live_tracking_enabled,
  created_at, updated_at`

func (s *Storage) CreateParcel(ctx context.Context, p *models.Parcel) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO parcels (`+parcelColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
`,
		p.ID, p.Origin, p.Destination,
		p.OriginLat, p.OriginLng, p.DestinationLat, p.DestinationLng,
		p.SenderID, p.TransporterID, p.ReceiverID,
		p.ReceiverName, p.ReceiverPhone, p.ReceiverEmail, p.ReceiverLat, p.ReceiverLng,
		p.Compensation, string(p.Status),
		p.ManualTrackingEnabled, p.LiveTrackingEnabled,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	return errors.Wrap(err, "insert parcel")
}

func (s *Storage) ListParcels(ctx context.Context, limit int) ([]*models.Parcel, error) {
	rows, err := s.db.Query(ctx, `
SELECT`+parcelColumns+`
FROM parcels
ORDER BY created_at DESC, seq DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select parcels")
	}
	defer rows.Close()

	out := make([]*models.Parcel, 0, limit)
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) GetParcel(ctx context.Context, id string) (*models.Parcel, error) {
	row := s.db.QueryRow(ctx, `SELECT`+parcelColumns+` FROM parcels WHERE id = $1`, id)
	p, err := scanParcel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return p, err
}

// UpdateParcel applies the non-nil fields of patch. COALESCE keeps the stored
// value for fields the patch leaves out.
func (s *Storage) UpdateParcel(ctx context.Context, id string, patch storage.ParcelPatch) error {
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}

	tag, err := s.db.Exec(ctx, `
UPDATE parcels SET
  manual_tracking_enabled = COALESCE($2, manual_tracking_enabled),
  live_tracking_enabled = COALESCE($3, live_tracking_enabled),
  status = COALESCE($4, status),
  updated_at = $5
WHERE id = $1
`, id, patch.ManualTrackingEnabled, patch.LiveTrackingEnabled, status, patch.UpdatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "update parcel")
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Storage) AcceptParcel(ctx context.Context, id, transporterID string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
UPDATE parcels
SET transporter_id = $2, status = $3, updated_at = $4
WHERE id = $1 AND transporter_id IS NULL
`, id, transporterID, string(models.ParcelStatusAccepted), at.UTC())
	if err != nil {
		return errors.Wrap(err, "accept parcel")
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrConflict
	}
	return nil
}

func (s *Storage) BindReceiver(ctx context.Context, id, receiverID string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
UPDATE parcels
SET receiver_id = $2, updated_at = $3
WHERE id = $1 AND receiver_id IS NULL
`, id, receiverID, at.UTC())
	if err != nil {
		return errors.Wrap(err, "bind receiver")
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrConflict
	}
	return nil
}

func scanParcel(row pgx.Row) (*models.Parcel, error) {
	var p models.Parcel
	var status string
	err := row.Scan(
		&p.ID, &p.Origin, &p.Destination,
		&p.OriginLat, &p.OriginLng, &p.DestinationLat, &p.DestinationLng,
		&p.SenderID, &p.TransporterID, &p.ReceiverID,
		&p.ReceiverName, &p.ReceiverPhone, &p.ReceiverEmail, &p.ReceiverLat, &p.ReceiverLng,
		&p.Compensation, &status,
		&p.ManualTrackingEnabled, &p.LiveTrackingEnabled,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan parcel")
	}
	p.Status = models.ParcelStatus(status)
	return &p, nil
}
