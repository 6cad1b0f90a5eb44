package pgparcels

import (
	"context"

	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) CreateCarrierLocation(ctx context.Context, l *models.CarrierLocation) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO carrier_locations (id, parcel_id, carrier_id, lat, lng, heading, speed, accuracy, ts)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, l.ID, l.ParcelID, l.CarrierID, l.Lat, l.Lng, l.Heading, l.Speed, l.Accuracy, l.Timestamp.UTC())
	return errors.Wrap(err, "insert carrier location")
}

// LatestCarrierLocation returns nil without error when nothing was posted yet.
func (s *Storage) LatestCarrierLocation(ctx context.Context, parcelID string) (*models.CarrierLocation, error) {
	var l models.CarrierLocation
	err := s.db.QueryRow(ctx, `
SELECT id, parcel_id, carrier_id, lat, lng, heading, speed, accuracy, ts
FROM carrier_locations
WHERE parcel_id = $1
ORDER BY ts DESC, seq DESC
LIMIT 1
`, parcelID).Scan(&l.ID, &l.ParcelID, &l.CarrierID, &l.Lat, &l.Lng, &l.Heading, &l.Speed, &l.Accuracy, &l.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select carrier location")
	}
	return &l, nil
}

func (s *Storage) CreateReceiverLocation(ctx context.Context, l *models.ReceiverLocation) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO receiver_locations (id, parcel_id, receiver_id, lat, lng, accuracy, ts)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, l.ID, l.ParcelID, l.ReceiverID, l.Lat, l.Lng, l.Accuracy, l.Timestamp.UTC())
	return errors.Wrap(err, "insert receiver location")
}

func (s *Storage) LatestReceiverLocation(ctx context.Context, parcelID string) (*models.ReceiverLocation, error) {
	var l models.ReceiverLocation
	err := s.db.QueryRow(ctx, `
SELECT id, parcel_id, receiver_id, lat, lng, accuracy, ts
FROM receiver_locations
WHERE parcel_id = $1
ORDER BY ts DESC, seq DESC
LIMIT 1
`, parcelID).Scan(&l.ID, &l.ParcelID, &l.ReceiverID, &l.Lat, &l.Lng, &l.Accuracy, &l.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select receiver location")
	}
	return &l, nil
}
