package pgparcels

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS parcels (
  seq BIGSERIAL,
  id TEXT PRIMARY KEY,
  origin TEXT NOT NULL,
  destination TEXT NOT NULL,
  origin_lat DOUBLE PRECISION NULL,
  origin_lng DOUBLE PRECISION NULL,
  destination_lat DOUBLE PRECISION NULL,
  destination_lng DOUBLE PRECISION NULL,
  sender_id TEXT NOT NULL,
  transporter_id TEXT NULL,
  receiver_id TEXT NULL,
  receiver_name TEXT NULL,
  receiver_phone TEXT NULL,
  receiver_email TEXT NULL,
  receiver_lat DOUBLE PRECISION NULL,
  receiver_lng DOUBLE PRECISION NULL,
  compensation DOUBLE PRECISION NULL,
  status TEXT NOT NULL,
  manual_tracking_enabled BOOLEAN NOT NULL,
  live_tracking_enabled BOOLEAN NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_created_at ON parcels(created_at DESC, seq DESC)`,
		`
CREATE TABLE IF NOT EXISTS parcel_tracking_events (
  seq BIGSERIAL,
  id TEXT PRIMARY KEY,
  parcel_id TEXT NOT NULL REFERENCES parcels(id) ON DELETE CASCADE,
  event_type TEXT NOT NULL,
  note TEXT NULL,
  created_by_user_id TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_parcel_tracking_events_parcel_id ON parcel_tracking_events(parcel_id, created_at, seq)`,
		`
CREATE TABLE IF NOT EXISTS carrier_locations (
  seq BIGSERIAL,
  id TEXT PRIMARY KEY,
  parcel_id TEXT NOT NULL REFERENCES parcels(id) ON DELETE CASCADE,
  carrier_id TEXT NOT NULL,
  lat DOUBLE PRECISION NOT NULL,
  lng DOUBLE PRECISION NOT NULL,
  heading DOUBLE PRECISION NULL,
  speed DOUBLE PRECISION NULL,
  accuracy DOUBLE PRECISION NULL,
  ts TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_carrier_locations_parcel_id_ts ON carrier_locations(parcel_id, ts DESC, seq DESC)`,
		`
CREATE TABLE IF NOT EXISTS receiver_locations (
  seq BIGSERIAL,
  id TEXT PRIMARY KEY,
  parcel_id TEXT NOT NULL REFERENCES parcels(id) ON DELETE CASCADE,
  receiver_id TEXT NOT NULL,
  lat DOUBLE PRECISION NOT NULL,
  lng DOUBLE PRECISION NOT NULL,
  accuracy DOUBLE PRECISION NULL,
  ts TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_receiver_locations_parcel_id_ts ON receiver_locations(parcel_id, ts DESC, seq DESC)`,
		`
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  parcel_id TEXT NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  data JSONB NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id, created_at DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
