// Package storage holds what the parcel stores share: sentinel errors and the
// patch shape used for partial parcel updates.
package storage

import (
	"errors"
	"time"

	"github.com/BearBump/ParcelTrack/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a set-once field is already set.
	ErrConflict = errors.New("conflict")
)

// Collection (table) names.
const (
	CollectionParcels           = "parcels"
	CollectionTrackingEvents    = "parcel_tracking_events"
	CollectionCarrierLocations  = "carrier_locations"
	CollectionReceiverLocations = "receiver_locations"
	CollectionNotifications     = "notifications"
)

type ParcelPatch struct {
	ManualTrackingEnabled *bool
	LiveTrackingEnabled   *bool
	Status                *models.ParcelStatus

	UpdatedAt time.Time
}
