package messages

import "time"

// ParcelUpdatedKind says what changed on the parcel.
type ParcelUpdatedKind string

const (
	KindCreated          ParcelUpdatedKind = "created"
	KindAccepted         ParcelUpdatedKind = "accepted"
	KindStatusChanged    ParcelUpdatedKind = "status_changed"
	KindFlagsChanged     ParcelUpdatedKind = "flags_changed"
	KindCarrierLocation  ParcelUpdatedKind = "carrier_location"
	KindReceiverLocation ParcelUpdatedKind = "receiver_location"
)

// ParcelUpdated is published keyed by parcel id after every successful mutation.
type ParcelUpdated struct {
	ParcelID string            `json:"parcel_id"`
	Kind     ParcelUpdatedKind `json:"kind"`

	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`

	SenderID      string  `json:"sender_id"`
	TransporterID *string `json:"transporter_id,omitempty"`
	ReceiverID    *string `json:"receiver_id,omitempty"`
	ActorID       string  `json:"actor_id,omitempty"`

	Location    *Point `json:"location,omitempty"`
	Destination *Point `json:"destination,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

type Point struct {
	Lat   float64  `json:"lat"`
	Lng   float64  `json:"lng"`
	Speed *float64 `json:"speed,omitempty"`
}

// StatusChanged reports whether the message carries a status transition.
func (m ParcelUpdated) StatusChanged() bool {
	return m.PreviousStatus != "" && m.PreviousStatus != m.Status
}
