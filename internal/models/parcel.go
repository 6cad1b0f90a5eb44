package models

import "time"

// ParcelStatus is the delivery state of a parcel. Tracking event types use the same set.
type ParcelStatus string

const (
	ParcelStatusPending   ParcelStatus = "Pending"
	ParcelStatusAccepted  ParcelStatus = "Accepted"
	ParcelStatusPickedUp  ParcelStatus = "Picked Up"
	ParcelStatusInTransit ParcelStatus = "In Transit"
	ParcelStatusArrived   ParcelStatus = "Arrived"
	ParcelStatusDelivered ParcelStatus = "Delivered"
	ParcelStatusCancelled ParcelStatus = "Cancelled"
	ParcelStatusIssue     ParcelStatus = "Issue"
)

// ParcelStatuses lists every known status in lifecycle order.
var ParcelStatuses = []ParcelStatus{
	ParcelStatusPending,
	ParcelStatusAccepted,
	ParcelStatusPickedUp,
	ParcelStatusInTransit,
	ParcelStatusArrived,
	ParcelStatusDelivered,
	ParcelStatusCancelled,
	ParcelStatusIssue,
}

func (s ParcelStatus) Valid() bool {
	for _, st := range ParcelStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type Parcel struct {
	ID string `json:"id" bson:"id"`

	Origin         string   `json:"origin" bson:"origin"`
	Destination    string   `json:"destination" bson:"destination"`
	OriginLat      *float64 `json:"originLat" bson:"originLat"`
	OriginLng      *float64 `json:"originLng" bson:"originLng"`
	DestinationLat *float64 `json:"destinationLat" bson:"destinationLat"`
	DestinationLng *float64 `json:"destinationLng" bson:"destinationLng"`

	SenderID      string  `json:"senderId" bson:"senderId"`
	TransporterID *string `json:"transporterId" bson:"transporterId"`
	ReceiverID    *string `json:"receiverId" bson:"receiverId"`

	ReceiverName  *string  `json:"receiverName" bson:"receiverName"`
	ReceiverPhone *string  `json:"receiverPhone" bson:"receiverPhone"`
	ReceiverEmail *string  `json:"receiverEmail" bson:"receiverEmail"`
	ReceiverLat   *float64 `json:"receiverLat" bson:"receiverLat"`
	ReceiverLng   *float64 `json:"receiverLng" bson:"receiverLng"`

	Compensation *float64 `json:"compensation" bson:"compensation"`

	Status ParcelStatus `json:"status" bson:"status"`

	ManualTrackingEnabled bool `json:"manualTrackingEnabled" bson:"manualTrackingEnabled"`
	LiveTrackingEnabled   bool `json:"liveTrackingEnabled" bson:"liveTrackingEnabled"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IsParticipant reports whether userID may post manual tracking events.
func (p *Parcel) IsParticipant(userID string) bool {
	if userID == p.SenderID {
		return true
	}
	return p.TransporterID != nil && *p.TransporterID == userID
}

type ParcelCreateInput struct {
	Origin         string
	Destination    string
	OriginLat      *float64
	OriginLng      *float64
	DestinationLat *float64
	DestinationLng *float64

	SenderID   string
	ReceiverID *string

	ReceiverName  *string
	ReceiverPhone *string
	ReceiverEmail *string
	ReceiverLat   *float64
	ReceiverLng   *float64

	Compensation *float64
}

// ParcelUpdateInput carries an admin update. Nil fields are left untouched.
type ParcelUpdateInput struct {
	ManualTrackingEnabled *bool
	LiveTrackingEnabled   *bool
	Status                *ParcelStatus
}

func (in ParcelUpdateInput) IsEmpty() bool {
	return in.ManualTrackingEnabled == nil && in.LiveTrackingEnabled == nil && in.Status == nil
}

type TrackingEvent struct {
	ID              string       `json:"id" bson:"id"`
	ParcelID        string       `json:"parcelId" bson:"parcelId"`
	EventType       ParcelStatus `json:"eventType" bson:"eventType"`
	Note            *string      `json:"note" bson:"note"`
	CreatedByUserID string       `json:"createdByUserId" bson:"createdByUserId"`
	CreatedAt       time.Time    `json:"createdAt" bson:"createdAt"`
}

type TrackingEventCreateInput struct {
	EventType       ParcelStatus
	Note            *string
	CreatedByUserID string
}

type CarrierLocation struct {
	ID        string    `json:"id" bson:"id"`
	ParcelID  string    `json:"parcelId" bson:"parcelId"`
	CarrierID string    `json:"carrierId" bson:"carrierId"`
	Lat       float64   `json:"lat" bson:"lat"`
	Lng       float64   `json:"lng" bson:"lng"`
	Heading   *float64  `json:"heading" bson:"heading"`
	Speed     *float64  `json:"speed" bson:"speed"`
	Accuracy  *float64  `json:"accuracy" bson:"accuracy"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type CarrierLocationInput struct {
	Lat      float64
	Lng      float64
	Heading  *float64
	Speed    *float64
	Accuracy *float64
}

type ReceiverLocation struct {
	ID         string    `json:"id" bson:"id"`
	ParcelID   string    `json:"parcelId" bson:"parcelId"`
	ReceiverID string    `json:"receiverId" bson:"receiverId"`
	Lat        float64   `json:"lat" bson:"lat"`
	Lng        float64   `json:"lng" bson:"lng"`
	Accuracy   *float64  `json:"accuracy" bson:"accuracy"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

type ReceiverLocationInput struct {
	Lat      float64
	Lng      float64
	Accuracy *float64
}
