package models

import "time"

// Notification is a queued message for a user, picked up by the push gateway.
type Notification struct {
	ID        string         `json:"id" bson:"id"`
	UserID    string         `json:"userId" bson:"userId"`
	ParcelID  string         `json:"parcelId" bson:"parcelId"`
	Title     string         `json:"title" bson:"title"`
	Body      string         `json:"body" bson:"body"`
	Data      map[string]any `json:"data,omitempty" bson:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt" bson:"createdAt"`
}
