package mongoparcels

import (
	"context"

	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Storage) CreateTrackingEvent(ctx context.Context, e *models.TrackingEvent) error {
	if _, err := s.events().InsertOne(ctx, e); err != nil {
		return errors.Wrap(err, "insert tracking event")
	}
	return nil
}

func (s *Storage) ListTrackingEvents(ctx context.Context, parcelID string, limit int) ([]*models.TrackingEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := s.events().Find(ctx, bson.D{{Key: "parcelId", Value: parcelID}}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find tracking events")
	}
	defer cur.Close(ctx)

	out := []*models.TrackingEvent{}
	for cur.Next(ctx) {
		var e models.TrackingEvent
		if err := cur.Decode(&e); err != nil {
			return nil, errors.Wrap(err, "decode tracking event")
		}
		out = append(out, &e)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(err, "cursor")
	}
	return out, nil
}
