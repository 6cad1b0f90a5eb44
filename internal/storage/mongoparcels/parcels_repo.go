package mongoparcels

import (
	"context"
	"time"

	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/BearBump/ParcelTrack/internal/storage"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Storage) CreateParcel(ctx context.Context, p *models.Parcel) error {
	if _, err := s.parcels().InsertOne(ctx, p); err != nil {
		return errors.Wrap(err, "insert parcel")
	}
	return nil
}

// ListParcels returns the newest parcels first. _id breaks ties between
// parcels created within the same millisecond.
func (s *Storage) ListParcels(ctx context.Context, limit int) ([]*models.Parcel, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.parcels().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find parcels")
	}
	defer cur.Close(ctx)

	out := make([]*models.Parcel, 0, limit)
	for cur.Next(ctx) {
		var p models.Parcel
		if err := cur.Decode(&p); err != nil {
			return nil, errors.Wrap(err, "decode parcel")
		}
		out = append(out, &p)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(err, "cursor")
	}
	return out, nil
}

func (s *Storage) GetParcel(ctx context.Context, id string) (*models.Parcel, error) {
	var p models.Parcel
	err := s.parcels().FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find parcel")
	}
	return &p, nil
}

func (s *Storage) UpdateParcel(ctx context.Context, id string, patch storage.ParcelPatch) error {
	set := bson.D{{Key: "updatedAt", Value: patch.UpdatedAt.UTC()}}
	if patch.ManualTrackingEnabled != nil {
		set = append(set, bson.E{Key: "manualTrackingEnabled", Value: *patch.ManualTrackingEnabled})
	}
	if patch.LiveTrackingEnabled != nil {
		set = append(set, bson.E{Key: "liveTrackingEnabled", Value: *patch.LiveTrackingEnabled})
	}
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: *patch.Status})
	}

	res, err := s.parcels().UpdateOne(ctx, bson.D{{Key: "id", Value: id}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return errors.Wrap(err, "update parcel")
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AcceptParcel sets the transporter only while it is still null, so of two
// concurrent accepts exactly one matches. The loser gets storage.ErrConflict.
func (s *Storage) AcceptParcel(ctx context.Context, id, transporterID string, at time.Time) error {
	filter := bson.D{{Key: "id", Value: id}, {Key: "transporterId", Value: nil}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "transporterId", Value: transporterID},
		{Key: "status", Value: models.ParcelStatusAccepted},
		{Key: "updatedAt", Value: at.UTC()},
	}}}

	res, err := s.parcels().UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.Wrap(err, "accept parcel")
	}
	if res.MatchedCount == 0 {
		return storage.ErrConflict
	}
	return nil
}

// BindReceiver records receiverID on a parcel that has none yet.
func (s *Storage) BindReceiver(ctx context.Context, id, receiverID string, at time.Time) error {
	filter := bson.D{{Key: "id", Value: id}, {Key: "receiverId", Value: nil}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "receiverId", Value: receiverID},
		{Key: "updatedAt", Value: at.UTC()},
	}}}

	res, err := s.parcels().UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.Wrap(err, "bind receiver")
	}
	if res.MatchedCount == 0 {
		return storage.ErrConflict
	}
	return nil
}
