package mongoparcels

import (
	"context"
	"time"

	"github.com/BearBump/ParcelTrack/internal/storage"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Storage struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(uri, dbName string) (*Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongo")
	}

	s := &Storage{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Storage) Close() {
	if s.client != nil {
		_ = s.client.Disconnect(context.Background())
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return errors.Wrap(s.client.Ping(ctx, nil), "ping mongo")
}

func (s *Storage) parcels() *mongo.Collection {
	return s.db.Collection(storage.CollectionParcels)
}

func (s *Storage) events() *mongo.Collection {
	return s.db.Collection(storage.CollectionTrackingEvents)
}

func (s *Storage) carrierLocations() *mongo.Collection {
	return s.db.Collection(storage.CollectionCarrierLocations)
}

func (s *Storage) receiverLocations() *mongo.Collection {
	return s.db.Collection(storage.CollectionReceiverLocations)
}

func (s *Storage) notifications() *mongo.Collection {
	return s.db.Collection(storage.CollectionNotifications)
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	idx := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.parcels(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		}},
		{s.events(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "parcelId", Value: 1}, {Key: "createdAt", Value: 1}}},
		}},
		{s.carrierLocations(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "parcelId", Value: 1}, {Key: "timestamp", Value: -1}}},
		}},
		{s.receiverLocations(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "parcelId", Value: 1}, {Key: "timestamp", Value: -1}}},
		}},
		{s.notifications(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
	}
	for _, it := range idx {
		if _, err := it.coll.Indexes().CreateMany(ctx, it.models); err != nil {
			return errors.Wrapf(err, "create indexes on %s", it.coll.Name())
		}
	}
	return nil
}
