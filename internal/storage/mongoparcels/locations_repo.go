package mongoparcels

import (
	"context"

	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var latestFirst = options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})

func (s *Storage) CreateCarrierLocation(ctx context.Context, l *models.CarrierLocation) error {
	if _, err := s.carrierLocations().InsertOne(ctx, l); err != nil {
		return errors.Wrap(err, "insert carrier location")
	}
	return nil
}

// LatestCarrierLocation returns nil without error when nothing was posted yet.
func (s *Storage) LatestCarrierLocation(ctx context.Context, parcelID string) (*models.CarrierLocation, error) {
	var l models.CarrierLocation
	err := s.carrierLocations().FindOne(ctx, bson.D{{Key: "parcelId", Value: parcelID}}, latestFirst).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find carrier location")
	}
	return &l, nil
}

func (s *Storage) CreateReceiverLocation(ctx context.Context, l *models.ReceiverLocation) error {
	if _, err := s.receiverLocations().InsertOne(ctx, l); err != nil {
		return errors.Wrap(err, "insert receiver location")
	}
	return nil
}

func (s *Storage) LatestReceiverLocation(ctx context.Context, parcelID string) (*models.ReceiverLocation, error) {
	var l models.ReceiverLocation
	err := s.receiverLocations().FindOne(ctx, bson.D{{Key: "parcelId", Value: parcelID}}, latestFirst).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find receiver location")
	}
	return &l, nil
}

func (s *Storage) InsertNotification(ctx context.Context, n *models.Notification) error {
	if _, err := s.notifications().InsertOne(ctx, n); err != nil {
		return errors.Wrap(err, "insert notification")
	}
	return nil
}
