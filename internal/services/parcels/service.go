package parcels

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/ParcelTrack/internal/broker/messages"
	"github.com/BearBump/ParcelTrack/internal/cache"
	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/BearBump/ParcelTrack/internal/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	ListParcelsLimit = 200
	ListEventsLimit  = 500

	acceptNote = "Parcel accepted by carrier"
)

type Repository interface {
	CreateParcel(ctx context.Context, p *models.Parcel) error
	ListParcels(ctx context.Context, limit int) ([]*models.Parcel, error)
	GetParcel(ctx context.Context, id string) (*models.Parcel, error)
	UpdateParcel(ctx context.Context, id string, patch storage.ParcelPatch) error
	AcceptParcel(ctx context.Context, id, transporterID string, at time.Time) error
	BindReceiver(ctx context.Context, id, receiverID string, at time.Time) error

	CreateTrackingEvent(ctx context.Context, e *models.TrackingEvent) error
	ListTrackingEvents(ctx context.Context, parcelID string, limit int) ([]*models.TrackingEvent, error)

	CreateCarrierLocation(ctx context.Context, l *models.CarrierLocation) error
	LatestCarrierLocation(ctx context.Context, parcelID string) (*models.CarrierLocation, error)
	CreateReceiverLocation(ctx context.Context, l *models.ReceiverLocation) error
	LatestReceiverLocation(ctx context.Context, parcelID string) (*models.ReceiverLocation, error)

	Ping(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Service struct {
	repo        Repository
	cache       cache.BytesCache
	parcelTTL   time.Duration
	locationTTL time.Duration

	pub   Publisher
	topic string

	now   func() time.Time
	newID func() string
}

// New builds the service. A nil cache or a zero parcelTTL disables parcel caching.
func New(repo Repository, c cache.BytesCache, parcelTTL time.Duration) *Service {
	return &Service{
		repo:      repo,
		cache:     c,
		parcelTTL: parcelTTL,
		now:       storeNow,
		newID:     uuid.NewString,
	}
}

func (s *Service) WithLocationCacheTTL(ttl time.Duration) *Service {
	s.locationTTL = ttl
	return s
}

// WithPublisher enables parcel.updated events. Without it mutations are not published.
func (s *Service) WithPublisher(p Publisher, topic string) *Service {
	s.pub = p
	s.topic = topic
	return s
}

// Ready checks the store and, when it can be pinged, the cache.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return err
	}
	if p, ok := s.cache.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in models.ParcelCreateInput) (*models.Parcel, error) {
	now := s.now()
	p := &models.Parcel{
		ID:                    s.newID(),
		Origin:                in.Origin,
		Destination:           in.Destination,
		OriginLat:             in.OriginLat,
		OriginLng:             in.OriginLng,
		DestinationLat:        in.DestinationLat,
		DestinationLng:        in.DestinationLng,
		SenderID:              in.SenderID,
		ReceiverID:            in.ReceiverID,
		ReceiverName:          in.ReceiverName,
		ReceiverPhone:         in.ReceiverPhone,
		ReceiverEmail:         in.ReceiverEmail,
		ReceiverLat:           in.ReceiverLat,
		ReceiverLng:           in.ReceiverLng,
		Compensation:          in.Compensation,
		Status:                models.ParcelStatusPending,
		ManualTrackingEnabled: true,
		LiveTrackingEnabled:   false,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.repo.CreateParcel(ctx, p); err != nil {
		return nil, err
	}

	s.cacheParcel(ctx, p)
	s.publish(ctx, parcelMessage(p, messages.KindCreated, p.SenderID, now))
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Parcel, error) {
	out, err := s.repo.ListParcels(ctx, ListParcelsLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*models.Parcel{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Parcel, error) {
	return s.cachedParcel(ctx, id)
}

// Update applies an admin patch. An empty patch returns the stored parcel as is.
func (s *Service) Update(ctx context.Context, id string, in models.ParcelUpdateInput) (*models.Parcel, error) {
	p, err := s.storedParcel(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.IsEmpty() {
		return p, nil
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, invalid("invalid status")
	}

	now := s.now()
	err = s.repo.UpdateParcel(ctx, id, storage.ParcelPatch{
		ManualTrackingEnabled: in.ManualTrackingEnabled,
		LiveTrackingEnabled:   in.LiveTrackingEnabled,
		Status:                in.Status,
		UpdatedAt:             now,
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrParcelNotFound
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.reloadParcel(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		m := parcelMessage(updated, messages.KindStatusChanged, "", now)
		m.PreviousStatus = string(p.Status)
		s.publish(ctx, m)
	}
	if in.ManualTrackingEnabled != nil || in.LiveTrackingEnabled != nil {
		s.publish(ctx, parcelMessage(updated, messages.KindFlagsChanged, "", now))
	}
	return updated, nil
}

// Accept assigns the transporter. Only the first accept of a parcel succeeds.
func (s *Service) Accept(ctx context.Context, id, transporterID string) (*models.Parcel, error) {
	p, err := s.storedParcel(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.TransporterID != nil {
		return nil, ErrAlreadyAccepted
	}

	now := s.now()
	err = s.repo.AcceptParcel(ctx, id, transporterID, now)
	if errors.Is(err, storage.ErrConflict) {
		return nil, ErrAlreadyAccepted
	}
	if err != nil {
		return nil, err
	}

	note := acceptNote
	if err := s.repo.CreateTrackingEvent(ctx, &models.TrackingEvent{
		ID:              s.newID(),
		ParcelID:        id,
		EventType:       models.ParcelStatusAccepted,
		Note:            &note,
		CreatedByUserID: transporterID,
		CreatedAt:       now,
	}); err != nil {
		s.dropParcel(ctx, id)
		return nil, err
	}

	updated, err := s.reloadParcel(ctx, id)
	if err != nil {
		return nil, err
	}

	m := parcelMessage(updated, messages.KindAccepted, transporterID, now)
	m.PreviousStatus = string(p.Status)
	s.publish(ctx, m)
	return updated, nil
}

func (s *Service) ListTrackingEvents(ctx context.Context, parcelID string) ([]*models.TrackingEvent, error) {
	if _, err := s.cachedParcel(ctx, parcelID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListTrackingEvents(ctx, parcelID, ListEventsLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*models.TrackingEvent{}
	}
	return out, nil
}

// CreateTrackingEvent appends a manual event and mirrors its type into the
// parcel status. Any status may follow any other.
func (s *Service) CreateTrackingEvent(ctx context.Context, parcelID string, in models.TrackingEventCreateInput) (*models.TrackingEvent, error) {
	p, err := s.storedParcel(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	if !p.ManualTrackingEnabled {
		return nil, ErrManualTrackingDisabled
	}
	if !p.IsParticipant(in.CreatedByUserID) {
		return nil, ErrNotAllowedToPostEvent
	}
	if !in.EventType.Valid() {
		return nil, invalid("invalid eventType")
	}

	now := s.now()
	e := &models.TrackingEvent{
		ID:              s.newID(),
		ParcelID:        parcelID,
		EventType:       in.EventType,
		Note:            in.Note,
		CreatedByUserID: in.CreatedByUserID,
		CreatedAt:       now,
	}
	if err := s.repo.CreateTrackingEvent(ctx, e); err != nil {
		return nil, err
	}

	status := in.EventType
	err = s.repo.UpdateParcel(ctx, parcelID, storage.ParcelPatch{Status: &status, UpdatedAt: now})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrParcelNotFound
	}
	if err != nil {
		s.dropParcel(ctx, parcelID)
		return nil, err
	}

	if updated, err := s.reloadParcel(ctx, parcelID); err == nil {
		m := parcelMessage(updated, messages.KindStatusChanged, in.CreatedByUserID, now)
		m.PreviousStatus = string(p.Status)
		s.publish(ctx, m)
	}
	return e, nil
}

func (s *Service) GetCarrierLocation(ctx context.Context, parcelID string) (*models.CarrierLocation, error) {
	if _, err := s.cachedParcel(ctx, parcelID); err != nil {
		return nil, err
	}

	key := carrierLocationKey(parcelID)
	var cached models.CarrierLocation
	if s.cacheGet(ctx, key, s.locationTTL, &cached) {
		return &cached, nil
	}

	l, err := s.repo.LatestCarrierLocation(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	if l != nil {
		s.cacheSet(ctx, key, s.locationTTL, l)
	}
	return l, nil
}

func (s *Service) PostCarrierLocation(ctx context.Context, parcelID, carrierID string, in models.CarrierLocationInput) (*models.CarrierLocation, error) {
	p, err := s.storedParcel(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	if !p.LiveTrackingEnabled {
		return nil, ErrLiveTrackingDisabled
	}
	if p.TransporterID == nil || *p.TransporterID != carrierID {
		return nil, ErrNotAcceptedCarrier
	}

	now := s.now()
	l := &models.CarrierLocation{
		ID:        s.newID(),
		ParcelID:  parcelID,
		CarrierID: carrierID,
		Lat:       in.Lat,
		Lng:       in.Lng,
		Heading:   in.Heading,
		Speed:     in.Speed,
		Accuracy:  in.Accuracy,
		Timestamp: now,
	}
	if err := s.repo.CreateCarrierLocation(ctx, l); err != nil {
		return nil, err
	}
	s.cacheSet(ctx, carrierLocationKey(parcelID), s.locationTTL, l)

	m := parcelMessage(p, messages.KindCarrierLocation, carrierID, now)
	m.Location = &messages.Point{Lat: l.Lat, Lng: l.Lng, Speed: l.Speed}
	s.publish(ctx, m)
	return l, nil
}

func (s *Service) GetReceiverLocation(ctx context.Context, parcelID string) (*models.ReceiverLocation, error) {
	if _, err := s.cachedParcel(ctx, parcelID); err != nil {
		return nil, err
	}

	key := receiverLocationKey(parcelID)
	var cached models.ReceiverLocation
	if s.cacheGet(ctx, key, s.locationTTL, &cached) {
		return &cached, nil
	}

	l, err := s.repo.LatestReceiverLocation(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	if l != nil {
		s.cacheSet(ctx, key, s.locationTTL, l)
	}
	return l, nil
}

// PostReceiverLocation records a receiver ping. A parcel without a receiver
// is bound to the first poster; everyone else is rejected afterwards.
func (s *Service) PostReceiverLocation(ctx context.Context, parcelID, receiverID string, in models.ReceiverLocationInput) (*models.ReceiverLocation, error) {
	p, err := s.storedParcel(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	if receiverID == "" {
		return nil, invalid("receiverId is required")
	}

	now := s.now()
	if p.ReceiverID == nil {
		if p, err = s.bindReceiver(ctx, p, receiverID, now); err != nil {
			return nil, err
		}
	}
	if *p.ReceiverID != receiverID {
		return nil, ErrReceiverMismatch
	}

	l := &models.ReceiverLocation{
		ID:         s.newID(),
		ParcelID:   parcelID,
		ReceiverID: receiverID,
		Lat:        in.Lat,
		Lng:        in.Lng,
		Accuracy:   in.Accuracy,
		Timestamp:  now,
	}
	if err := s.repo.CreateReceiverLocation(ctx, l); err != nil {
		return nil, err
	}
	s.cacheSet(ctx, receiverLocationKey(parcelID), s.locationTTL, l)

	m := parcelMessage(p, messages.KindReceiverLocation, receiverID, now)
	m.Location = &messages.Point{Lat: l.Lat, Lng: l.Lng}
	s.publish(ctx, m)
	return l, nil
}

func (s *Service) bindReceiver(ctx context.Context, p *models.Parcel, receiverID string, at time.Time) (*models.Parcel, error) {
	err := s.repo.BindReceiver(ctx, p.ID, receiverID, at)
	switch {
	case err == nil:
		id := receiverID
		p.ReceiverID = &id
		p.UpdatedAt = at
		s.cacheParcel(ctx, p)
		return p, nil
	case errors.Is(err, storage.ErrConflict):
		// Someone else bound the parcel in between.
		return s.reloadParcel(ctx, p.ID)
	default:
		return nil, err
	}
}

// storedParcel reads the parcel from the store, bypassing the cache. Mutations
// check their preconditions against it.
func (s *Service) storedParcel(ctx context.Context, id string) (*models.Parcel, error) {
	p, err := s.repo.GetParcel(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrParcelNotFound
	}
	return p, err
}

func (s *Service) cachedParcel(ctx context.Context, id string) (*models.Parcel, error) {
	var cached models.Parcel
	if s.cacheGet(ctx, parcelKey(id), s.parcelTTL, &cached) {
		return &cached, nil
	}

	p, err := s.storedParcel(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheParcel(ctx, p)
	return p, nil
}

func (s *Service) reloadParcel(ctx context.Context, id string) (*models.Parcel, error) {
	p, err := s.storedParcel(ctx, id)
	if err != nil {
		s.dropParcel(ctx, id)
		return nil, err
	}
	s.cacheParcel(ctx, p)
	return p, nil
}

func (s *Service) cacheParcel(ctx context.Context, p *models.Parcel) {
	s.cacheSet(ctx, parcelKey(p.ID), s.parcelTTL, p)
}

func (s *Service) dropParcel(ctx context.Context, id string) {
	if s.cache == nil || s.parcelTTL <= 0 {
		return
	}
	_ = s.cache.Delete(ctx, parcelKey(id))
}

// cacheGet is best effort: any cache or decode failure is a miss.
func (s *Service) cacheGet(ctx context.Context, key string, ttl time.Duration, dst any) bool {
	if s.cache == nil || ttl <= 0 {
		return false
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

// cacheSet drops key when the new value cannot be written, so a stale entry
// never outlives a mutation.
func (s *Service) cacheSet(ctx context.Context, key string, ttl time.Duration, v any) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	b, err := json.Marshal(v)
	if err == nil {
		err = s.cache.Set(ctx, key, b, ttl)
	}
	if err != nil {
		slog.Warn("cache write failed, dropping key", "key", key, "err", err)
		_ = s.cache.Delete(ctx, key)
	}
}

func (s *Service) publish(ctx context.Context, m messages.ParcelUpdated) {
	if s.pub == nil {
		return
	}
	b, err := json.Marshal(m)
	if err != nil {
		slog.Warn("marshal parcel.updated", "parcel_id", m.ParcelID, "err", err)
		return
	}
	if err := s.pub.Publish(ctx, s.topic, []byte(m.ParcelID), b); err != nil {
		slog.Warn("publish parcel.updated failed", "parcel_id", m.ParcelID, "kind", m.Kind, "err", err)
	}
}

func parcelMessage(p *models.Parcel, kind messages.ParcelUpdatedKind, actorID string, at time.Time) messages.ParcelUpdated {
	m := messages.ParcelUpdated{
		ParcelID:      p.ID,
		Kind:          kind,
		Status:        string(p.Status),
		SenderID:      p.SenderID,
		TransporterID: p.TransporterID,
		ReceiverID:    p.ReceiverID,
		ActorID:       actorID,
		OccurredAt:    at,
	}
	if p.DestinationLat != nil && p.DestinationLng != nil {
		m.Destination = &messages.Point{Lat: *p.DestinationLat, Lng: *p.DestinationLng}
	}
	return m
}

// storeNow is millisecond precision, the coarsest of the backing stores, so a
// cached or returned record matches what a later store read yields.
func storeNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func parcelKey(id string) string {
	return "parcel:" + id
}

func carrierLocationKey(parcelID string) string {
	return "parcel:" + parcelID + ":carrier-location"
}

func receiverLocationKey(parcelID string) string {
	return "parcel:" + parcelID + ":receiver-location"
}
