// Package testutil holds in-memory doubles shared by package tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/BearBump/ParcelTrack/internal/storage"
)

// MemRepo is an in-memory parcel store with the same ordering and
// set-once semantics as the real stores.
type MemRepo struct {
	mu sync.Mutex

	parcels       map[string]*models.Parcel
	parcelOrder   []string
	events        []*models.TrackingEvent
	carrierPings  []*models.CarrierLocation
	receiverPings []*models.ReceiverLocation
	Notifications []*models.Notification

	// PingErr is returned by Ping when set.
	PingErr error
}

func NewMemRepo() *MemRepo {
	return &MemRepo{parcels: map[string]*models.Parcel{}}
}

func (r *MemRepo) CreateParcel(_ context.Context, p *models.Parcel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.parcels[p.ID]; ok {
		return storage.ErrConflict
	}
	cp := *p
	r.parcels[p.ID] = &cp
	r.parcelOrder = append(r.parcelOrder, p.ID)
	return nil
}

func (r *MemRepo) ListParcels(_ context.Context, limit int) ([]*models.Parcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Parcel, 0, len(r.parcelOrder))
	for i := len(r.parcelOrder) - 1; i >= 0; i-- {
		cp := *r.parcels[r.parcelOrder[i]]
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemRepo) GetParcel(_ context.Context, id string) (*models.Parcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parcels[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemRepo) UpdateParcel(_ context.Context, id string, patch storage.ParcelPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parcels[id]
	if !ok {
		return storage.ErrNotFound
	}
	if patch.ManualTrackingEnabled != nil {
		p.ManualTrackingEnabled = *patch.ManualTrackingEnabled
	}
	if patch.LiveTrackingEnabled != nil {
		p.LiveTrackingEnabled = *patch.LiveTrackingEnabled
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	p.UpdatedAt = patch.UpdatedAt
	return nil
}

func (r *MemRepo) AcceptParcel(_ context.Context, id, transporterID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parcels[id]
	if !ok || p.TransporterID != nil {
		return storage.ErrConflict
	}
	p.TransporterID = &transporterID
	p.Status = models.ParcelStatusAccepted
	p.UpdatedAt = at
	return nil
}

func (r *MemRepo) BindReceiver(_ context.Context, id, receiverID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parcels[id]
	if !ok || p.ReceiverID != nil {
		return storage.ErrConflict
	}
	p.ReceiverID = &receiverID
	p.UpdatedAt = at
	return nil
}

func (r *MemRepo) CreateTrackingEvent(_ context.Context, e *models.TrackingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.events = append(r.events, &cp)
	return nil
}

func (r *MemRepo) ListTrackingEvents(_ context.Context, parcelID string, limit int) ([]*models.TrackingEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.TrackingEvent{}
	for _, e := range r.events {
		if e.ParcelID == parcelID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemRepo) CreateCarrierLocation(_ context.Context, l *models.CarrierLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.carrierPings = append(r.carrierPings, &cp)
	return nil
}

func (r *MemRepo) LatestCarrierLocation(_ context.Context, parcelID string) (*models.CarrierLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.CarrierLocation
	for _, l := range r.carrierPings {
		if l.ParcelID == parcelID && (latest == nil || !l.Timestamp.Before(latest.Timestamp)) {
			latest = l
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *MemRepo) CreateReceiverLocation(_ context.Context, l *models.ReceiverLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.receiverPings = append(r.receiverPings, &cp)
	return nil
}

func (r *MemRepo) LatestReceiverLocation(_ context.Context, parcelID string) (*models.ReceiverLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.ReceiverLocation
	for _, l := range r.receiverPings {
		if l.ParcelID == parcelID && (latest == nil || !l.Timestamp.Before(latest.Timestamp)) {
			latest = l
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *MemRepo) InsertNotification(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.Notifications = append(r.Notifications, &cp)
	return nil
}

func (r *MemRepo) Ping(context.Context) error {
	return r.PingErr
}

// NotificationsFor returns the queued notifications of userID in insertion order.
func (r *MemRepo) NotificationsFor(userID string) []*models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Notification
	for _, n := range r.Notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// MemCache is a map-backed cache.BytesCache. TTLs are ignored.
type MemCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemCache() *MemCache {
	return &MemCache{m: map[string][]byte{}}
}

func (c *MemCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *MemCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func (c *MemCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

// Has reports whether key is present.
func (c *MemCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[key]
	return ok
}
