package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ParcelTrack/internal/broker/messages"
	"github.com/BearBump/ParcelTrack/internal/geo"
	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Store interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Consumer interface {
	ConsumeParcelUpdates(
		ctx context.Context,
		handle func(ctx context.Context, m messages.ParcelUpdated) error,
		onMalformed func(key []byte, err error),
	) error
}

const (
	titleStatusUpdate  = "Parcel Status Update"
	titleCarrierNearby = "Carrier is Nearby!"
	titleIncoming      = "Incoming Parcel"
)

var statusMessages = map[models.ParcelStatus]string{
	models.ParcelStatusPending:   "Your parcel is waiting for a carrier",
	models.ParcelStatusAccepted:  "A carrier has accepted your parcel",
	models.ParcelStatusPickedUp:  "Your parcel has been picked up",
	models.ParcelStatusInTransit: "Your parcel is on its way!",
	models.ParcelStatusArrived:   "Your parcel has arrived at its destination",
	models.ParcelStatusDelivered: "Your parcel has been delivered!",
	models.ParcelStatusCancelled: "Your parcel has been cancelled",
	models.ParcelStatusIssue:     "There is an issue with your parcel",
}

// Notifier turns parcel.updated messages into queued user notifications.
type Notifier struct {
	store Store
	rl    RateLimiter

	nearbyRadiusMeters float64
	nearbyCooldown     time.Duration
	defaultSpeedMps    float64

	now   func() time.Time
	newID func() string

	startedAtUnixNano int64
	lastMessageUnix   atomic.Int64
	totalConsumed     atomic.Int64
	totalNotified     atomic.Int64
	totalThrottled    atomic.Int64
	totalErrors       atomic.Int64
	lastErrorMu       sync.Mutex
	lastError         string
}

func New(store Store, rl RateLimiter) *Notifier {
	return &Notifier{
		store:              store,
		rl:                 rl,
		nearbyRadiusMeters: 1000,
		nearbyCooldown:     15 * time.Minute,
		defaultSpeedMps:    8.3,
		now:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		newID:              uuid.NewString,
		startedAtUnixNano:  time.Now().UTC().UnixNano(),
	}
}

func (n *Notifier) WithSettings(radiusMeters float64, cooldown time.Duration, defaultSpeedMps float64) *Notifier {
	if radiusMeters > 0 {
		n.nearbyRadiusMeters = radiusMeters
	}
	if cooldown > 0 {
		n.nearbyCooldown = cooldown
	}
	if defaultSpeedMps > 0 {
		n.defaultSpeedMps = defaultSpeedMps
	}
	return n
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastMessageAt  *time.Time `json:"lastMessageAt,omitempty"`
	TotalConsumed  int64      `json:"totalConsumed"`
	TotalNotified  int64      `json:"totalNotified"`
	TotalThrottled int64      `json:"totalThrottled"`
	TotalErrors    int64      `json:"totalErrors"`
	LastError      string     `json:"lastError,omitempty"`
}

func (n *Notifier) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, n.startedAtUnixNano).UTC(),
		TotalConsumed:  n.totalConsumed.Load(),
		TotalNotified:  n.totalNotified.Load(),
		TotalThrottled: n.totalThrottled.Load(),
		TotalErrors:    n.totalErrors.Load(),
	}
	if v := n.lastMessageUnix.Load(); v > 0 {
		t := time.Unix(0, v).UTC()
		st.LastMessageAt = &t
	}
	n.lastErrorMu.Lock()
	st.LastError = n.lastError
	n.lastErrorMu.Unlock()
	return st
}

// Run consumes until ctx is done or a message fails. The failed message is
// left uncommitted.
func (n *Notifier) Run(ctx context.Context, c Consumer) error {
	return c.ConsumeParcelUpdates(ctx, n.process, n.skipMalformed)
}

// HandleMessage decodes one parcel.updated payload. Undecodable payloads are
// logged and skipped so they cannot block the partition.
func (n *Notifier) HandleMessage(ctx context.Context, value []byte) error {
	var m messages.ParcelUpdated
	if err := json.Unmarshal(value, &m); err != nil {
		n.skipMalformed(nil, errors.Wrap(err, "decode parcel.updated"))
		return nil
	}
	return n.process(ctx, m)
}

func (n *Notifier) process(ctx context.Context, m messages.ParcelUpdated) error {
	n.markConsumed()
	if err := n.Handle(ctx, m); err != nil {
		n.recordError(err)
		slog.Error("handle parcel.updated", "parcel_id", m.ParcelID, "kind", m.Kind, "error", err.Error())
		return err
	}
	return nil
}

func (n *Notifier) skipMalformed(key []byte, err error) {
	n.markConsumed()
	n.recordError(err)
	slog.Warn("skip malformed parcel.updated", "key", string(key), "error", err.Error())
}

func (n *Notifier) markConsumed() {
	n.totalConsumed.Add(1)
	n.lastMessageUnix.Store(time.Now().UTC().UnixNano())
}

func (n *Notifier) Handle(ctx context.Context, m messages.ParcelUpdated) error {
	switch m.Kind {
	case messages.KindCreated:
		if m.ReceiverID == nil || *m.ReceiverID == m.SenderID {
			return nil
		}
		return n.send(ctx, *m.ReceiverID, m.ParcelID, titleIncoming, "A new parcel is being sent to you", map[string]any{
			"type":     "new_incoming_parcel",
			"parcelId": m.ParcelID,
		})
	case messages.KindAccepted, messages.KindStatusChanged:
		if !m.StatusChanged() {
			return nil
		}
		return n.notifyStatusChange(ctx, m)
	case messages.KindCarrierLocation:
		return n.notifyIfNearby(ctx, m)
	default:
		return nil
	}
}

func (n *Notifier) notifyStatusChange(ctx context.Context, m messages.ParcelUpdated) error {
	status := models.ParcelStatus(m.Status)
	body, ok := statusMessages[status]
	if !ok {
		body = "Status changed to " + m.Status
	}
	data := map[string]any{
		"type":      "status_change",
		"parcelId":  m.ParcelID,
		"oldStatus": m.PreviousStatus,
		"newStatus": m.Status,
	}

	for _, userID := range recipients(m) {
		if err := n.send(ctx, userID, m.ParcelID, titleStatusUpdate, body, data); err != nil {
			return err
		}
	}
	return nil
}

// recipients returns the sender and receiver of the parcel, without the
// user who made the change.
func recipients(m messages.ParcelUpdated) []string {
	out := make([]string, 0, 2)
	add := func(id string) {
		if id == "" || id == m.ActorID {
			return
		}
		for _, seen := range out {
			if seen == id {
				return
			}
		}
		out = append(out, id)
	}
	add(m.SenderID)
	if m.ReceiverID != nil {
		add(*m.ReceiverID)
	}
	return out
}

func (n *Notifier) notifyIfNearby(ctx context.Context, m messages.ParcelUpdated) error {
	if m.Location == nil || m.Destination == nil || m.ReceiverID == nil {
		return nil
	}

	dist := geo.HaversineMeters(m.Location.Lat, m.Location.Lng, m.Destination.Lat, m.Destination.Lng)
	if dist > n.nearbyRadiusMeters {
		return nil
	}

	if n.rl != nil {
		allowed, _, err := n.rl.Allow(ctx, "notify:nearby:"+m.ParcelID, 1, n.nearbyCooldown)
		if err != nil {
			slog.Warn("nearby rate limiter unavailable", "parcel_id", m.ParcelID, "error", err.Error())
			return nil
		}
		if !allowed {
			n.totalThrottled.Add(1)
			return nil
		}
	}

	speed := n.defaultSpeedMps
	if m.Location.Speed != nil && *m.Location.Speed > 0 {
		speed = *m.Location.Speed
	}
	minutes := int(math.Ceil(geo.ETA(dist, speed).Minutes()))
	if minutes < 1 {
		minutes = 1
	}

	body := fmt.Sprintf("Your delivery will arrive in approximately %d minutes", minutes)
	return n.send(ctx, *m.ReceiverID, m.ParcelID, titleCarrierNearby, body, map[string]any{
		"type":             "carrier_nearby",
		"parcelId":         m.ParcelID,
		"estimatedMinutes": minutes,
	})
}

func (n *Notifier) send(ctx context.Context, userID, parcelID, title, body string, data map[string]any) error {
	err := n.store.InsertNotification(ctx, &models.Notification{
		ID:        n.newID(),
		UserID:    userID,
		ParcelID:  parcelID,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: n.now(),
	})
	if err != nil {
		return errors.Wrap(err, "queue notification")
	}
	n.totalNotified.Add(1)
	slog.Info("notification queued", "user_id", userID, "parcel_id", parcelID, "title", title)
	return nil
}

func (n *Notifier) recordError(err error) {
	n.totalErrors.Add(1)
	n.lastErrorMu.Lock()
	n.lastError = err.Error()
	n.lastErrorMu.Unlock()
}
