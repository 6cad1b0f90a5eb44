package parcels

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/ParcelTrack/internal/broker/messages"
	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/BearBump/ParcelTrack/internal/testutil"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []messages.ParcelUpdated
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, _, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var m messages.ParcelUpdated
	if err := json.Unmarshal(value, &m); err != nil {
		return err
	}
	p.msgs = append(p.msgs, m)
	return p.err
}

func (p *recordingPublisher) kinds() []messages.ParcelUpdatedKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]messages.ParcelUpdatedKind, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Kind)
	}
	return out
}

func newTestService(t *testing.T) (*Service, *testutil.MemRepo) {
	t.Helper()
	repo := testutil.NewMemRepo()
	s := New(repo, nil, 0)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s, repo
}

func mustCreate(t *testing.T, s *Service, senderID string) *models.Parcel {
	t.Helper()
	p, err := s.Create(context.Background(), models.ParcelCreateInput{
		Origin: "Berlin", Destination: "Hamburg", SenderID: senderID,
	})
	require.NoError(t, err)
	return p
}

func TestService_Create_Defaults(t *testing.T) {
	s, _ := newTestService(t)
	p := mustCreate(t, s, "s1")

	require.NotEmpty(t, p.ID)
	require.Equal(t, models.ParcelStatusPending, p.Status)
	require.Nil(t, p.TransporterID)
	require.True(t, p.ManualTrackingEnabled)
	require.False(t, p.LiveTrackingEnabled)
	require.Equal(t, p.CreatedAt, p.UpdatedAt)

	got, err := s.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
}

func TestService_Create_EmptySender(t *testing.T) {
	s, _ := newTestService(t)
	p, err := s.Create(context.Background(), models.ParcelCreateInput{Origin: "a", Destination: "b"})
	require.NoError(t, err)
	require.Equal(t, "", p.SenderID)
	require.Equal(t, models.ParcelStatusPending, p.Status)
}

func TestService_Create_TimestampsMatchStorePrecision(t *testing.T) {
	repo := testutil.NewMemRepo()
	s := New(repo, nil, 0)

	p, err := s.Create(context.Background(), models.ParcelCreateInput{Origin: "a", Destination: "b", SenderID: "s1"})
	require.NoError(t, err)
	require.Equal(t, time.UTC, p.CreatedAt.Location())
	require.Zero(t, p.CreatedAt.Nanosecond()%int(time.Millisecond))
	require.True(t, p.CreatedAt.Equal(p.CreatedAt.Truncate(time.Millisecond)))
	require.True(t, p.UpdatedAt.Equal(p.CreatedAt))
}

func TestService_Get_NotFound(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrParcelNotFound)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestService_List_NewestFirstCapped(t *testing.T) {
	s, _ := newTestService(t)
	var last *models.Parcel
	for i := 0; i < ListParcelsLimit+1; i++ {
		last = mustCreate(t, s, fmt.Sprintf("s%d", i))
	}

	out, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, out, ListParcelsLimit)
	require.Equal(t, last.ID, out[0].ID)
}

func TestService_List_EmptyIsNotNil(t *testing.T) {
	s, _ := newTestService(t)
	out, err := s.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestService_Accept_FirstWins(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	p := mustCreate(t, s, "s1")

	got, err := s.Accept(ctx, p.ID, "t1")
	require.NoError(t, err)
	require.Equal(t, "t1", *got.TransporterID)
	require.Equal(t, models.ParcelStatusAccepted, got.Status)
	require.True(t, got.UpdatedAt.After(p.UpdatedAt))

	_, err = s.Accept(ctx, p.ID, "t2")
	require.ErrorIs(t, err, ErrAlreadyAccepted)

	_, err = s.Accept(ctx, p.ID, "t1")
	require.ErrorIs(t, err, ErrAlreadyAccepted)

	again, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "t1", *again.TransporterID)

	evs, err := s.ListTrackingEvents(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.Equal(t, models.ParcelStatusAccepted, evs[0].EventType)
	require.Equal(t, "t1", evs[0].CreatedByUserID)
	require.Equal(t, "Parcel accepted by carrier", *evs[0].Note)
}

func TestService_Accept_EmptyTransporterIsFinal(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.Accept(context.Background(), "missing", "")
	require.ErrorIs(t, err, ErrParcelNotFound)

	p := mustCreate(t, s, "s1")
	got, err := s.Accept(context.Background(), p.ID, "")
	require.NoError(t, err)
	require.NotNil(t, got.TransporterID)
	require.Equal(t, "", *got.TransporterID)

	_, err = s.Accept(context.Background(), p.ID, "t1")
	require.ErrorIs(t, err, ErrAlreadyAccepted)
}

func TestService_Accept_Concurrent(t *testing.T) {
	s, _ := newTestService(t)
	p := mustCreate(t, s, "s1")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Accept(context.Background(), p.ID, fmt.Sprintf("t%d", i))
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, ErrAlreadyAccepted)
	}
	require.Equal(t, 1, ok)
}

func TestService_Update(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	p := mustCreate(t, s, "s1")

	same, err := s.Update(ctx, p.ID, models.ParcelUpdateInput{})
	require.NoError(t, err)
	require.Equal(t, p.UpdatedAt, same.UpdatedAt)

	live := true
	status := models.ParcelStatusIssue
	got, err := s.Update(ctx, p.ID, models.ParcelUpdateInput{LiveTrackingEnabled: &live, Status: &status})
	require.NoError(t, err)
	require.True(t, got.LiveTrackingEnabled)
	require.True(t, got.ManualTrackingEnabled)
	require.Equal(t, models.ParcelStatusIssue, got.Status)
	require.True(t, got.UpdatedAt.After(p.UpdatedAt))

	bad := models.ParcelStatus("Lost")
	_, err = s.Update(ctx, p.ID, models.ParcelUpdateInput{Status: &bad})
	require.Equal(t, KindInvalid, KindOf(err))

	_, err = s.Update(ctx, "missing", models.ParcelUpdateInput{LiveTrackingEnabled: &live})
	require.ErrorIs(t, err, ErrParcelNotFound)
}

func TestService_CreateTrackingEvent_Permissions(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	p := mustCreate(t, s, "s1")
	_, err := s.Accept(ctx, p.ID, "t1")
	require.NoError(t, err)

	_, err = s.CreateTrackingEvent(ctx, p.ID, models.TrackingEventCreateInput{
		EventType: models.ParcelStatusPickedUp, CreatedByUserID: "stranger",
	})
	require.ErrorIs(t, err, ErrNotAllowedToPostEvent)

	e, err := s.CreateTrackingEvent(ctx, p.ID, models.TrackingEventCreateInput{
		EventType: models.ParcelStatusPickedUp, CreatedByUserID: "t1",
	})
	require.NoError(t, err)
	require.Equal(t, p.ID, e.ParcelID)
	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, models.ParcelStatusPickedUp, got.Status)

	// Backwards transitions are allowed.
	_, err = s.CreateTrackingEvent(ctx, p.ID, models.TrackingEventCreateInput{
		EventType: models.ParcelStatusPending, CreatedByUserID: "s1",
	})
	require.NoError(t, err)
	got, err = s.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, models.ParcelStatusPending, got.Status)

	evs, err := s.ListTrackingEvents(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, evs, 3)
	require.Equal(t, models.ParcelStatusAccepted, evs[0].EventType)
	require.Equal(t, models.ParcelStatusPending, evs[2].EventType)
}

func TestService_CreateTrackingEvent_ManualDisabled(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	p := mustCreate(t, s, "s1")

	off := false
	_, err := s.Update(ctx, p.ID, models.ParcelUpdateInput{ManualTrackingEnabled: &off})
	require.NoError(t, err)

	for _, who := range []string{"s1", "stranger"} {
		_, err = s.CreateTrackingEvent(ctx, p.ID, models.TrackingEventCreateInput{
			EventType: models.ParcelStatusInTransit, CreatedByUserID: who,
		})
		require.ErrorIs(t, err, ErrManualTrackingDisabled)
	}

	_, err = s.CreateTrackingEvent(ctx, "missing", models.TrackingEventCreateInput{
		EventType: models.ParcelStatusInTransit, CreatedByUserID: "s1",
	})
	require.ErrorIs(t, err, ErrParcelNotFound)
}

func TestService_CarrierLocation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	p := mustCreate(t, s, "s1")

	none, err := s.GetCarrierLocation(ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, none)

	_, err = s.GetCarrierLocation(ctx, "missing")
	require.ErrorIs(t, err, ErrParcelNotFound)

	_, err = s.PostCarrierLocation(ctx, p.ID, "t1", models.CarrierLocationInput{Lat: 1, Lng: 2})
	require.ErrorIs(t, err, ErrLiveTrackingDisabled)

	_, err = s.Accept(ctx, p.ID, "t1")
	require.NoError(t, err)

	// Live tracking still off: even the accepted carrier is rejected.
	_, err = s.PostCarrierLocation(ctx, p.ID, "t1", models.CarrierLocationInput{Lat: 1, Lng: 2})
	require.ErrorIs(t, err, ErrLiveTrackingDisabled)

	on := true
	_, err = s.Update(ctx, p.ID, models.ParcelUpdateInput{LiveTrackingEnabled: &on})
	require.NoError(t, err)

	_, err = s.PostCarrierLocation(ctx, p.ID, "t2", models.CarrierLocationInput{Lat: 1, Lng: 2})
	require.ErrorIs(t, err, ErrNotAcceptedCarrier)

	l, err := s.PostCarrierLocation(ctx, p.ID, "t1", models.CarrierLocationInput{Lat: 1, Lng: 2})
	require.NoError(t, err)
	require.Equal(t, "t1", l.CarrierID)
	require.False(t, l.Timestamp.IsZero())

	l2, err := s.PostCarrierLocation(ctx, p.ID, "t1", models.CarrierLocationInput{Lat: 3, Lng: 4})
	require.NoError(t, err)

	latest, err := s.GetCarrierLocation(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, l2.ID, latest.ID)
}

func TestService_CarrierLocation_NoTransporter(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	p := mustCreate(t, s, "s1")
	on := true
	_, err := s.Update(ctx, p.ID, models.ParcelUpdateInput{LiveTrackingEnabled: &on})
	require.NoError(t, err)

	_, err = s.PostCarrierLocation(ctx, p.ID, "t1", models.CarrierLocationInput{Lat: 1, Lng: 2})
	require.ErrorIs(t, err, ErrNotAcceptedCarrier)
}

func TestService_ReceiverLocation_BindsFirstPoster(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	p := mustCreate(t, s, "s1")

	none, err := s.GetReceiverLocation(ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, none)

	l, err := s.PostReceiverLocation(ctx, p.ID, "r1", models.ReceiverLocationInput{Lat: 1, Lng: 1})
	require.NoError(t, err)
	require.Equal(t, "r1", l.ReceiverID)

	stored, err := repo.GetParcel(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "r1", *stored.ReceiverID)

	_, err = s.PostReceiverLocation(ctx, p.ID, "r2", models.ReceiverLocationInput{Lat: 1, Lng: 1})
	require.ErrorIs(t, err, ErrReceiverMismatch)

	_, err = s.PostReceiverLocation(ctx, p.ID, "r1", models.ReceiverLocationInput{Lat: 2, Lng: 2})
	require.NoError(t, err)

	latest, err := s.GetReceiverLocation(ctx, p.ID)
	require.NoError(t, err)
	require.InDelta(t, 2.0, latest.Lat, 1e-9)
}

func TestService_ReceiverLocation_PresetReceiver(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	rid := "r1"
	p, err := s.Create(ctx, models.ParcelCreateInput{Origin: "a", Destination: "b", SenderID: "s1", ReceiverID: &rid})
	require.NoError(t, err)

	_, err = s.PostReceiverLocation(ctx, p.ID, "r2", models.ReceiverLocationInput{})
	require.ErrorIs(t, err, ErrReceiverMismatch)

	_, err = s.PostReceiverLocation(ctx, "missing", "r1", models.ReceiverLocationInput{})
	require.ErrorIs(t, err, ErrParcelNotFound)
}

func TestService_PublishesMutations(t *testing.T) {
	s, _ := newTestService(t)
	pub := &recordingPublisher{}
	s.WithPublisher(pub, "parcel.updated")
	ctx := context.Background()

	dlat, dlng := 53.55, 9.99
	p, err := s.Create(ctx, models.ParcelCreateInput{
		Origin: "a", Destination: "b", SenderID: "s1", DestinationLat: &dlat, DestinationLng: &dlng,
	})
	require.NoError(t, err)
	_, err = s.Accept(ctx, p.ID, "t1")
	require.NoError(t, err)
	on := true
	_, err = s.Update(ctx, p.ID, models.ParcelUpdateInput{LiveTrackingEnabled: &on})
	require.NoError(t, err)
	_, err = s.CreateTrackingEvent(ctx, p.ID, models.TrackingEventCreateInput{EventType: models.ParcelStatusInTransit, CreatedByUserID: "t1"})
	require.NoError(t, err)
	speed := 10.0
	_, err = s.PostCarrierLocation(ctx, p.ID, "t1", models.CarrierLocationInput{Lat: 53.5, Lng: 9.9, Speed: &speed})
	require.NoError(t, err)
	_, err = s.PostReceiverLocation(ctx, p.ID, "r1", models.ReceiverLocationInput{Lat: 53.5, Lng: 9.9})
	require.NoError(t, err)

	require.Equal(t, []messages.ParcelUpdatedKind{
		messages.KindCreated,
		messages.KindAccepted,
		messages.KindFlagsChanged,
		messages.KindStatusChanged,
		messages.KindCarrierLocation,
		messages.KindReceiverLocation,
	}, pub.kinds())

	status := pub.msgs[3]
	require.Equal(t, "Accepted", status.PreviousStatus)
	require.Equal(t, "In Transit", status.Status)
	require.Equal(t, "t1", status.ActorID)

	loc := pub.msgs[4]
	require.NotNil(t, loc.Location)
	require.InDelta(t, speed, *loc.Location.Speed, 1e-9)
	require.NotNil(t, loc.Destination)
	require.InDelta(t, dlat, loc.Destination.Lat, 1e-9)
}

func TestService_PublishFailureDoesNotFailRequest(t *testing.T) {
	s, _ := newTestService(t)
	s.WithPublisher(&recordingPublisher{err: fmt.Errorf("broker down")}, "parcel.updated")

	p, err := s.Create(context.Background(), models.ParcelCreateInput{Origin: "a", Destination: "b", SenderID: "s1"})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
}

func TestService_CacheRefreshedOnMutation(t *testing.T) {
	repo := testutil.NewMemRepo()
	c := testutil.NewMemCache()
	s := New(repo, c, time.Minute).WithLocationCacheTTL(time.Minute)
	ctx := context.Background()

	p, err := s.Create(ctx, models.ParcelCreateInput{Origin: "a", Destination: "b", SenderID: "s1"})
	require.NoError(t, err)
	require.True(t, c.Has(parcelKey(p.ID)))

	_, err = s.Accept(ctx, p.ID, "t1")
	require.NoError(t, err)

	b, ok, err := c.Get(ctx, parcelKey(p.ID))
	require.NoError(t, err)
	require.True(t, ok)
	var cached models.Parcel
	require.NoError(t, json.Unmarshal(b, &cached))
	require.Equal(t, models.ParcelStatusAccepted, cached.Status)

	on := true
	_, err = s.Update(ctx, p.ID, models.ParcelUpdateInput{LiveTrackingEnabled: &on})
	require.NoError(t, err)
	_, err = s.PostCarrierLocation(ctx, p.ID, "t1", models.CarrierLocationInput{Lat: 1, Lng: 1})
	require.NoError(t, err)
	require.True(t, c.Has(carrierLocationKey(p.ID)))
}

func TestService_Ready(t *testing.T) {
	s, repo := newTestService(t)
	require.NoError(t, s.Ready(context.Background()))

	repo.PingErr = fmt.Errorf("down")
	require.Error(t, s.Ready(context.Background()))
}
