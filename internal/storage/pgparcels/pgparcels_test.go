package pgparcels

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/BearBump/ParcelTrack/internal/storage"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPGParcels_RepoFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "parcel_app_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/parcel_app_test?sslmode=disable"

	// postgres restarts once during init, so the first connect may fail.
	var st *Storage
	require.Eventually(t, func() bool {
		st, err = New(dsn)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)
	t.Cleanup(st.Close)
	require.NoError(t, st.Ping(ctx))

	base := time.Now().UTC().Truncate(time.Microsecond)
	lat, lng := 53.55, 9.99
	p1 := &models.Parcel{
		ID: "p1", Origin: "Berlin", Destination: "Hamburg",
		DestinationLat: &lat, DestinationLng: &lng,
		SenderID: "sender-1", Status: models.ParcelStatusPending,
		ManualTrackingEnabled: true, LiveTrackingEnabled: true,
		CreatedAt: base, UpdatedAt: base,
	}
	p2 := *p1
	p2.ID = "p2"
	p2.CreatedAt = base.Add(time.Second)
	p2.UpdatedAt = p2.CreatedAt
	require.NoError(t, st.CreateParcel(ctx, p1))
	require.NoError(t, st.CreateParcel(ctx, &p2))

	list, err := st.ListParcels(ctx, 200)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "p2", list[0].ID)
	require.Equal(t, time.UTC, list[0].CreatedAt.Location())
	require.True(t, list[0].CreatedAt.Equal(p2.CreatedAt))
	require.Nil(t, list[0].TransporterID)
	require.InDelta(t, lat, *list[0].DestinationLat, 1e-9)

	_, err = st.GetParcel(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	off := false
	require.NoError(t, st.UpdateParcel(ctx, "p1", storage.ParcelPatch{LiveTrackingEnabled: &off, UpdatedAt: base.Add(time.Minute)}))
	got, err := st.GetParcel(ctx, "p1")
	require.NoError(t, err)
	require.False(t, got.LiveTrackingEnabled)
	require.True(t, got.ManualTrackingEnabled)
	require.Equal(t, models.ParcelStatusPending, got.Status)
	require.ErrorIs(t, st.UpdateParcel(ctx, "missing", storage.ParcelPatch{UpdatedAt: base}), storage.ErrNotFound)

	require.NoError(t, st.AcceptParcel(ctx, "p1", "carrier-1", base))
	require.ErrorIs(t, st.AcceptParcel(ctx, "p1", "carrier-2", base), storage.ErrConflict)
	got, err = st.GetParcel(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "carrier-1", *got.TransporterID)
	require.Equal(t, models.ParcelStatusAccepted, got.Status)

	require.NoError(t, st.BindReceiver(ctx, "p1", "receiver-1", base))
	require.ErrorIs(t, st.BindReceiver(ctx, "p1", "receiver-2", base), storage.ErrConflict)

	note := "left the depot"
	require.NoError(t, st.CreateTrackingEvent(ctx, &models.TrackingEvent{
		ID: "e1", ParcelID: "p1", EventType: models.ParcelStatusAccepted, CreatedByUserID: "carrier-1", CreatedAt: base,
	}))
	require.NoError(t, st.CreateTrackingEvent(ctx, &models.TrackingEvent{
		ID: "e2", ParcelID: "p1", EventType: models.ParcelStatusInTransit, Note: &note, CreatedByUserID: "carrier-1", CreatedAt: base,
	}))
	evs, err := st.ListTrackingEvents(ctx, "p1", 500)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	require.Equal(t, "e1", evs[0].ID)
	require.Equal(t, "e2", evs[1].ID)
	require.Equal(t, note, *evs[1].Note)

	none, err := st.LatestReceiverLocation(ctx, "p1")
	require.NoError(t, err)
	require.Nil(t, none)

	speed := 12.5
	require.NoError(t, st.CreateCarrierLocation(ctx, &models.CarrierLocation{ID: "c1", ParcelID: "p1", CarrierID: "carrier-1", Lat: 1, Lng: 1, Timestamp: base}))
	require.NoError(t, st.CreateCarrierLocation(ctx, &models.CarrierLocation{ID: "c2", ParcelID: "p1", CarrierID: "carrier-1", Lat: 2, Lng: 2, Speed: &speed, Timestamp: base}))
	cl, err := st.LatestCarrierLocation(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "c2", cl.ID)
	require.InDelta(t, speed, *cl.Speed, 1e-9)

	require.NoError(t, st.CreateReceiverLocation(ctx, &models.ReceiverLocation{ID: "r1", ParcelID: "p1", ReceiverID: "receiver-1", Lat: 3, Lng: 3, Timestamp: base}))
	rl, err := st.LatestReceiverLocation(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "r1", rl.ID)

	require.NoError(t, st.InsertNotification(ctx, &models.Notification{
		ID: "n1", UserID: "sender-1", ParcelID: "p1", Title: "t", Body: "b",
		Data: map[string]any{"type": "status_change"}, CreatedAt: base,
	}))
}

func TestRegisterUTCTimestamps(t *testing.T) {
	m := pgtype.NewMap()
	registerUTCTimestamps(m)

	berlin := time.FixedZone("CET", 3600)
	src := time.Date(2026, 1, 2, 4, 4, 5, 0, berlin)

	buf, err := m.Encode(pgtype.TimestamptzOID, pgtype.BinaryFormatCode, src, nil)
	require.NoError(t, err)

	var got time.Time
	require.NoError(t, m.Scan(pgtype.TimestamptzOID, pgtype.BinaryFormatCode, buf, &got))
	require.Equal(t, time.UTC, got.Location())
	require.True(t, got.Equal(src))
}
