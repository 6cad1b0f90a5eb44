package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParcelStatus_Valid(t *testing.T) {
	for _, st := range ParcelStatuses {
		require.True(t, st.Valid(), st)
	}
	require.False(t, ParcelStatus("").Valid())
	require.False(t, ParcelStatus("picked up").Valid())
	require.False(t, ParcelStatus("Lost").Valid())
}

func TestParcel_IsParticipant(t *testing.T) {
	p := &Parcel{SenderID: "s1"}
	require.True(t, p.IsParticipant("s1"))
	require.False(t, p.IsParticipant("t1"))
	require.False(t, p.IsParticipant(""))

	t1 := "t1"
	p.TransporterID = &t1
	require.True(t, p.IsParticipant("t1"))
	require.False(t, p.IsParticipant("r1"))
}

func TestParcelUpdateInput_IsEmpty(t *testing.T) {
	require.True(t, ParcelUpdateInput{}.IsEmpty())

	f := false
	require.False(t, ParcelUpdateInput{LiveTrackingEnabled: &f}.IsEmpty())

	st := ParcelStatusIssue
	require.False(t, ParcelUpdateInput{Status: &st}.IsEmpty())
}
