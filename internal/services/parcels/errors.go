package parcels

import "github.com/pkg/errors"

// Kind classifies service errors for the transport layer.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindForbidden
	KindInvalid
)

// Error is a client-facing service error. Msg is safe to show to callers.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

var (
	ErrParcelNotFound         = &Error{Kind: KindNotFound, Msg: "Parcel not found"}
	ErrAlreadyAccepted        = &Error{Kind: KindConflict, Msg: "Parcel already accepted"}
	ErrManualTrackingDisabled = &Error{Kind: KindForbidden, Msg: "Manual tracking is disabled for this parcel"}
	ErrNotAllowedToPostEvent  = &Error{Kind: KindForbidden, Msg: "Not allowed to post tracking events for this parcel"}
	ErrLiveTrackingDisabled   = &Error{Kind: KindForbidden, Msg: "Live GPS tracking is disabled for this parcel"}
	ErrNotAcceptedCarrier     = &Error{Kind: KindForbidden, Msg: "Only the accepted carrier can post location"}
	ErrReceiverMismatch       = &Error{Kind: KindForbidden, Msg: "Only the parcel receiver can post receiver location"}
)

func invalid(msg string) *Error {
	return &Error{Kind: KindInvalid, Msg: msg}
}

// KindOf returns the Kind of err, or 0 when err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
