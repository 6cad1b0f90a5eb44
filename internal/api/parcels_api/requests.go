package parcels_api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/BearBump/ParcelTrack/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

const maxBodyBytes = 1 << 20

type createParcelRequest struct {
	Origin         *string  `json:"origin" validate:"required"`
	Destination    *string  `json:"destination" validate:"required"`
	OriginLat      *float64 `json:"originLat"`
	OriginLng      *float64 `json:"originLng"`
	DestinationLat *float64 `json:"destinationLat"`
	DestinationLng *float64 `json:"destinationLng"`

	SenderID   *string `json:"senderId" validate:"required"`
	ReceiverID *string `json:"receiverId" validate:"omitempty,min=1"`

	ReceiverName  *string  `json:"receiverName"`
	ReceiverPhone *string  `json:"receiverPhone"`
	ReceiverEmail *string  `json:"receiverEmail"`
	ReceiverLat   *float64 `json:"receiverLat"`
	ReceiverLng   *float64 `json:"receiverLng"`

	Compensation *float64 `json:"compensation"`
}

func (r createParcelRequest) toInput() models.ParcelCreateInput {
	return models.ParcelCreateInput{
		Origin:         *r.Origin,
		Destination:    *r.Destination,
		OriginLat:      r.OriginLat,
		OriginLng:      r.OriginLng,
		DestinationLat: r.DestinationLat,
		DestinationLng: r.DestinationLng,
		SenderID:       *r.SenderID,
		ReceiverID:     r.ReceiverID,
		ReceiverName:   r.ReceiverName,
		ReceiverPhone:  r.ReceiverPhone,
		ReceiverEmail:  r.ReceiverEmail,
		ReceiverLat:    r.ReceiverLat,
		ReceiverLng:    r.ReceiverLng,
		Compensation:   r.Compensation,
	}
}

// updateParcelRequest fields are optional; JSON null counts as absent.
type updateParcelRequest struct {
	ManualTrackingEnabled *bool                `json:"manualTrackingEnabled"`
	LiveTrackingEnabled   *bool                `json:"liveTrackingEnabled"`
	Status                *models.ParcelStatus `json:"status" validate:"omitempty,parcel_status"`
}

func (r updateParcelRequest) toInput() models.ParcelUpdateInput {
	return models.ParcelUpdateInput{
		ManualTrackingEnabled: r.ManualTrackingEnabled,
		LiveTrackingEnabled:   r.LiveTrackingEnabled,
		Status:                r.Status,
	}
}

type acceptParcelRequest struct {
	TransporterID *string `json:"transporterId" validate:"required"`
}

type createTrackingEventRequest struct {
	EventType       *models.ParcelStatus `json:"eventType" validate:"required,parcel_status"`
	Note            *string              `json:"note"`
	CreatedByUserID *string              `json:"createdByUserId" validate:"required"`
}

func (r createTrackingEventRequest) toInput() models.TrackingEventCreateInput {
	return models.TrackingEventCreateInput{
		EventType:       *r.EventType,
		Note:            r.Note,
		CreatedByUserID: *r.CreatedByUserID,
	}
}

type carrierLocationRequest struct {
	Lat      *float64 `json:"lat" validate:"required"`
	Lng      *float64 `json:"lng" validate:"required"`
	Heading  *float64 `json:"heading"`
	Speed    *float64 `json:"speed"`
	Accuracy *float64 `json:"accuracy"`
}

func (r carrierLocationRequest) toInput() models.CarrierLocationInput {
	return models.CarrierLocationInput{
		Lat:      *r.Lat,
		Lng:      *r.Lng,
		Heading:  r.Heading,
		Speed:    r.Speed,
		Accuracy: r.Accuracy,
	}
}

type receiverLocationRequest struct {
	Lat      *float64 `json:"lat" validate:"required"`
	Lng      *float64 `json:"lng" validate:"required"`
	Accuracy *float64 `json:"accuracy"`
}

func (r receiverLocationRequest) toInput() models.ReceiverLocationInput {
	return models.ReceiverLocationInput{
		Lat:      *r.Lat,
		Lng:      *r.Lng,
		Accuracy: r.Accuracy,
	}
}

// validationError is answered with 422.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("parcel_status", func(fl validator.FieldLevel) bool {
		return models.ParcelStatus(fl.Field().String()).Valid()
	})
	return v
}

// decodeBody reads a JSON body into dst and validates it.
func (a *ParcelsAPI) decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &validationError{msg: "request body is required"}
		}
		return &validationError{msg: "invalid JSON body: " + err.Error()}
	}
	return a.validateStruct(dst)
}

func (a *ParcelsAPI) validateStruct(v any) error {
	err := a.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &validationError{msg: err.Error()}
	}
	return &validationError{msg: describe(verrs[0])}
}

func (a *ParcelsAPI) requireQuery(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if err := a.validate.Var(v, "required"); err != nil {
		return "", &validationError{msg: name + " query parameter is required"}
	}
	return v, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must not be empty"
	case "parcel_status":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), statusList())
	default:
		return fe.Field() + " is invalid"
	}
}

func statusList() string {
	names := make([]string, 0, len(models.ParcelStatuses))
	for _, s := range models.ParcelStatuses {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
