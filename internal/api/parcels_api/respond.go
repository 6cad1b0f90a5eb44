package parcels_api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BearBump/ParcelTrack/internal/services/parcels"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: verr.msg})
		return
	}

	var serr *parcels.Error
	if errors.As(err, &serr) {
		writeJSON(w, statusFor(serr.Kind), errorBody{Detail: serr.Msg})
		return
	}

	slog.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"err", err,
	)
	writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "Internal server error"})
}

func statusFor(k parcels.Kind) int {
	switch k {
	case parcels.KindNotFound:
		return http.StatusNotFound
	case parcels.KindConflict:
		return http.StatusConflict
	case parcels.KindForbidden:
		return http.StatusForbidden
	case parcels.KindInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
