package parcels_api

import (
	"net/http"

	"github.com/BearBump/ParcelTrack/internal/services/parcels"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// ParcelsAPI serves the /api HTTP contract on top of the parcel service.
type ParcelsAPI struct {
	svc      *parcels.Service
	validate *validator.Validate
}

func New(svc *parcels.Service) *ParcelsAPI {
	return &ParcelsAPI{svc: svc, validate: newValidator()}
}

// Routes returns the handlers relative to the /api prefix.
func (a *ParcelsAPI) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", a.health)

	r.Route("/parcels", func(r chi.Router) {
		r.Post("/", a.createParcel)
		r.Get("/", a.listParcels)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getParcel)
			r.Patch("/", a.updateParcel)
			r.Patch("/accept", a.acceptParcel)

			r.Get("/tracking-events", a.listTrackingEvents)
			r.Post("/tracking-events", a.createTrackingEvent)

			r.Get("/carrier-location", a.getCarrierLocation)
			r.Post("/carrier-location", a.postCarrierLocation)
			r.Get("/receiver-location", a.getReceiverLocation)
			r.Post("/receiver-location", a.postReceiverLocation)
		})
	})
	return r
}

func (a *ParcelsAPI) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *ParcelsAPI) createParcel(w http.ResponseWriter, r *http.Request) {
	var req createParcelRequest
	if err := a.decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.svc.Create(r.Context(), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *ParcelsAPI) listParcels(w http.ResponseWriter, r *http.Request) {
	ps, err := a.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (a *ParcelsAPI) getParcel(w http.ResponseWriter, r *http.Request) {
	p, err := a.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *ParcelsAPI) updateParcel(w http.ResponseWriter, r *http.Request) {
	var req updateParcelRequest
	if err := a.decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.svc.Update(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *ParcelsAPI) acceptParcel(w http.ResponseWriter, r *http.Request) {
	var req acceptParcelRequest
	if err := a.decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.svc.Accept(r.Context(), chi.URLParam(r, "id"), *req.TransporterID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *ParcelsAPI) listTrackingEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := a.svc.ListTrackingEvents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

func (a *ParcelsAPI) createTrackingEvent(w http.ResponseWriter, r *http.Request) {
	var req createTrackingEventRequest
	if err := a.decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := a.svc.CreateTrackingEvent(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *ParcelsAPI) getCarrierLocation(w http.ResponseWriter, r *http.Request) {
	l, err := a.svc.GetCarrierLocation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	// A nil ping encodes as JSON null.
	writeJSON(w, http.StatusOK, l)
}

func (a *ParcelsAPI) postCarrierLocation(w http.ResponseWriter, r *http.Request) {
	carrierID, err := a.requireQuery(r, "carrierId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req carrierLocationRequest
	if err := a.decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := a.svc.PostCarrierLocation(r.Context(), chi.URLParam(r, "id"), carrierID, req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *ParcelsAPI) getReceiverLocation(w http.ResponseWriter, r *http.Request) {
	l, err := a.svc.GetReceiverLocation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *ParcelsAPI) postReceiverLocation(w http.ResponseWriter, r *http.Request) {
	receiverID, err := a.requireQuery(r, "receiverId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req receiverLocationRequest
	if err := a.decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := a.svc.PostReceiverLocation(r.Context(), chi.URLParam(r, "id"), receiverID, req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}
