package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stanstork/taller-api/internal/authz"
	"github.com/stanstork/taller-api/internal/models"
	"github.com/stanstork/taller-api/internal/orden"
)

type OrdenHandler struct {
	service *orden.Service
	logger  zerolog.Logger
}

type transitionRequest struct {
	Estado models.Estado `json:"estado"`
	Motivo *string       `json:"motivo,omitempty"`
}

type prioridadRequest struct {
	Prioridad models.Prioridad `json:"prioridad"`
}

type tecnicoRequest struct {
	TecnicoID string `json:"tecnico_id"`
}

type cotizacionRequest struct {
	Monto decimal.Decimal `json:"monto"`
}

func NewOrdenHandler(service *orden.Service, logger zerolog.Logger) *OrdenHandler {
	return &OrdenHandler{
		service: service,
		logger:  logger.With().Str("handler", "orden").Logger(),
	}
}

func ordenID(r *http.Request) string {
	return strings.TrimSpace(mux.Vars(r)["id"])
}

func (h *OrdenHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req models.NuevaOrden
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err, "invalid orden request")
		return
	}
	created, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, err, "failed to create orden")
		return
	}
	detalle, err := h.service.Get(r.Context(), created.ID)
	if err != nil {
		writeError(w, h.logger, err, "failed to load orden")
		return
	}
	writeJSON(w, http.StatusCreated, detalle)
}

func (h *OrdenHandler) Get(w http.ResponseWriter, r *http.Request) {
	detalle, err := h.service.Get(r.Context(), ordenID(r))
	if err != nil {
		writeError(w, h.logger, err, "failed to load orden")
		return
	}
	writeJSON(w, http.StatusOK, detalle)
}

func (h *OrdenHandler) History(w http.ResponseWriter, r *http.Request) {
	historial, err := h.service.History(r.Context(), ordenID(r))
	if err != nil {
		writeError(w, h.logger, err, "failed to load historial")
		return
	}
	if historial == nil {
		historial = []models.HistorialEstado{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"historial": historial})
}

func (h *OrdenHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	detalle, err := h.service.Get(r.Context(), ordenID(r))
	if err != nil {
		writeError(w, h.logger, err, "failed to load orden")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"estado":       detalle.Estado,
		"transiciones": detalle.Transiciones,
	})
}

func (h *OrdenHandler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err, "invalid transition request")
		return
	}
	detalle, err := h.service.Transition(r.Context(), actor, ordenID(r), req.Estado, req.Motivo)
	if err != nil {
		writeError(w, h.logger, err, "failed to transition orden")
		return
	}
	writeJSON(w, http.StatusOK, detalle)
}

func (h *OrdenHandler) ChangePriority(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req prioridadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err, "invalid prioridad request")
		return
	}
	detalle, err := h.service.ChangePriority(r.Context(), actor, ordenID(r), req.Prioridad)
	if err != nil {
		writeError(w, h.logger, err, "failed to change prioridad")
		return
	}
	writeJSON(w, http.StatusOK, detalle)
}

func (h *OrdenHandler) ReassignTechnician(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req tecnicoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err, "invalid tecnico request")
		return
	}
	detalle, err := h.service.ReassignTechnician(r.Context(), actor, ordenID(r), req.TecnicoID)
	if err != nil {
		writeError(w, h.logger, err, "failed to reassign tecnico")
		return
	}
	writeJSON(w, http.StatusOK, detalle)
}

func (h *OrdenHandler) UpdateQuotation(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req cotizacionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err, "invalid cotizacion request")
		return
	}
	detalle, err := h.service.UpdateQuotation(r.Context(), actor, ordenID(r), req.Monto)
	if err != nil {
		writeError(w, h.logger, err, "failed to update cotizacion")
		return
	}
	writeJSON(w, http.StatusOK, detalle)
}
