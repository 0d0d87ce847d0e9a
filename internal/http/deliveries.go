package http

import (
	"net/http"
	"time"

	"github.com/serialagent/gateway/internal/store"
)

// DeliveriesHandler serves the delivery inbox (spec §6 `GET /v1/deliveries`).
type DeliveriesHandler struct {
	stores store.DeliveryStore
	token  string
}

func NewDeliveriesHandler(stores store.DeliveryStore, token string) *DeliveriesHandler {
	return &DeliveriesHandler{stores: stores, token: token}
}

func (h *DeliveriesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/deliveries", requireToken(h.token, h.handleList))
	mux.HandleFunc("GET /v1/deliveries/{id}", requireToken(h.token, h.handleGet))
	mux.HandleFunc("POST /v1/deliveries/{id}/read", requireToken(h.token, h.handleRead))
}

func (h *DeliveriesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	_, limit := pageParams(r, 50)
	deliveries, err := h.stores.List(r.Context(), r.URL.Query().Get("target"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deliveries": deliveries})
}

func (h *DeliveriesHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.stores.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DeliveriesHandler) handleRead(w http.ResponseWriter, r *http.Request) {
	d, err := h.stores.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	d.ReadAt = time.Now()
	if err := h.stores.Update(r.Context(), d); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}
