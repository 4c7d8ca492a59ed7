package api

import (
	"context"
	"encoding/json"
	"net/http"
)

type handlers struct {
	ctrl  Controller
	store Store
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *handlers) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

// postRefresh fires a refresh in the background and returns immediately;
// an e-paper refresh takes far too long to hold an HTTP request open.
func (h *handlers) postRefresh(w http.ResponseWriter, r *http.Request) {
	go h.ctrl.Refresh(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}

func (h *handlers) getLatestImage(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Latest()
	if err != nil {
		http.Error(w, "no cached images", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, rec.Path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
