package handler

import "net/http"

// Healthz answers liveness probes.
func Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, Response{Success: true, Message: "ok"})
	}
}
