package httpx

import "net/http"

// Health reports process liveness.
// GET /healthz.
func Health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
