package httpapi

import (
	"net/http"

	"referral-engine/internal/poll"
)

type IngestHandler struct {
	Runner *poll.Runner
}

func (h IngestHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Runner.Status())
}

// Run starts a batch scan in the background.
func (h IngestHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.Runner.Start(r.Context()) {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}
