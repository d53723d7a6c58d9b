package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/park285/chess-arena/internal/match"
)

// Router exposes the websocket endpoint plus a small read-only HTTP
// surface over the registry's committed state.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", g.handleHealth)
	r.Get("/ws", g.HandleWS)
	r.Get("/matches", g.handleListMatches)
	r.Get("/matches/{matchID}", g.handleGetMatch)
	return r
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *Gateway) handleListMatches(w http.ResponseWriter, _ *http.Request) {
	snaps := g.reg.List()
	if snaps == nil {
		snaps = []match.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (g *Gateway) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "matchID")
	snap, ok := g.reg.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "match not found"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
