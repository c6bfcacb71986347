package main

import (
	"encoding/json"
	"net/http"

	"github.com/udisondev/blockregen/internal/bridge"
	"github.com/udisondev/blockregen/internal/coordinator"
)

type statusResponse struct {
	Enabled     bool     `json:"enabled"`
	Definitions int      `json:"definitions"`
	Worlds      []string `json:"worlds"`
	Sessions    int      `json:"sessions"`
	Matched     int64    `json:"matched"`
	Blocked     int64    `json:"blocked"`
	Depletions  int64    `json:"depletions"`
	Respawns    int64    `json:"respawns"`
	Active      int64    `json:"active"`
}

func newMux(hub *bridge.Hub, coord *coordinator.Coordinator) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/bridge", hub.Handler())

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		m := coord.MetricsSnapshot()
		resp := statusResponse{
			Enabled:     coord.IsEnabled(),
			Definitions: len(coord.Definitions()),
			Worlds:      hub.Worlds(),
			Sessions:    hub.SessionCount(),
			Matched:     m.MatchedInteractions,
			Blocked:     m.BlockedInteractions,
			Depletions:  m.Depletions,
			Respawns:    m.Respawns,
			Active:      m.ActiveStates,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	return mux
}
