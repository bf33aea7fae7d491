/* router.go
 * Contains the routes of the web server: a health check and read-only views of the standings, a single team and
 * the open challenges, all as JSON
 * Authors: Zachary Bower
 */

package web

import (
	"encoding/json"
	"errors"
	"ladder-bot/api/ladder"
	"ladder-bot/api/shared"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter constructs the router with every route bound to s
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.Use(jsonMiddleware)

	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/standings", s.StandingsHandler).Methods(http.MethodGet)
	r.HandleFunc("/teams/{name}", s.TeamHandler).Methods(http.MethodGet)
	r.HandleFunc("/challenges", s.ChallengesHandler).Methods(http.MethodGet)
	return r
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// HealthHandler reports that the server is up
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StandingsHandler returns every team ordered by rank
func (s *Server) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	teams := s.api.Ladder.Standings()
	if teams == nil {
		teams = []shared.Team{}
	}
	writeJSON(w, http.StatusOK, StandingsResponse{
		Running: s.api.Ladder.State().Running,
		Teams:   teams,
	})
}

// TeamHandler returns a single team by its exact name
func (s *Server) TeamHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	team, err := s.api.Ladder.Team(name)
	if err != nil {
		if errors.Is(err, ladder.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// ChallengesHandler returns the open challenges in the order they were issued
func (s *Server) ChallengesHandler(w http.ResponseWriter, r *http.Request) {
	challenges := s.api.Ladder.Challenges()
	if challenges == nil {
		challenges = []shared.Challenge{}
	}
	writeJSON(w, http.StatusOK, ChallengesResponse{Challenges: challenges})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
