/* models.go
 * Contains the configuration and response types of the read-only web server
 * Authors: Zachary Bower
 */

package web

import (
	"ladder-bot/api/api"
	"ladder-bot/api/shared"
)

// Config holds the configuration for the web server
type Config struct {
	Addr string
	API  *api.API
}

// Server serves the ladder over HTTP
type Server struct {
	api *api.API
}

// NewServer creates a server reading from a
func NewServer(a *api.API) *Server {
	return &Server{api: a}
}

// StandingsResponse is the body of GET /standings
type StandingsResponse struct {
	Running bool          `json:"running"`
	Teams   []shared.Team `json:"teams"`
}

// ChallengesResponse is the body of GET /challenges
type ChallengesResponse struct {
	Challenges []shared.Challenge `json:"challenges"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}
