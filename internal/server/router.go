package server

import "net/http"

// NewRouter wires HTTP routes to the server's handlers.
func NewRouter(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/decode", s.handleDecode)
	mux.HandleFunc("/v1/models", s.handleModels)
	mux.HandleFunc("/v1/metrics", s.handleMetrics)
	if s.store != nil {
		mux.HandleFunc("/v1/dives", s.handleDives)
		mux.HandleFunc("/v1/dives/", s.handleDive)
	}
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}
