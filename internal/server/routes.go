package server

import (
	"net/http"
)

// setupRoutes registers all API routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/blueprints/upload", s.app.BlueprintHandler.UploadHandler)
	mux.HandleFunc("/api/blueprints/result", s.app.BlueprintHandler.ResultHandler)
	mux.HandleFunc("/api/blueprints/export", s.app.BlueprintHandler.ExportHandler)
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)

	return mux
}
