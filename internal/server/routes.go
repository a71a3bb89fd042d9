// -----------------------------------------------------------------------
// Last Modified: Friday, 29th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Research jobs
	mux.HandleFunc("/api/research", s.handleResearchCollection) // GET (list), POST (submit)
	mux.HandleFunc("/api/research/", s.handleResearchRoutes)    // /{id}, /{id}/status, /{id}/result

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)

	// Screenshot artifacts served from the filesystem store
	screenshotPrefix := s.app.Config.Storage.Filesystem.PublicPath
	if !strings.HasSuffix(screenshotPrefix, "/") {
		screenshotPrefix += "/"
	}
	mux.Handle(screenshotPrefix, http.StripPrefix(screenshotPrefix,
		http.FileServer(http.Dir(s.app.Config.Storage.Filesystem.Screenshots))))

	return mux
}

// handleResearchCollection routes /api/research
func (s *Server) handleResearchCollection(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r,
		s.app.ResearchHandler.ListHandler,
		s.app.ResearchHandler.SubmitHandler,
	)
}

// handleResearchRoutes routes /api/research/{id} and subpaths
func (s *Server) handleResearchRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/research/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	if len(parts) == 0 || parts[0] == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	jobID := parts[0]

	if len(parts) == 1 {
		RouteResourceItem(w, r,
			func(w http.ResponseWriter, r *http.Request) { s.app.ResearchHandler.GetHandler(w, r, jobID) },
			nil,
			func(w http.ResponseWriter, r *http.Request) { s.app.ResearchHandler.DeleteHandler(w, r, jobID) },
		)
		return
	}

	switch parts[1] {
	case "status":
		s.app.ResearchHandler.StatusHandler(w, r, jobID)
	case "result":
		s.app.ResearchHandler.ResultHandler(w, r, jobID)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}
