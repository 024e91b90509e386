package api

import "net/http"

func (s *Server) handleListWarnings(w http.ResponseWriter, _ *http.Request) {
	warnings := s.deps.Warnings.List()

	response := make([]warningResponse, 0, len(warnings))
	for _, warning := range warnings {
		response = append(response, toWarningResponse(warning))
	}

	respondJSON(w, http.StatusOK, response)
}
