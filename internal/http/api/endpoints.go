package api

import (
	"net/http"
	"strings"
)

func (s *Server) handleListEndpoints(w http.ResponseWriter, _ *http.Request) {
	current := s.deps.Endpoints.Current()
	endpoints := s.deps.Endpoints.Endpoints()

	response := make([]endpointResponse, 0, len(endpoints))
	for _, endpoint := range endpoints {
		response = append(response, toEndpointResponse(endpoint, endpoint.URL == current.URL))
	}

	respondJSON(w, http.StatusOK, response)
}

// handleSwitchEndpoint answers 404 for a URL outside the configured list;
// the selection is left as it was.
func (s *Server) handleSwitchEndpoint(w http.ResponseWriter, r *http.Request) {
	var request switchEndpointRequest
	if err := decodeJSON(w, r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	url := strings.TrimSpace(request.URL)
	if url == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	known := false
	for _, endpoint := range s.deps.Endpoints.Endpoints() {
		if endpoint.URL == url {
			known = true
			break
		}
	}
	if !known {
		respondError(w, http.StatusNotFound, "unknown endpoint")
		return
	}

	current := s.deps.Endpoints.SwitchEndpoint(url)

	respondJSON(w, http.StatusOK, toEndpointResponse(current, true))
}
