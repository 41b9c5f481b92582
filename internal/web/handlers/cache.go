package handlers

import "net/http"

// CacheStatus returns the encoding cache state.
func (h *FacesHandler) CacheStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.CacheStatus())
}

type cacheRefreshResponse struct {
	Success   bool `json:"success"`
	CacheSize int  `json:"cache_size"`
}

// CacheRefresh rebuilds the encoding cache now.
func (h *FacesHandler) CacheRefresh(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.RefreshCache(r.Context())
	if err != nil {
		respondServiceError(w, h.log, "cache_refresh", err)
		return
	}
	respondJSON(w, http.StatusOK, cacheRefreshResponse{Success: true, CacheSize: n})
}
