package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	recognition config.RecognitionConfig
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg config.RecognitionConfig) *ConfigHandler {
	return &ConfigHandler{recognition: cfg}
}

// ConfigResponse is the kiosk client configuration
type ConfigResponse struct {
	Threshold            float64 `json:"threshold"`
	KioskMode            bool    `json:"kiosk_mode"`
	StoreImages          bool    `json:"store_images"`
	CacheValiditySeconds int     `json:"cache_validity_seconds"`
}

// Get returns the recognition settings the kiosk needs
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		Threshold:            h.recognition.Threshold,
		KioskMode:            h.recognition.KioskMode,
		StoreImages:          h.recognition.StoreImages,
		CacheValiditySeconds: h.recognition.CacheValiditySeconds,
	})
}
