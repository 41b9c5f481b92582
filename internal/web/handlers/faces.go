// Package handlers provides HTTP handlers for the web API.
package handlers

import (
	"context"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/facecache"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/sirupsen/logrus"
)

// FaceService is the recognition surface used by the handlers.
type FaceService interface {
	Register(ctx context.Context, employeeID int64, encoded string) (*attendance.RegisterResult, error)
	Verify(ctx context.Context, encoded, image string) (*attendance.VerifyResult, error)
	TemplateCount(ctx context.Context, employeeID int64) (int, error)
	ClearFaces(ctx context.Context, employeeID int64) error
	SetFaceActive(ctx context.Context, employeeID int64, active bool) error
	Prune(ctx context.Context, keep int) (*attendance.PruneReport, error)
	CacheStatus() facecache.Status
	RefreshCache(ctx context.Context) (int, error)
	Config() config.RecognitionConfig
}

// FacesHandler handles face registration, verification and face data management
type FacesHandler struct {
	service FaceService
	log     logrus.FieldLogger
}

// NewFacesHandler creates a new faces handler
func NewFacesHandler(service FaceService, log logrus.FieldLogger) *FacesHandler {
	if log == nil {
		log = logging.Discard()
	}
	return &FacesHandler{service: service, log: log}
}

type registerRequest struct {
	EmployeeID   int64  `json:"employee_id"`
	FaceEncoding string `json:"face_encoding"`
}

// Register appends face templates to an employee. Manager role required.
func (h *FacesHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.EmployeeID <= 0 {
		respondError(w, http.StatusBadRequest, "employee_id is required")
		return
	}

	res, err := h.service.Register(r.Context(), req.EmployeeID, req.FaceEncoding)
	if err != nil {
		respondServiceError(w, h.log, "register", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type verifyRequest struct {
	FaceEncoding string `json:"face_encoding"`
	Image        string `json:"image,omitempty"`
}

// Verify matches a descriptor and records check-in or check-out.
func (h *FacesHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.service.Verify(r.Context(), req.FaceEncoding, req.Image)
	if err != nil {
		respondServiceError(w, h.log, "verify", err)
		return
	}
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil && res.Success {
		h.log.WithFields(logrus.Fields{
			"device":      claims.Subject,
			"employee_id": res.EmployeeID,
			"action":      res.Action,
		}).Debug("verification accepted")
	}
	respondJSON(w, http.StatusOK, res)
}

type templateCountResponse struct {
	EmployeeID     int64 `json:"employee_id"`
	TemplatesCount int   `json:"templates_count"`
}

// Count returns how many templates an employee has.
func (h *FacesHandler) Count(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeIDParam(w, r)
	if !ok {
		return
	}
	n, err := h.service.TemplateCount(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.log, "template_count", err)
		return
	}
	respondJSON(w, http.StatusOK, templateCountResponse{EmployeeID: id, TemplatesCount: n})
}

// Clear removes all face data of an employee.
func (h *FacesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.ClearFaces(r.Context(), id); err != nil {
		respondServiceError(w, h.log, "clear", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Face data cleared",
	})
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

// SetActive toggles whether an employee takes part in recognition.
func (h *FacesHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeIDParam(w, r)
	if !ok {
		return
	}
	var req setActiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Active == nil {
		respondError(w, http.StatusBadRequest, "active is required")
		return
	}
	if err := h.service.SetFaceActive(r.Context(), id, *req.Active); err != nil {
		respondServiceError(w, h.log, "set_active", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"active":  *req.Active,
	})
}

type pruneRequest struct {
	Keep int `json:"keep"`
}

// Prune trims every collection to the newest templates. Without an explicit
// keep the configured maximum is used.
func (h *FacesHandler) Prune(w http.ResponseWriter, r *http.Request) {
	var req pruneRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	if req.Keep == 0 {
		req.Keep = h.service.Config().MaxTemplates
	}
	if req.Keep <= 0 {
		respondError(w, http.StatusBadRequest, "keep must be a positive number")
		return
	}

	report, err := h.service.Prune(r.Context(), req.Keep)
	if err != nil {
		respondServiceError(w, h.log, "prune", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
