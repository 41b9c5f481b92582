package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/sirupsen/logrus"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// maxBodyBytes bounds request bodies; a capture plus descriptor fits easily.
const maxBodyBytes = 8 << 20

// failure is the body of every unsuccessful response.
type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends a failure response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, failure{Message: message})
}

// decodeBody reads a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// employeeIDParam parses the {id} route parameter.
func employeeIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid employee id")
		return 0, false
	}
	return id, true
}

// respondServiceError maps service errors to a failure response. Unknown
// errors are logged and answered with a generic message.
func respondServiceError(w http.ResponseWriter, log logrus.FieldLogger, op string, err error) {
	switch {
	case errors.Is(err, facematch.ErrInputFormat):
		respondError(w, http.StatusBadRequest, "Invalid face data format")
	case errors.Is(err, attendance.ErrEmployeeNotFound):
		respondError(w, http.StatusNotFound, "Employee not found")
	case errors.Is(err, attendance.ErrNoCandidates):
		respondJSON(w, http.StatusOK, failure{
			Message: "No employees are registered for face recognition",
			Reason:  attendance.ReasonNoCandidates,
		})
	case errors.Is(err, attendance.ErrOpenRecordConflict):
		respondError(w, http.StatusConflict, "Attendance was updated by another request, please try again")
	default:
		logging.SystemError(log, op, err, nil)
		respondError(w, http.StatusInternalServerError, "Face recognition failed, please try again")
	}
}

// HealthCheck handles the liveness endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
