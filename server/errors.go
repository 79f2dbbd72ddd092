package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"lapcompare/models"
	"lapcompare/store"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classify maps an engine error to an HTTP status and a short kind label.
func classify(err error) (int, string) {
	var (
		perr *models.ParseError
		ierr *models.InsufficientDataError
		aerr *models.AlignmentError
		gerr *models.GPSValidationError
		cerr *models.ConfigError
	)

	switch {
	case errors.As(err, &perr):
		return http.StatusUnprocessableEntity, "parse"
	case errors.As(err, &ierr):
		return http.StatusUnprocessableEntity, "insufficient_data"
	case errors.As(err, &aerr):
		return http.StatusUnprocessableEntity, "alignment"
	case errors.As(err, &gerr):
		return http.StatusUnprocessableEntity, "gps_validation"
	case errors.As(err, &cerr):
		return http.StatusInternalServerError, "config"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := classify(err)

	entry := s.log.WithError(err).WithField("path", r.URL.Path).WithField("status", code)
	if code >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}

	writeJSON(w, code, errorResponse{Error: err.Error(), Kind: kind})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: "bad_request"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
