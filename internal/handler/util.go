// Package handler implements the HTTP endpoints of the reactor.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/snowparadise/reactor/internal/apperr"
	"github.com/snowparadise/reactor/internal/middleware"
	"github.com/snowparadise/reactor/pkg/logger"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as a JSON error response. Internal errors are logged
// with their cause, which is never sent to the caller.
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	status, body := apperr.Response(err)
	if body.Error.Code == apperr.CodeInternal {
		log.Error("request failed",
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.InvalidArgument("invalid request body")
	}
	return nil
}
