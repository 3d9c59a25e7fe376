// Package api implements the orchestrator's HTTP control plane: agent and
// task lifecycle endpoints, a status/metrics surface, and a realtime status
// stream, all over net/http's ServeMux rather than a web framework.
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/archon-ai/orchestrator/internal/orcherr"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to an HTTP status and a {"error": "..."} body. An
// *orcherr.Error carries its own status (explicit or via HTTPStatusOf);
// any other error is reported as an unclassified 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if oe, ok := err.(*orcherr.Error); ok {
		status := oe.HTTPStatus
		if status == 0 {
			status = orcherr.HTTPStatusOf(oe.Code)
		}
		writeJSON(w, status, map[string]string{"error": oe.Message})
		return
	}
	logger.Error("unclassified handler error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

// notReady is the canned ServiceNotReady error for endpoints that require
// the orchestrator to be running.
var notReady = orcherr.New(orcherr.ServiceNotReady, "orchestrator is not running").WithHTTPStatus(http.StatusServiceUnavailable)
