package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/magicAuth"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type errorBody struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	RequestID  string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorBody{
		StatusCode: status,
		Message:    message,
		RequestID:  chimiddleware.GetReqID(r.Context()),
	})
}

// writeError maps err through the engine taxonomy. Server-side failures
// are logged with the underlying error; clients only see the public message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := magicAuth.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeStatus(w, r, status, magicAuth.PublicMessage(err))
}
