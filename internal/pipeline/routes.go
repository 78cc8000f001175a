package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/qnagen/internal/logging"
)

// maxRequestBytes bounds a request body, image included.
const maxRequestBytes = 16 << 20

// Runner executes a pipeline run.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// RegisterRoutes mounts the generation endpoint under /api on the given router.
func RegisterRoutes(r chi.Router, runner Runner) {
	r.Post("/api/generate", handleGenerate(runner))
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func handleGenerate(runner Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
			return
		}

		result, err := runner.Run(r.Context(), req)
		if err != nil {
			resp := errorResponse{Error: UserMessage(err)}
			if ve, ok := asValidation(err); ok {
				resp.Field = ve.Field
			}
			logging.FromContext(r.Context()).Warn("generate request failed", "error", err)
			writeJSON(w, HTTPStatus(err), resp)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func asValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
