package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"exam-prep-payments/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
}

type successBody struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientErrors are caller faults; anything else is logged at error.
var clientErrors = []error{
	domain.ErrUnauthenticated,
	domain.ErrMissingParameters,
	domain.ErrInvalidSignature,
	domain.ErrPaymentRecordNotFound,
	domain.ErrInvalidArgument,
}

// publicErrors are rendered by their own message; detail stays in the logs.
var publicErrors = []error{
	domain.ErrUnauthenticated,
	domain.ErrMissingParameters,
	domain.ErrInvalidSignature,
	domain.ErrPaymentRecordNotFound,
	domain.ErrSubscriptionUpdateFailed,
	domain.ErrInvalidArgument,
}

// errorMessage renders the taxonomy member carried by err, or fallback when
// err carries none. Order creation keeps its detail so the gateway's
// description reaches the client.
func errorMessage(err, fallback error) string {
	if errors.Is(err, domain.ErrOrderCreationFailed) {
		return err.Error()
	}
	for _, target := range publicErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return fallback.Error()
}

func isClientError(err error) bool {
	for _, e := range clientErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// writeError renders every core failure as 400 {error}.
func writeError(w http.ResponseWriter, log *zerolog.Logger, err, fallback error) {
	ev := log.Error()
	if isClientError(err) {
		ev = log.Warn()
	}
	ev.Err(err).Msg("request failed")
	writeJSON(w, http.StatusBadRequest, errorBody{Error: errorMessage(err, fallback)})
}
