// Package handler provides the HTTP handlers for the core banking API.
package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"corebank/internal/transfer"
	"corebank/pkg/errors"
	"corebank/pkg/logger"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors onto HTTP statuses. Internal detail
// never leaks past this point; services log it before returning.
func respondServiceError(w http.ResponseWriter, log logger.Logger, err error) {
	switch {
	case stderrors.Is(err, errors.ErrAccountNotFound),
		stderrors.Is(err, errors.ErrTransactionNotFound),
		stderrors.Is(err, errors.ErrUserNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case stderrors.Is(err, errors.ErrUnauthorized):
		respondError(w, http.StatusForbidden, err.Error())
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		respondError(w, http.StatusConflict, err.Error())
	case stderrors.Is(err, errors.ErrInvalidAmount),
		stderrors.Is(err, errors.ErrSameAccount),
		stderrors.Is(err, errors.ErrCurrencyMismatch),
		stderrors.Is(err, errors.ErrAccountStatus),
		stderrors.Is(err, errors.ErrInsufficientFunds),
		stderrors.Is(err, errors.ErrDailyLimitExceeded),
		stderrors.Is(err, errors.ErrBalanceLimitExceeded),
		stderrors.Is(err, errors.ErrExternalValidation),
		stderrors.Is(err, errors.ErrInvalidAccountType),
		stderrors.Is(err, errors.ErrInvalidCurrency),
		stderrors.Is(err, errors.ErrInvalidLimitValue),
		stderrors.Is(err, errors.ErrInvalidTransition),
		stderrors.Is(err, errors.ErrInvalidTransactionType),
		stderrors.Is(err, transfer.ErrAmbiguousDestination):
		respondError(w, http.StatusBadRequest, err.Error())
	case stderrors.Is(err, errors.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case stderrors.Is(err, errors.ErrProcessingFailure):
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		log.Error("unhandled service error", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a request body into dst with a size cap and strict fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
