package handler

import (
	"net/http"

	"corebank/internal/middleware"
	"corebank/internal/transfer"
	"corebank/pkg/logger"
	"corebank/pkg/validator"
)

// TransferHandler manages fund movement endpoints.
type TransferHandler struct {
	service   *transfer.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewTransferHandler(service *transfer.Service, val *validator.Validator, log logger.Logger) *TransferHandler {
	return &TransferHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

// CreateTransfer executes a transfer between accounts, or out to an external
// destination when destination_details is given instead.
func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req transfer.TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tx, err := h.service.Transfer(r.Context(), &req, p)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, tx)
}
