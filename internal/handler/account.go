package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"corebank/internal/account"
	"corebank/internal/middleware"
	"corebank/pkg/logger"
	"corebank/pkg/validator"
)

// AccountHandler manages account endpoints.
type AccountHandler struct {
	service   *account.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewAccountHandler(service *account.Service, val *validator.Validator, log logger.Logger) *AccountHandler {
	return &AccountHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

// CreateAccount opens a new account for the authenticated user.
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req account.CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = p.ID

	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	acct, err := h.service.CreateAccount(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, acct)
}

// GetAccount returns one account by id or account number.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	acct, err := h.service.GetAccount(r.Context(), mux.Vars(r)["identifier"], p)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, acct)
}

// ListAccounts lists the authenticated user's accounts.
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accounts, err := h.service.GetUserAccounts(r.Context(), p.ID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// UpdateLimits changes an account's balance or daily debit limits.
func (h *AccountHandler) UpdateLimits(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req account.UpdateLimitsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acct, err := h.service.UpdateLimits(r.Context(), mux.Vars(r)["identifier"], p, &req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, acct)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

// UpdateStatus sets an account's restriction status. Admin only.
func (h *AccountHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	acct, err := h.service.UpdateStatus(r.Context(), mux.Vars(r)["identifier"], p, req.Status, req.Reason)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, acct)
}

// DeleteAccount removes an account once its balance is zero.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.DeleteAccount(r.Context(), mux.Vars(r)["identifier"], p); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
