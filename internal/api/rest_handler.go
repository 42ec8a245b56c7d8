package api

import (
	"account_onboarding/internal/domain"
	"account_onboarding/internal/repository"
	"account_onboarding/internal/service"
	"account_onboarding/pkg/validator"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

type APIHandler struct {
	service        *service.AccountService
	validator      *validator.RequestValidator
	logger         *slog.Logger
	requestTimeout time.Duration
}

func NewAPIHandler(
	accountService *service.AccountService,
	requestValidator *validator.RequestValidator,
	logger *slog.Logger,
) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if requestValidator == nil {
		requestValidator = validator.NewRequestValidator()
	}

	return &APIHandler{
		service:        accountService,
		validator:      requestValidator,
		logger:         logger,
		requestTimeout: 30 * time.Second,
	}
}

type CreateAccountRequestBody struct {
	Name        string `json:"name" validate:"required,notblank,max=255"`
	ZipCode     string `json:"zipCode" validate:"required,zipcode"`
	Age         *int   `json:"age" validate:"required,gte=18"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details []validator.FieldError `json:"details,omitempty"`
}

func (h *APIHandler) CreateAccountRequestHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var body CreateAccountRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	if fieldErrors := h.validator.Validate(body); len(fieldErrors) > 0 {
		h.sendValidationError(w, fieldErrors)
		return
	}

	created, err := h.service.CreateAccountRequest(ctx, service.CreateAccountInput{
		Name:        body.Name,
		ZipCode:     body.ZipCode,
		Age:         *body.Age,
		PhoneNumber: body.PhoneNumber,
	})
	if err != nil {
		h.logger.Error("Account request creation failed", slog.String("error", err.Error()))
		h.sendError(w, "Failed to create account request", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	h.sendJSON(w, created, http.StatusCreated)
}

func (h *APIHandler) GetAccountRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.sendError(w, "Account request ID must be a positive integer", http.StatusBadRequest, "INVALID_ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	request, err := h.service.GetAccountRequest(ctx, id)
	if err != nil {
		h.sendLookupError(w, err)
		return
	}

	h.sendJSON(w, request, http.StatusOK)
}

func (h *APIHandler) ListAccountRequestsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	requests, err := h.service.ListAccountRequests(ctx)
	h.sendList(w, requests, err)
}

func (h *APIHandler) ListByStatusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseAccountStatus(chi.URLParam(r, "status"))
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest, "INVALID_STATUS")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	requests, err := h.service.ListByStatus(ctx, status)
	h.sendList(w, requests, err)
}

func (h *APIHandler) PendingReviewsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	requests, err := h.service.ListPendingManualReviews(ctx)
	h.sendList(w, requests, err)
}

func (h *APIHandler) GetByProcessInstanceHandler(w http.ResponseWriter, r *http.Request) {
	processInstanceID := chi.URLParam(r, "processInstanceId")

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	request, err := h.service.GetByProcessInstance(ctx, processInstanceID)
	if err != nil {
		h.sendLookupError(w, err)
		return
	}

	h.sendJSON(w, request, http.StatusOK)
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	}
	h.sendJSON(w, response, http.StatusOK)
}

func (h *APIHandler) sendList(w http.ResponseWriter, requests []*domain.AccountRequest, err error) {
	if err != nil {
		h.logger.Error("Failed to list account requests", slog.String("error", err.Error()))
		h.sendError(w, "Failed to list account requests", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	if requests == nil {
		requests = []*domain.AccountRequest{}
	}
	h.sendJSON(w, requests, http.StatusOK)
}

func (h *APIHandler) sendLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		h.sendError(w, "Account request not found", http.StatusNotFound, "NOT_FOUND")
		return
	}
	h.logger.Error("Failed to get account request", slog.String("error", err.Error()))
	h.sendError(w, "Failed to get account request", http.StatusInternalServerError, "SERVER_ERROR")
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code string) {
	h.sendJSON(w, ErrorResponse{Error: message, Code: code}, statusCode)

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}

func (h *APIHandler) sendValidationError(w http.ResponseWriter, fieldErrors []validator.FieldError) {
	h.sendJSON(w, ErrorResponse{
		Error:   "Invalid request data",
		Code:    "VALIDATION_ERROR",
		Details: fieldErrors,
	}, http.StatusBadRequest)

	h.logger.Warn("API validation failed", slog.Int("fields", len(fieldErrors)))
}
