// Package httpapi exposes the auth service over REST under /api/auth and,
// when configured, the vault under /api/vault.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/auth"
	"github.com/dmitrijs2005/passvault/internal/server/services"
	"github.com/go-playground/validator/v10"
)

// AuthAPI is the subset of services.AuthService served over HTTP.
type AuthAPI interface {
	Register(ctx context.Context, username, email, password string) (*services.TokenResponse, error)
	Login(ctx context.Context, username, password string) (*services.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenResponse, error)
	Logout(ctx context.Context, userID string) error
	Validate(ctx context.Context, header string) services.ValidationResult
	Principal(header string) (auth.Principal, error)
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Handler struct {
	svc      AuthAPI
	entries  EntriesAPI
	logger   logging.Logger
	validate *validator.Validate
}

type HandlerOption func(*Handler)

// WithEntries mounts the vault endpoints under /api/vault.
func WithEntries(api EntriesAPI) HandlerOption {
	return func(h *Handler) { h.entries = api }
}

func NewHandler(svc AuthAPI, logger logging.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{svc: svc, logger: logger.With("module", "http_api"), validate: validator.New()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout revokes the session of the caller identified by the bearer token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Principal(r.Header.Get(common.AuthorizationHeaderName))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", services.MessageTokenInvalid)
		return
	}
	if err := h.svc.Logout(r.Context(), p.ID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Log out successful"})
}

// Validate always answers 200; the verdict is in the body.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Validate(r.Context(), r.Header.Get(common.AuthorizationHeaderName)))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var refreshErr *services.TokenRefreshError
	switch {
	case errors.As(err, &refreshErr):
		writeError(w, http.StatusForbidden, "token_refresh_error", refreshErr.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "authentication_error", "Invalid username or password")
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min", "max":
		return fe.Field() + " must satisfy " + fe.Tag() + "=" + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
