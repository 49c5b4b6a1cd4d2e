// Package httphandler is the HTTP driving adapter: a small REST facade over
// the postcard services. Account credentials arrive per request via HTTP
// basic auth and are exchanged for a cached bearer token internally.
package httphandler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tbuchmann/postcarder/internal/application"
	"github.com/tbuchmann/postcarder/internal/domain/model"
	"github.com/tbuchmann/postcarder/internal/domain/port/driven"
)

// Handler serves the REST API.
type Handler struct {
	tokens *application.TokenService
	sender *application.SendService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(tokens *application.TokenService, sender *application.SendService, logger *slog.Logger) *Handler {
	return &Handler{
		tokens: tokens,
		sender: sender,
		logger: logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/token", h.GetToken)
	mux.HandleFunc("GET /api/v1/quota", h.GetQuota)
	mux.HandleFunc("GET /api/v1/user", h.GetUser)
	mux.HandleFunc("GET /api/v1/saldo", h.GetSaldo)
	mux.HandleFunc("POST /api/v1/send-card", h.SendCard)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response. No credentials required.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetToken logs in (or reuses a cached token) and returns the bearer token
// metadata. The access token itself is included: this service is meant to
// run on localhost as a personal automation endpoint.
func (h *Handler) GetToken(w http.ResponseWriter, r *http.Request) {
	username, password, ok := credentials(w, r)
	if !ok {
		return
	}

	tok, err := h.tokens.Token(r.Context(), username, password)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTokenResponse(tok))
}

// GetQuota returns the account's free-postcard allowance.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	username, password, ok := credentials(w, r)
	if !ok {
		return
	}

	quota, err := h.sender.Quota(r.Context(), username, password)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quota)
}

// GetUser returns the raw user record of the account.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	username, password, ok := credentials(w, r)
	if !ok {
		return
	}

	info, err := h.sender.UserInfo(r.Context(), username, password)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// GetSaldo returns the raw online-billing account balance.
func (h *Handler) GetSaldo(w http.ResponseWriter, r *http.Request) {
	username, password, ok := credentials(w, r)
	if !ok {
		return
	}

	saldo, err := h.sender.BillingSaldo(r.Context(), username, password)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, saldo)
}

// SendCard validates, renders, and submits one postcard.
func (h *Handler) SendCard(w http.ResponseWriter, r *http.Request) {
	username, password, ok := credentials(w, r)
	if !ok {
		return
	}

	var req SendCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var picture []byte
	if req.Picture != "" {
		data, err := base64.StdEncoding.DecodeString(req.Picture)
		if err != nil {
			writeError(w, http.StatusBadRequest, "picture is not valid base64")
			return
		}
		picture = data
	}
	if picture == nil && req.PictureURL == "" {
		writeError(w, http.StatusBadRequest, "either picture or picture_url is required")
		return
	}

	card := model.Postcard{
		Sender:    req.Sender.toAddress(),
		Recipient: req.Recipient.toAddress(),
		Picture:   picture,
		Message:   req.Message,
	}
	opts := application.SendOptions{
		MockSend:   req.MockSend,
		Paid:       req.Paid,
		PictureURL: req.PictureURL,
	}

	confirmation, err := h.sender.SendCard(r.Context(), username, password, card, opts)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if confirmation == nil {
		writeJSON(w, http.StatusOK, SendCardResponse{Sent: false})
		return
	}
	writeJSON(w, http.StatusCreated, SendCardResponse{Sent: true, OrderID: confirmation.OrderID})
}

// credentials extracts the account username/password from basic auth,
// answering 401 itself when they are absent.
func credentials(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	username, password, ok := r.BasicAuth()
	if !ok || username == "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="postcarder"`)
		writeError(w, http.StatusUnauthorized, "basic auth credentials required")
		return "", "", false
	}
	return username, password, true
}

// writeDomainError maps domain sentinels onto HTTP statuses. Anything
// unmapped is an internal error and gets logged with full detail.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, driven.ErrAuthenticationFailed):
		writeError(w, http.StatusUnauthorized, "backend rejected the credentials")
	case errors.Is(err, driven.ErrInvalidPostcard):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, driven.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
