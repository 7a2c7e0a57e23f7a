package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"gemini-replica/internal/logic"
	"gemini-replica/internal/store"
)

// SessionHandler handles theme and authentication requests
type SessionHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(st *store.Store, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		store:  st,
		logger: logger.Named("http"),
	}
}

// RequestOTPRequest is the phone sign-in form
type RequestOTPRequest struct {
	CountryCode string `json:"countryCode"`
	PhoneNumber string `json:"phoneNumber"`
}

// RequestOTPResponse confirms the simulated send
type RequestOTPResponse struct {
	Message string `json:"message"`
	Phone   string `json:"phone"`
}

// VerifyOTPRequest is the one-time password form
type VerifyOTPRequest struct {
	OTP string `json:"otp"`
}

// ThemeResponse reports the theme after a toggle
type ThemeResponse struct {
	Theme string `json:"theme"`
}

// Get handles GET /api/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.State())
}

// ToggleTheme handles POST /api/session/theme
func (h *SessionHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme := h.store.ToggleTheme()
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: string(theme)})
}

// RequestOTP handles POST /api/auth/otp. No message is sent; the demo
// password is always 123456.
func (h *SessionHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req RequestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Request OTP failed: invalid request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := logic.ValidatePhone(req.CountryCode, req.PhoneNumber); err != nil {
		writeValidationError(w, err)
		return
	}

	phone := req.CountryCode + req.PhoneNumber
	h.logger.Info("Simulated OTP sent", zap.String("country_code", req.CountryCode))
	writeJSON(w, http.StatusAccepted, RequestOTPResponse{
		Message: `An OTP was "sent" to ` + phone,
		Phone:   phone,
	})
}

// VerifyOTP handles POST /api/auth/verify
func (h *SessionHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := logic.VerifyOTP(req.OTP); err != nil {
		h.logger.Info("OTP rejected", zap.Error(err))
		writeValidationError(w, err)
		return
	}

	h.store.Login()
	writeJSON(w, http.StatusOK, h.store.State())
}

// Logout handles POST /api/auth/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.store.Logout()
	w.WriteHeader(http.StatusNoContent)
}
