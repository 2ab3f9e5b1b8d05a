package api

import (
	"net/http"
	"time"

	"github.com/nexfreight/broker/internal/brokererr"
)

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	TOTPCode   string `json:"totp_code"`
}

type loginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Role         Role      `json:"role"`
}

// handleLogin authenticates with email/password and, when the account has
// 2FA enrolled, a TOTP code — issuing a step-up-verified session in that
// case so the caller can immediately invoke critical operations.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := a.users.ByEmail(r.Context(), req.Email)
	if err != nil || !VerifyPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, brokererr.ErrAuthenticationRequired)
		return
	}

	stepUp := true
	if user.TOTPSecret != "" {
		stepUp = verifyTOTP(user.TOTPSecret, req.TOTPCode, time.Now())
		if !stepUp && req.TOTPCode != "" {
			writeError(w, http.StatusUnauthorized, brokererr.ErrAuthenticationRequired)
			return
		}
	}

	access, expiresAt, err := a.sessions.Issue(user, stepUp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	refresh, _, err := a.sessions.IssueRefresh(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt, Role: user.Role})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleRefresh exchanges a valid refresh token for a new access token.
// The refreshed session is never step-up verified: critical operations
// always require a fresh login or explicit step-up challenge.
func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	claims, err := a.sessions.Validate(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, brokererr.ErrAuthenticationRequired)
		return
	}
	user, err := a.users.ByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, brokererr.ErrAuthenticationRequired)
		return
	}
	access, expiresAt, err := a.sessions.Issue(user, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: access, ExpiresAt: expiresAt, Role: user.Role})
}

type meResponse struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, brokererr.ErrAuthenticationRequired)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{UserID: claims.UserID, Role: claims.Role})
}
