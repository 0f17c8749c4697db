package http

import (
	"encoding/json"
	"net/http"
	"time"

	"accountd/internal/dto"
	"accountd/internal/service"
)

type AuthHandler struct {
	Auth        service.AuthService
	OAuth       service.OAuthService
	FrontendURL string
	Environment string
}

func (h *AuthHandler) production() bool { return h.Environment == "production" }

func setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	user, err := h.Auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	res, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	setSessionCookie(w, res.Token, res.ExpiresAt)
	if res.Requires2FA {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "2FA verification required",
			"requires2FA": true,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    res.User,
	})
}

func (h *AuthHandler) verifyLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	s := SessionFromContext(r.Context())
	res, err := h.Auth.VerifyLogin(r.Context(), s, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	setSessionCookie(w, res.Token, res.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    res.User,
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	token, err := h.Auth.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	// Identical acknowledgement whether or not an account matched.
	body := map[string]string{"message": "Password reset email sent successfully"}
	if token != "" && !h.production() {
		body["devToken"] = token
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	if err := h.Auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully"})
}

func (h *AuthHandler) githubRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.OAuth.AuthorizeURL(), http.StatusFound)
}

func (h *AuthHandler) githubCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	user, err := h.OAuth.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.Auth.IssueSession(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	setSessionCookie(w, res.Token, res.ExpiresAt)
	http.Redirect(w, r, h.FrontendURL+"/profile", http.StatusSeeOther)
}
