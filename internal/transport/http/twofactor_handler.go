package http

import (
	"encoding/json"
	"net/http"

	"accountd/internal/domain"
	"accountd/internal/dto"
	"accountd/internal/service"
)

type TwoFactorHandler struct {
	TwoFactor   service.TwoFactorService
	Environment string
}

func (h *TwoFactorHandler) production() bool { return h.Environment == "production" }

func (h *TwoFactorHandler) setup(w http.ResponseWriter, r *http.Request) {
	var req dto.TwoFactorSetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	s := SessionFromContext(r.Context())
	resp, err := h.TwoFactor.Setup(r.Context(), s.UserID, domain.TwoFactorMethod(req.Method), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.production() {
		resp.DevCode = ""
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TwoFactorHandler) confirm(w http.ResponseWriter, r *http.Request) {
	var req dto.TwoFactorConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	s := SessionFromContext(r.Context())
	if err := h.TwoFactor.Confirm(r.Context(), s.UserID, req.Code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "2FA enabled successfully"})
}

func (h *TwoFactorHandler) teardown(w http.ResponseWriter, r *http.Request) {
	var req dto.TwoFactorTeardownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	s := SessionFromContext(r.Context())
	if err := h.TwoFactor.Teardown(r.Context(), s.UserID, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "2FA disabled successfully"})
}
