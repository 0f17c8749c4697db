package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"accountd/internal/domain"
	"accountd/internal/dto"
	"accountd/internal/service"
	"accountd/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type UserHandler struct {
	Users     *store.Store
	Passwords service.PasswordService
}

// storeErr lifts store sentinels into the domain taxonomy before they hit the
// response writer.
func storeErr(err error) error {
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return domain.ErrUserNotFound
	case errors.Is(err, store.ErrDuplicateKey):
		return domain.ErrConflict
	default:
		return err
	}
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	s := SessionFromContext(r.Context())
	user, err := h.Users.Users().GetByID(r.Context(), s.UserID)
	if err != nil {
		writeError(w, storeErr(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserInfo(user))
}

func (h *UserHandler) updateMe(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	// Self-service updates cover the email only; password changes go through
	// the reset flow and roles are admin territory.
	if req.Email == nil || *req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Provide email to update"})
		return
	}
	s := SessionFromContext(r.Context())
	user, err := h.Users.Users().Update(r.Context(), s.UserID, req.Email, nil)
	if err != nil {
		writeError(w, storeErr(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserInfo(user))
}

func (h *UserHandler) deleteMe(w http.ResponseWriter, r *http.Request) {
	s := SessionFromContext(r.Context())
	deleted, err := h.Users.DeleteUserData(r.Context(), s.UserID)
	if err != nil {
		writeError(w, storeErr(err))
		return
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Account deleted successfully",
		"deleted": deleted,
	})
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.Users().List(r.Context())
	if err != nil {
		writeError(w, storeErr(err))
		return
	}
	out := make([]*dto.UserInfo, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserInfo(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *UserHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	user, err := h.Users.Users().GetByID(r.Context(), id)
	if err != nil {
		writeError(w, storeErr(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserInfo(user))
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	if req.Email == nil && req.Role == nil && req.Password == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Nothing to update"})
		return
	}
	if req.Role != nil && *req.Role != domain.RoleUser && *req.Role != domain.RoleAdmin {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Unknown role"})
		return
	}

	if req.Password != nil {
		cred, err := h.Passwords.Hash(*req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		cred.UserID = id
		if err := h.Users.Credentials().UpsertPassword(r.Context(), cred); err != nil {
			writeError(w, storeErr(err))
			return
		}
	}

	user, err := h.Users.Users().Update(r.Context(), id, req.Email, req.Role)
	if err != nil {
		writeError(w, storeErr(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserInfo(user))
}

func (h *UserHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	deleted, err := h.Users.DeleteUserData(r.Context(), id)
	if err != nil {
		writeError(w, storeErr(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User deleted successfully",
		"deleted": deleted,
	})
}

func pathUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}
