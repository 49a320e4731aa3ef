package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"planboard/config"
	"planboard/middleware"
	"planboard/store"
)

type AuthHandler struct {
	config *config.Config
	store  store.Store
	logger *zap.SugaredLogger
}

func NewAuthHandler(cfg *config.Config, st store.Store, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{config: cfg, store: st, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	member, err := h.store.Members().GetByEmail(r.Context(), req.Email)
	if err != nil || !member.Active {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := middleware.GenerateToken(member, h.config.JWTExpiration)
	if err != nil {
		h.logger.Errorw("failed to sign token", "memberID", member.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":  token,
		"member": member,
	})
}
