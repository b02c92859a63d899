package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tmkoushik/cfgvault-backend/internal/models"
	"github.com/tmkoushik/cfgvault-backend/internal/services"
	"github.com/tmkoushik/cfgvault-backend/pkg/utils"
)

// AuthHandler serves the identity endpoints backed by the gateway.
type AuthHandler struct {
	gateway *services.IdentityGateway
	users   *services.UserService
}

func NewAuthHandler(gateway *services.IdentityGateway, users *services.UserService) *AuthHandler {
	return &AuthHandler{gateway: gateway, users: users}
}

type signupRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Password    string `json:"password"`
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	Cancelled bool             `json:"cancelled,omitempty"`
	Token     string           `json:"token,omitempty"`
	User      *models.Identity `json:"user,omitempty"`
}

// Signup registers a new account and opens a session for it.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err := h.users.Create(r.Context(), req.Username, req.Email, req.DisplayName, req.Password)
	if err != nil {
		var vErr *utils.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeError(w, http.StatusBadRequest, vErr.Message)
		case errors.Is(err, services.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "Username is already taken")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to create account")
		}
		return
	}

	ident, token, err := h.gateway.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Account created but sign-in failed")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Message: "Account created successfully",
		Token:   token,
		User:    ident,
	})
}

// Signin authenticates and opens a session. A cancelled flow is acknowledged
// without a user-visible error.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ident, token, err := h.gateway.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrSignInCancelled) {
			// User abandoned the flow; no alert.
			writeJSON(w, http.StatusOK, authResponse{Success: false, Cancelled: true})
			return
		}
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to sign in: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, Token: token, User: ident})
}

// Signout closes the session; the identity is cleared only on confirmed success.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.gateway.SignOut(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sign out: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "Signed out"})
}

// Me returns the identity bound to the bearer session token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	ident, ok, err := h.gateway.Resolve(r.Context(), token)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, User: ident})
}
