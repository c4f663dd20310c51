package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/straye-as/fms-api/internal/auth"
	"github.com/straye-as/fms-api/internal/domain"
	"go.uber.org/zap"
)

// UserLookup finds accounts that may receive tokens
type UserLookup interface {
	GetActiveUser(ctx context.Context, username string) (*domain.User, error)
}

// TokenIssuer signs bearer tokens
type TokenIssuer interface {
	Issue(username, name, role string) (string, time.Time, error)
}

type AuthHandler struct {
	users  UserLookup
	tokens TokenIssuer
	logger *zap.Logger
}

func NewAuthHandler(users UserLookup, tokens TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

type meResponse struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
	AuthType string `json:"authType"`
}

// Me gets the authenticated principal
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	respondJSON(w, http.StatusOK, meResponse{Username: p.Username, Name: p.Name, Role: p.Role, AuthType: p.AuthType})
}

type issueTokenRequest struct {
	Username string `json:"username" validate:"required,max=50"`
}

type tokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// IssueToken issues a bearer token for an operator account
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.GetActiveUser(r.Context(), req.Username)
	if err != nil {
		respondError(w, h.logger, err, "Failed to load user")
		return
	}
	token, expires, err := h.tokens.Issue(user.Username, user.Name, user.Role)
	if err != nil {
		respondError(w, h.logger, err, "Failed to issue token")
		return
	}

	h.logger.Info("token issued",
		zap.String("username", user.Username),
		zap.String("role", user.Role),
		zap.String("issued_by", domain.ActorFromContext(r.Context())))
	respondJSON(w, http.StatusCreated, tokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: expires})
}
