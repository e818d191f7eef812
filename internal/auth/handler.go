package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	OrgType  string `json:"organization_type,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	OrgType      string
}

type DB interface {
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
}

// QueueCleanup abandons every non-terminal queue entry a user still holds.
// Implemented by the queue engine; wired in main.
type QueueCleanup interface {
	AbandonAllForUser(ctx context.Context, userID int64) error
}

type Handler struct {
	DB         DB
	Queues     QueueCleanup
	Secret     string
	TTL        time.Duration
	RefreshTTL time.Duration
}

// Register godoc
//
// @Summary      Create account
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        account body RegisterRequest true "New account"
// @Success      201 {object} TokenResponse
// @Failure      400 {string} string "invalid request"
// @Failure      409 {string} string "username taken"
// @Router       /api/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if req.Username == "" || len(req.Password) < 6 {
		http.Error(w, "username and password (min 6 chars) required", http.StatusBadRequest)
		return
	}

	role := req.Role
	if role != RoleStaff {
		role = RoleCustomer
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var email any
	if req.Email != "" {
		email = req.Email
	}

	var u User
	err = h.DB.QueryRow(
		r.Context(),
		`
		INSERT INTO users (username, email, password_hash, role, organization_type)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id, username, role, COALESCE(organization_type, '')
		`,
		req.Username, email, string(hash), role, req.OrgType,
	).Scan(&u.ID, &u.Username, &u.Role, &u.OrgType)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, "username or email already registered", http.StatusConflict)
			return
		}
		logrus.Errorf("register: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.writeTokens(w, u, http.StatusCreated)
}

// Login godoc
//
// @Summary      User login
// @Description  Authenticate user and return access + refresh tokens
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body LoginRequest true "Login credentials"
// @Success      200 {object} TokenResponse
// @Failure      400 {string} string "invalid request"
// @Failure      401 {string} string "invalid username or password"
// @Router       /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	var u User
	err := h.DB.QueryRow(
		r.Context(),
		`
		SELECT
			id,
			username,
			password_hash,
			role,
			COALESCE(organization_type, '')
		FROM users
		WHERE username = $1
		`,
		req.Username,
	).Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Role,
		&u.OrgType,
	)

	if err != nil {
		http.Error(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	h.writeTokens(w, u, http.StatusOK)
}

// Refresh godoc
//
// @Summary      Refresh access token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        token body RefreshRequest true "Refresh token"
// @Success      200 {object} TokenResponse
// @Failure      401 {string} string "invalid token"
// @Router       /api/auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := ParseRefreshJWT(req.Refresh, h.Secret)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	h.writeTokens(w, User{
		ID:       user.UserID,
		Username: user.Username,
		Role:     user.Role,
		OrgType:  user.OrgType,
	}, http.StatusOK)
}

// DeleteUser godoc
//
// @Summary      Delete the calling account
// @Description  Abandons the caller's active queue entries, then removes the account
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Router       /api/auth/delete-user [post]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user := FromContext(r.Context())

	if err := h.Queues.AbandonAllForUser(r.Context(), user.UserID); err != nil {
		logrus.Errorf("delete-user: abandon entries for user %d: %v", user.UserID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Historical (terminal) entries survive with user_id nulled by FK policy.
	if _, err := h.DB.Exec(r.Context(), `DELETE FROM users WHERE id = $1`, user.UserID); err != nil {
		logrus.Errorf("delete-user: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	logrus.Infof("account deleted: %s (id=%d)", user.Username, user.UserID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "account deleted"})
}

func (h *Handler) writeTokens(w http.ResponseWriter, u User, status int) {
	now := time.Now()

	access, err := GenerateJWT(JWTClaims{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		OrgType:   u.OrgType,
		TokenType: TokenAccess,
		ExpiresAt: now.Add(h.TTL),
	}, h.Secret)
	if err != nil {
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	refresh, err := GenerateJWT(JWTClaims{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		OrgType:   u.OrgType,
		TokenType: TokenRefresh,
		ExpiresAt: now.Add(h.RefreshTTL),
	}, h.Secret)
	if err != nil {
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(TokenResponse{Access: access, Refresh: refresh})
}
