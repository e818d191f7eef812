package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

type JWTClaims struct {
	UserID    int64  `json:"sub"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	OrgType   string `json:"orgType"`
	TokenType string `json:"typ"`
	ExpiresAt time.Time
}

func (c JWTClaims) ToMapClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":      c.UserID,
		"username": c.Username,
		"role":     c.Role,
		"orgType":  c.OrgType,
		"typ":      c.TokenType,
		"exp":      c.ExpiresAt.Unix(),
	}
}

func GenerateJWT(c JWTClaims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c.ToMapClaims())
	return token.SignedString([]byte(secret))
}
