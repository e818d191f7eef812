package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ParseJWT validates an access token and extracts the caller identity.
// Refresh tokens are rejected here; they are only good for /api/auth/refresh.
func ParseJWT(tokenStr string, secret string) (*AuthContext, error) {
	claims, err := parseClaims(tokenStr, secret)
	if err != nil {
		return nil, err
	}

	if typ, _ := claims["typ"].(string); typ == TokenRefresh {
		return nil, errors.New("refresh token not allowed here")
	}

	return claimsToContext(claims)
}

// ParseRefreshJWT validates a refresh token.
func ParseRefreshJWT(tokenStr string, secret string) (*AuthContext, error) {
	claims, err := parseClaims(tokenStr, secret)
	if err != nil {
		return nil, err
	}

	if typ, _ := claims["typ"].(string); typ != TokenRefresh {
		return nil, errors.New("not a refresh token")
	}

	return claimsToContext(claims)
}

func parseClaims(tokenStr, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func claimsToContext(claims jwt.MapClaims) (*AuthContext, error) {
	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	orgType, _ := claims["orgType"].(string)

	return &AuthContext{
		UserID:   int64(sub),
		Username: username,
		Role:     role,
		OrgType:  orgType,
	}, nil
}
