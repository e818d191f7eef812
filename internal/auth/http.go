package auth

import (
	"errors"
	"net/http"
	"strings"
)

// TokenFromRequest extracts a bearer token from the Authorization header or,
// for WebSocket clients that cannot set headers, from the "token" query param.
func TokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if !strings.HasPrefix(h, "Bearer ") {
			return "", errors.New("invalid Authorization header")
		}
		return strings.TrimPrefix(h, "Bearer "), nil
	}

	if t := r.URL.Query().Get("token"); t != "" {
		return t, nil
	}

	return "", errors.New("missing token")
}
