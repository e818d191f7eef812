package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func issue(t *testing.T, typ string, exp time.Duration) string {
	t.Helper()
	token, err := GenerateJWT(JWTClaims{
		UserID:    42,
		Username:  "alice",
		Role:      RoleStaff,
		OrgType:   "bank",
		TokenType: typ,
		ExpiresAt: time.Now().Add(exp),
	}, testSecret)
	require.NoError(t, err)
	return token
}

func TestParseJWTRoundTrip(t *testing.T) {
	user, err := ParseJWT(issue(t, TokenAccess, time.Hour), testSecret)
	require.NoError(t, err)

	assert.EqualValues(t, 42, user.UserID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, RoleStaff, user.Role)
	assert.Equal(t, "bank", user.OrgType)
	assert.True(t, user.IsStaff())
}

func TestParseJWTRejections(t *testing.T) {
	_, err := ParseJWT(issue(t, TokenRefresh, time.Hour), testSecret)
	assert.Error(t, err, "refresh token must not pass as access")

	_, err = ParseJWT(issue(t, TokenAccess, -time.Minute), testSecret)
	assert.Error(t, err, "expired token")

	_, err = ParseJWT(issue(t, TokenAccess, time.Hour), "other-secret")
	assert.Error(t, err, "wrong secret")

	_, err = ParseJWT("not-a-token", testSecret)
	assert.Error(t, err)
}

func TestParseRefreshJWT(t *testing.T) {
	user, err := ParseRefreshJWT(issue(t, TokenRefresh, time.Hour), testSecret)
	require.NoError(t, err)
	assert.EqualValues(t, 42, user.UserID)

	_, err = ParseRefreshJWT(issue(t, TokenAccess, time.Hour), testSecret)
	assert.Error(t, err, "access token must not pass as refresh")
}

func TestMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.EqualValues(t, 42, FromContext(r.Context()).UserID)
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Middleware(testSecret)(next)

	t.Run("valid bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+issue(t, TokenAccess, time.Hour))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireStaff(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireStaff(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), AuthContext{UserID: 1, Role: RoleStaff}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), AuthContext{UserID: 2, Role: RoleCustomer}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	token, err := TokenFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	req = httptest.NewRequest(http.MethodGet, "/ws?token=xyz", nil)
	token, err = TokenFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = TokenFromRequest(req)
	assert.Error(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	_, err = TokenFromRequest(req)
	assert.Error(t, err)
}
