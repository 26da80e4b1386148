package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "stream-secret"

func signToken(t *testing.T, key string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func TestVerify(t *testing.T) {
	assert.NoError(t, Verify(secret, signToken(t, secret)))
	assert.ErrorIs(t, Verify(secret, signToken(t, "wrong")), ErrInvalidToken)
	assert.ErrorIs(t, Verify(secret, "not-a-token"), ErrInvalidToken)
}

func TestVerify_ExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	assert.ErrorIs(t, Verify(secret, s), ErrInvalidToken)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_EmptySecretDisablesCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	Middleware("", okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/realtime/sse", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_RejectsMissingAndInvalid(t *testing.T) {
	h := Middleware(secret, okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/realtime/sse", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/realtime/sse", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "wrong"))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_AcceptsHeaderAndQueryParam(t *testing.T) {
	h := Middleware(secret, okHandler())
	token := signToken(t, secret)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/realtime/ws", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// EventSource cannot set headers; the query param works too.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/realtime/sse?access_token="+token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
