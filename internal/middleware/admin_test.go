package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminTestSecret = "test-secret"

func signAdminToken(t *testing.T, secret, role string, expiresIn time.Duration) string {
	t.Helper()
	claims := AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func runAdmin(t *testing.T, authorization string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req, err := http.NewRequest(http.MethodGet, "/registrations", nil)
	require.NoError(t, err)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	c.Request = req

	passed := false
	Admin(adminTestSecret)(c)
	if !c.IsAborted() {
		passed = true
	}
	return w, passed
}

func TestAdminAcceptsValidToken(t *testing.T) {
	token := signAdminToken(t, adminTestSecret, "admin", time.Hour)
	w, passed := runAdmin(t, "Bearer "+token)
	assert.True(t, passed)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRejectsMissingHeader(t *testing.T) {
	w, passed := runAdmin(t, "")
	assert.False(t, passed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRejectsWrongSecret(t *testing.T) {
	token := signAdminToken(t, "other-secret", "admin", time.Hour)
	w, passed := runAdmin(t, "Bearer "+token)
	assert.False(t, passed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRejectsExpiredToken(t *testing.T) {
	token := signAdminToken(t, adminTestSecret, "admin", -time.Minute)
	w, passed := runAdmin(t, "Bearer "+token)
	assert.False(t, passed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRejectsNonAdminRole(t *testing.T) {
	token := signAdminToken(t, adminTestSecret, "viewer", time.Hour)
	w, passed := runAdmin(t, "Bearer "+token)
	assert.False(t, passed)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
