package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedAdminToken(t *testing.T, secret string, clinics ...int64) string {
	t.Helper()
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "clinic-admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
		ClinicIDs: clinics,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func runAdminJWT(secret, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	AdminJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec
}

func TestAdminJWTRejectsWhenDisabled(t *testing.T) {
	rec := runAdminJWT("", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWTRejectsMissingHeader(t *testing.T) {
	rec := runAdminJWT("secret", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWTRejectsWrongSecret(t *testing.T) {
	rec := runAdminJWT("secret", "Bearer "+signedAdminToken(t, "other"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWTAcceptsValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signedAdminToken(t, "secret", 1, 4))
	rec := httptest.NewRecorder()

	AdminJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := AdminClaimsFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "clinic-admin", claims.Subject)
		assert.Equal(t, []int64{1, 4}, claims.ClinicIDs)
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminClaimsAllowsClinic(t *testing.T) {
	unscoped := AdminClaims{}
	assert.True(t, unscoped.AllowsClinic(1))
	assert.True(t, unscoped.AllowsClinic(99))

	scoped := AdminClaims{ClinicIDs: []int64{2, 5}}
	assert.True(t, scoped.AllowsClinic(2))
	assert.True(t, scoped.AllowsClinic(5))
	assert.False(t, scoped.AllowsClinic(1))
}
