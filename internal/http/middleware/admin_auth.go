package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// AdminClaims scope an admin token to particular clinics. An empty ClinicIDs
// list grants access to every clinic (platform operator tokens).
type AdminClaims struct {
	jwt.RegisteredClaims
	ClinicIDs []int64 `json:"clinics,omitempty"`
}

// AllowsClinic reports whether the token may administer the given clinic.
func (c AdminClaims) AllowsClinic(doctorID int64) bool {
	if len(c.ClinicIDs) == 0 {
		return true
	}
	for _, id := range c.ClinicIDs {
		if id == doctorID {
			return true
		}
	}
	return false
}

// AdminJWT enforces an HMAC-signed JWT on admin endpoints and stashes the
// clinic-scope claims for route handlers to check.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "admin auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := AdminClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAdminClaims(r.Context(), claims)))
		})
	}
}

// ContextWithAdminClaims returns a context carrying admin JWT claims.
func ContextWithAdminClaims(ctx context.Context, claims AdminClaims) context.Context {
	return context.WithValue(ctx, adminClaimsKey, claims)
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(AdminClaims)
	return claims, ok
}
