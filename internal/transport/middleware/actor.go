package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/guardline/payroll-engine/internal"
)

type actorClaims struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	jwt.RegisteredClaims
}

// Actor extracts the acting staff member from the identity token the console
// attaches to each request and threads it through context. This is identity
// only: who to record on approved_by/filed_by fields. Authorization lives in
// the console, not here.
func Actor(secret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				writeActorError(w, "missing identity token")
				return
			}

			claims := &actorClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				logger.Warn("invalid identity token", "error", err, "path", r.URL.Path)
				writeActorError(w, "invalid identity token")
				return
			}

			actor := internal.Actor{
				ID:         claims.Subject,
				Name:       claims.Name,
				Department: claims.Department,
			}
			next.ServeHTTP(w, r.WithContext(internal.ContextWithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}
	return authHeader[7:]
}

func writeActorError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
