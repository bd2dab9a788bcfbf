package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"crumb/globals"
	"crumb/rdx"
	"crumb/tokens"

	"github.com/julienschmidt/httprouter"
)

type Auth struct {
	Secret []byte
	Cache  *rdx.Cache
}

func NewAuth(secret string, cache *rdx.Cache) *Auth {
	return &Auth{Secret: []byte(secret), Cache: cache}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

// Authenticate rejects requests without a valid, unrevoked bearer token
// and stashes the caller's identity in the request context.
func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		raw := bearerToken(r)
		if raw == "" {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}
		claims, err := tokens.Parse(a.Secret, raw)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		if a.Cache != nil && a.Cache.IsTokenRevoked(r.Context(), raw) {
			http.Error(w, "Token revoked", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), globals.UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, globals.UsernameKey, claims.Username)
		next(w, r.WithContext(ctx), ps)
	}
}

// OptionalAuth decorates the context when a valid token is present and
// lets the request through either way.
func (a *Auth) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if raw := bearerToken(r); raw != "" {
			if claims, err := tokens.Parse(a.Secret, raw); err == nil {
				if a.Cache == nil || !a.Cache.IsTokenRevoked(r.Context(), raw) {
					ctx := context.WithValue(r.Context(), globals.UserIDKey, claims.UserID)
					ctx = context.WithValue(ctx, globals.UsernameKey, claims.Username)
					r = r.WithContext(ctx)
				}
			}
		}
		next(w, r, ps)
	}
}

func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("🔥 Panic recovered: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
