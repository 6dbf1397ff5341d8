package api

import (
	"context"
	"fmt"
	"net/http"
)

func (s *CharlaApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, http.StatusInternalServerError, ErrorResponse{Error: "Ocurrió un error en el servidor."})
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *CharlaApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenCookie, err := r.Cookie(tokenCookieKey)
		if err != nil {
			s.writeJson(w, http.StatusUnauthorized, ErrorResponse{Error: "Credenciales inválidas."})
			return
		}

		userId, username, err := s.extractSessionFromToken(tokenCookie.Value)
		if err != nil {
			s.log.Printf("failed to extract session from token: %v", err)
			s.writeJson(w, http.StatusUnauthorized, ErrorResponse{Error: "Credenciales inválidas."})
			return
		}

		ctx := context.WithValue(r.Context(), userIdKey, userId)
		ctx = context.WithValue(ctx, usernameKey, username)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
