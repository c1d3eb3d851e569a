package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"blog/internal/auth"
	"blog/internal/models"
)

const bearerPrefix = "Bearer "

// requireAuth verifies the bearer token and resolves its subject to a user
// before calling next.
func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, *models.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			s.unauthorized(w, "Not authenticated")
			return
		}
		subject, err := s.Tokens.Verify(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				s.unauthorized(w, "Token has expired")
				return
			}
			s.unauthorized(w, "Could not validate credentials")
			return
		}
		user, err := models.GetUserByUsername(s.DB, subject)
		if err != nil {
			s.unauthorized(w, "Could not validate credentials")
			return
		}
		next(w, r, user)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging records every request with method, path, status and latency.
// Client errors log at warn, server errors at error.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		switch {
		case rec.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case rec.status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		s.Log.LogAttrs(r.Context(), level, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("latency", time.Since(start)),
			slog.String("remote", r.RemoteAddr),
		)
	})
}

// withRecover turns a handler panic into a 500 instead of killing the server.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.Log.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
