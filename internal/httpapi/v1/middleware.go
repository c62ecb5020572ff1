package v1

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/auth"
	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/session"
)

// requestLogger logs basic request info at INFO and server errors at ERROR.
func requestLogger(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			reqID := chimw.GetReqID(r.Context())

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			l.Log(r.Context(), level, "request complete",
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
			)
		})
	}
}

// recoverer logs panics as ERROR and returns 500.
func recoverer(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					reqID := chimw.GetReqID(r.Context())
					l.Error("panic", "req_id", reqID, "err", rec, "stack", string(debug.Stack()))
					writeErr(w, http.StatusInternalServerError, "internal error", "internal")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate resolves the caller once per request, refreshes the user row
// from the identity and attaches a session to the context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identify(r)
		if err != nil {
			writeErr(w, http.StatusUnauthorized, err.Error(), "unauthenticated")
			return
		}
		u := ledger.User{ID: id.UserID, Email: id.Email, FirstName: id.FirstName, LastName: id.LastName}
		if s.verifier == nil {
			// header identities carry no profile; keep whatever is stored
			if existing, err := s.users.GetUser(r.Context(), id.UserID); err == nil {
				u = existing
			}
		}
		if _, err := s.users.UpsertUser(r.Context(), u); err != nil {
			s.writeDomainErr(w, r, err)
			return
		}
		sess := session.New(id, s.members)
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

func (s *Server) identify(r *http.Request) (session.Identity, error) {
	if s.verifier != nil {
		tok, err := auth.BearerToken(r)
		if err != nil {
			return session.Identity{}, err
		}
		return s.verifier.Verify(tok)
	}
	raw := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if raw == "" {
		return session.Identity{}, errs.ErrUnauthenticated
	}
	userID, err := uuid.Parse(raw)
	if err != nil || userID == uuid.Nil {
		return session.Identity{}, errs.ErrUnauthenticated
	}
	return session.Identity{UserID: userID}, nil
}

// sessionFrom returns the request session. authenticate guarantees one exists on /v1 routes.
func sessionFrom(r *http.Request) *session.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}
