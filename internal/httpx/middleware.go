package httpx

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/session"
	"github.com/ariefcatur/go-storefront/internal/storage"
)

const (
	visitorCookie = "sf_vid" // persistent; scopes durable storage
	sessionCookie = "sf_sid" // browser session; scopes ephemeral storage

	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

// Visit is everything one request knows about its visitor.
type Visit struct {
	VisitorID string
	SessionID string
	Auth      *session.Auth
	Cache     *session.Cache
	Log       *logrus.Entry
}

// API is the gateway client authenticated as this visitor.
func (v *Visit) API() *api.Client { return v.Auth.API() }

func (v *Visit) userID() string {
	if u := v.Auth.User(); u != nil {
		return u.ID
	}
	return ""
}

type ctxKey int

const visitKey ctxKey = iota

func visitFrom(r *http.Request) *Visit {
	v, _ := r.Context().Value(visitKey).(*Visit)
	return v
}

// visit identifies the browser by its cookies, minting ids on first contact,
// and hydrates the auth store and caches for this request.
func (s *Server) visit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vid := s.ensureCookie(w, r, visitorCookie, visitorCookieMaxAge)
		sid := s.ensureCookie(w, r, sessionCookie, 0)

		log := s.Log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"visitor":    vid,
		})
		v := &Visit{
			VisitorID: vid,
			SessionID: sid,
			Auth:      session.NewAuth(r.Context(), s.API, storage.NewBucket(s.Durable, vid), log),
			Cache:     session.NewCache(storage.NewBucket(s.Ephemeral, sid), log),
			Log:       log,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), visitKey, v)))
	})
}

func (s *Server) ensureCookie(w http.ResponseWriter, r *http.Request, name string, maxAge int) string {
	if c, err := r.Cookie(name); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v := visitFrom(r); v == nil || !v.Auth.IsAuthenticated() {
			redirectToLogin(w, r, r.URL.RequestURI())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// redirectToLogin sends the visitor to the login screen, remembering from.
func redirectToLogin(w http.ResponseWriter, r *http.Request, from string) {
	code := http.StatusFound
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		code = http.StatusSeeOther
	}
	http.Redirect(w, r, "/login?from="+url.QueryEscape(from), code)
}

// safeFrom keeps post-login redirects on this site.
func safeFrom(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") ||
		strings.HasPrefix(from, "//") || strings.HasPrefix(from, `/\`) {
		return "/"
	}
	return from
}

func requestLogger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				log.WithFields(logrus.Fields{
					"request_id":  middleware.GetReqID(r.Context()),
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      status,
					"bytes":       ww.BytesWritten(),
					"duration_ms": time.Since(start).Milliseconds(),
				}).Info("http request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
