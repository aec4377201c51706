package handlers

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"time"

	"babylog/internal/models"
	"babylog/internal/security"
	"babylog/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey    ContextKey = "user"
	SessionContextKey ContextKey = "session"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	csrf        *security.CSRFGenerator
	remember    *security.RememberTokenIssuer
	limiter     *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, csrf *security.CSRFGenerator, remember *security.RememberTokenIssuer, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		authService: authService,
		csrf:        csrf,
		remember:    remember,
		limiter:     limiter,
	}
}

// RequireAuth is middleware that requires a valid session. When the session
// cookie is missing or stale a valid remember-me cookie starts a new session.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			user, err := m.authService.ValidateSession(cookie.Value)
			if err == nil {
				next(w, r.WithContext(withUser(r.Context(), user, cookie.Value)))
				return
			}
			http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
		}

		if user, sessionID, ok := m.restoreFromRememberCookie(w, r); ok {
			next(w, r.WithContext(withUser(r.Context(), user, sessionID)))
			return
		}

		http.Redirect(w, r, loginURL(r), http.StatusSeeOther)
	}
}

func (m *Middleware) restoreFromRememberCookie(w http.ResponseWriter, r *http.Request) (*models.User, string, bool) {
	if m.remember == nil {
		return nil, "", false
	}
	cookie, err := r.Cookie(RememberCookieName)
	if err != nil {
		return nil, "", false
	}

	userID, err := m.remember.Verify(cookie.Value)
	if err != nil {
		http.SetCookie(w, security.CreateDeleteCookie(r, RememberCookieName))
		return nil, "", false
	}

	session, user, err := m.authService.RestoreSession(userID)
	if err != nil {
		log.Printf("Warning: failed to restore session for user %d: %v", userID, err)
		http.SetCookie(w, security.CreateDeleteCookie(r, RememberCookieName))
		return nil, "", false
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	return user, session.ID, true
}

// RequireAdmin is middleware that requires an authenticated administrator
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
			return
		}
		next(w, r)
	})
}

// CSRFProtect rejects state-changing requests without the token bound to
// the current session. It must run inside RequireAuth.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next(w, r)
			return
		}

		token := r.Header.Get("X-CSRF-Token")
		if token == "" {
			token = r.FormValue("csrf_token")
		}
		if !m.csrf.ValidateToken(getSessionID(r.Context()), token) {
			respondWithError(w, http.StatusForbidden, "Invalid CSRF token", "", nil)
			return
		}
		next(w, r)
	}
}

// GetCSRFToken returns the CSRF token for the session of the request
func (m *Middleware) GetCSRFToken(r *http.Request) string {
	token, err := m.csrf.GenerateToken(getSessionID(r.Context()))
	if err != nil {
		return ""
	}
	return token
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Call next handler
		next.ServeHTTP(w, r)

		// Log request
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withUser(ctx context.Context, user *models.User, sessionID string) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, user)
	return context.WithValue(ctx, SessionContextKey, sessionID)
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

func getSessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionContextKey).(string)
	return id
}

// loginURL sends the user back to the requested page after logging in
func loginURL(r *http.Request) string {
	if r.Method != http.MethodGet || r.URL.Path == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(r.URL.RequestURI())
}

// safeNext only accepts local absolute paths as redirect targets
func safeNext(next string) string {
	if next == "" || next[0] != '/' || len(next) > 1 && (next[1] == '/' || next[1] == '\\') {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
