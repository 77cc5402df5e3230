package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nmscott14/authgate"
	"github.com/nmscott14/authgate/session"
)

type claimsContextKey struct{}

// GuardConfig defines a public type used by authgate APIs.
type GuardConfig struct {
	// PublicPaths are exact-match paths reachable without a session.
	PublicPaths []string

	// SkipPrefixes bypass the guard entirely. API routes belong here and
	// protect themselves with RequireSession.
	SkipPrefixes []string

	// LoginPath receives redirected unauthenticated requests. Defaults to
	// "/login".
	LoginPath string

	// HomePath receives authenticated visitors of public pages. Defaults to
	// "/".
	HomePath string
}

// DefaultGuardConfig mirrors the page surface of a typical host app.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		PublicPaths: []string{
			"/login",
			"/signup",
			"/verify-email",
			"/password-reset",
			"/request-password-reset",
		},
		SkipPrefixes: []string{"/api/", "/static/", "/assets/", "/favicon.ico"},
		LoginPath:    "/login",
		HomePath:     "/",
	}
}

// Guard wraps next with the session state machine. Four outcomes:
//
//   - public path, no session: pass through untouched.
//   - public path, valid session: redirect to the home path with a rotated
//     cookie. An invalid session on a public path passes through.
//   - protected path, no session: redirect to the login path.
//   - protected path, session present: valid rotates the cookie and proceeds
//     with claims in the request context; expired or invalid redirects to
//     the login path. The guard fails closed.
func Guard(engine *authgate.Engine, cfg GuardConfig, next http.Handler) http.Handler {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/"
	}

	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range cfg.SkipPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		_, isPublic := public[r.URL.Path]
		credential := cookieCredential(r, engine.Cookie().Name)

		if credential == "" {
			if isPublic {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, cfg.LoginPath, http.StatusSeeOther)
			return
		}

		claims, err := engine.Validate(r.Context(), credential)
		if err != nil {
			if isPublic {
				next.ServeHTTP(w, r)
				return
			}
			clearSessionCookie(w, engine.Cookie())
			http.Redirect(w, r, cfg.LoginPath, http.StatusSeeOther)
			return
		}

		rotated, err := engine.Rotate(r.Context(), claims)
		if err != nil {
			clearSessionCookie(w, engine.Cookie())
			http.Redirect(w, r, cfg.LoginPath, http.StatusSeeOther)
			return
		}
		WriteSessionCookie(w, engine.Cookie(), rotated)

		if isPublic {
			http.Redirect(w, r, cfg.HomePath, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), rotated.Claims)))
	})
}

// RequireSession protects an API handler: it re-validates the cookie on
// every call and answers 401 JSON instead of redirecting. It does not
// rotate; API traffic rides on the page guard's sliding window.
func RequireSession(engine *authgate.Engine, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := cookieCredential(r, engine.Cookie().Name)
		if credential == "" {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := engine.Validate(r.Context(), credential)
		if err != nil {
			msg := "invalid session"
			if errors.Is(err, authgate.ErrSessionExpired) {
				msg = "session expired"
			}
			writeJSONError(w, http.StatusUnauthorized, msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// RequireRole layers a flat role check over RequireSession. A session whose
// role claim does not match any allowed role gets 403.
func RequireRole(engine *authgate.Engine, next http.Handler, roles ...string) http.Handler {
	return RequireSession(engine, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeJSONError(w, http.StatusForbidden, "insufficient role")
	}))
}

// ClaimsFromContext returns the validated session claims the guard or
// RequireSession attached to the request.
func ClaimsFromContext(ctx context.Context) (*session.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*session.Claims)
	return claims, ok
}

// WriteSessionCookie sets the session cookie from a login or rotation
// result using the engine's configured attributes. HttpOnly is always on.
func WriteSessionCookie(w http.ResponseWriter, cfg authgate.CookieConfig, result *authgate.LoginResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    result.Credential,
		Path:     cfg.Path,
		MaxAge:   int(result.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// ClearSessionCookie expires the session cookie immediately.
func ClearSessionCookie(w http.ResponseWriter, cfg authgate.CookieConfig) {
	clearSessionCookie(w, cfg)
}

func clearSessionCookie(w http.ResponseWriter, cfg authgate.CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

func withClaims(ctx context.Context, claims *session.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

func cookieCredential(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
