package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nmscott14/authgate"
	"github.com/nmscott14/authgate/provider/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestEngine(t *testing.T) (*authgate.Engine, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	cfg := authgate.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Login.RequireVerified = false

	engine, err := authgate.New().
		WithConfig(cfg).
		WithSessionSecret(testSecret).
		WithUserProvider(store).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, store
}

func loginCredential(t *testing.T, engine *authgate.Engine, store *memory.Store) *authgate.LoginResult {
	t.Helper()

	created, err := engine.Signup(context.Background(), authgate.SignupInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if _, err := store.GetUserByID(context.Background(), created.UserID); err != nil {
		t.Fatalf("seeded user missing: %v", err)
	}

	result, err := engine.Login(context.Background(), "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return result
}

func okHandler() (http.Handler, *bool) {
	var called bool
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func sessionCookie(t *testing.T, res *http.Response, name string) *http.Cookie {
	t.Helper()

	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGuardPublicPathWithoutSessionPassesThrough(t *testing.T) {
	engine, _ := newTestEngine(t)
	next, called := okHandler()
	guard := Guard(engine, DefaultGuardConfig(), next)

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	if !*called {
		t.Fatal("public path must pass through")
	}
	if c := sessionCookie(t, rec.Result(), "session"); c != nil {
		t.Fatal("no cookie may be written")
	}
}

func TestGuardPublicPathWithValidSessionRedirectsHome(t *testing.T) {
	engine, store := newTestEngine(t)
	result := loginCredential(t, engine, store)
	next, called := okHandler()
	guard := Guard(engine, DefaultGuardConfig(), next)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: result.Credential})
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	if *called {
		t.Fatal("handler must not run")
	}
	res := rec.Result()
	if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/" {
		t.Fatalf("expected redirect home, got %d %q", res.StatusCode, res.Header.Get("Location"))
	}

	cookie := sessionCookie(t, res, "session")
	if cookie == nil || cookie.Value == result.Credential {
		t.Fatal("expected a rotated cookie")
	}
}

func TestGuardProtectedPathWithoutSessionRedirectsLogin(t *testing.T) {
	engine, _ := newTestEngine(t)
	next, called := okHandler()
	guard := Guard(engine, DefaultGuardConfig(), next)

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if *called {
		t.Fatal("handler must not run")
	}
	res := rec.Result()
	if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", res.StatusCode, res.Header.Get("Location"))
	}
	if c := sessionCookie(t, res, "session"); c != nil && c.MaxAge >= 0 {
		t.Fatal("no live cookie may be written")
	}
}

func TestGuardProtectedPathWithValidSessionRotatesAndProceeds(t *testing.T) {
	engine, store := newTestEngine(t)
	result := loginCredential(t, engine, store)

	var gotClaims bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		gotClaims = ok && claims.Subject == result.Claims.Subject
		w.WriteHeader(http.StatusOK)
	})
	guard := Guard(engine, DefaultGuardConfig(), next)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: result.Credential})
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !gotClaims {
		t.Fatalf("expected handler with claims, got %d (claims %v)", rec.Code, gotClaims)
	}

	cookie := sessionCookie(t, rec.Result(), "session")
	if cookie == nil {
		t.Fatal("expected refreshed cookie")
	}
	if cookie.Value == result.Credential {
		t.Fatal("cookie must carry a rotated credential")
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("cookie attributes: %+v", cookie)
	}
	if cookie.MaxAge != int(time.Hour.Seconds()) {
		t.Fatalf("expected Max-Age 3600, got %d", cookie.MaxAge)
	}
}

func TestGuardProtectedPathWithBadSessionFailsClosed(t *testing.T) {
	engine, _ := newTestEngine(t)
	next, called := okHandler()
	guard := Guard(engine, DefaultGuardConfig(), next)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "garbage"})
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	if *called {
		t.Fatal("handler must not run")
	}
	res := rec.Result()
	if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d", res.StatusCode)
	}
	cookie := sessionCookie(t, res, "session")
	if cookie == nil || cookie.MaxAge != -1 {
		t.Fatal("bad session cookie must be cleared")
	}
}

func TestGuardSkipPrefixBypasses(t *testing.T) {
	engine, _ := newTestEngine(t)
	next, called := okHandler()
	guard := Guard(engine, DefaultGuardConfig(), next)

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/login", nil))

	if !*called {
		t.Fatal("skip prefix must bypass the guard")
	}
}

func TestRequireSessionAnswers401JSON(t *testing.T) {
	engine, _ := newTestEngine(t)
	next, called := okHandler()
	handler := RequireSession(engine, next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))

	if *called {
		t.Fatal("handler must not run")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON error body, got %q", ct)
	}
}

func TestRequireSessionAcceptsValidCredential(t *testing.T) {
	engine, store := newTestEngine(t)
	result := loginCredential(t, engine, store)
	next, called := okHandler()
	handler := RequireSession(engine, next)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: result.Credential})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !*called || rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	engine, store := newTestEngine(t)
	result := loginCredential(t, engine, store)

	next, called := okHandler()
	admin := RequireRole(engine, next, "admin")

	req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: result.Credential})
	rec := httptest.NewRecorder()
	admin.ServeHTTP(rec, req)

	if *called || rec.Code != http.StatusForbidden {
		t.Fatalf("user role must be denied, got %d", rec.Code)
	}

	userOnly := RequireRole(engine, next, "user", "admin")
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: result.Credential})
	userOnly.ServeHTTP(rec, req)
	if !*called || rec.Code != http.StatusOK {
		t.Fatalf("matching role must pass, got %d", rec.Code)
	}
}
