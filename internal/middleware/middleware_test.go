package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/faria/mony-api/internal/middleware"
	"github.com/faria/mony-api/internal/utils"
)

// mockFinder implements middleware.UserFinder without any database dependency.
type mockFinder struct {
	err error
}

func (m mockFinder) FindActiveUser(r *http.Request, username string) error {
	return m.err
}

// callWithHeader wraps a simple 200-OK inner handler in the provided middleware,
// optionally setting one header on the request, and returns the recorded response.
func callWithHeader(t *testing.T, mw func(http.Handler) http.Handler, name, value string) *httptest.ResponseRecorder {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := mw(inner)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if name != "" {
		req.Header.Set(name, value)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// TestIdentityMiddleware_MissingHeader verifies that a request without the
// identity header receives a 401 response.
func TestIdentityMiddleware_MissingHeader(t *testing.T) {
	mw := middleware.IdentityMiddleware("X-Remote-User", mockFinder{})

	rec := callWithHeader(t, mw, "", "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Missing user identity") {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

// TestIdentityMiddleware_UnknownUser verifies that a finder error results in a 401.
func TestIdentityMiddleware_UnknownUser(t *testing.T) {
	mw := middleware.IdentityMiddleware("X-Remote-User", mockFinder{err: errors.New("user not found")})

	rec := callWithHeader(t, mw, "X-Remote-User", "ghost")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// TestIdentityMiddleware_KnownUser verifies that the username is injected into the context.
func TestIdentityMiddleware_KnownUser(t *testing.T) {
	const wantUsername = "alice"

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := utils.GetUsernameFromContext(r.Context())
		if !ok {
			http.Error(w, "username not in context", http.StatusInternalServerError)
			return
		}
		if got != wantUsername {
			http.Error(w, "wrong username in context: "+got, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.IdentityMiddleware("X-Remote-User", mockFinder{})(inner)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Remote-User", wantUsername)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
}

// TestCORSMiddleware_AllowedOrigin verifies that listed origins are echoed back
// and preflight requests short-circuit with 204.
func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	mw := middleware.CORSMiddleware([]string{"http://localhost:5173"})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/expense", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected origin to be echoed, got %q", got)
	}
}

// TestCORSMiddleware_UnknownOrigin verifies that unlisted origins get no allow header.
func TestCORSMiddleware_UnknownOrigin(t *testing.T) {
	mw := middleware.CORSMiddleware([]string{"http://localhost:5173"})

	rec := callWithHeader(t, mw, "Origin", "https://evil.example")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got %q", got)
	}
}

// TestRateLimitMiddleware_Burst verifies that requests beyond the burst are rejected with 429.
func TestRateLimitMiddleware_Burst(t *testing.T) {
	mw := middleware.RateLimitMiddleware(0.001, 2)

	for i := 0; i < 2; i++ {
		if rec := callWithHeader(t, mw, "", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := callWithHeader(t, mw, "", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

// TestRateLimitMiddleware_Disabled verifies that a zero rate passes everything through.
func TestRateLimitMiddleware_Disabled(t *testing.T) {
	mw := middleware.RateLimitMiddleware(0, 0)

	for i := 0; i < 50; i++ {
		if rec := callWithHeader(t, mw, "", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

// TestRateLimitMiddleware_PerClient verifies that one client exhausting its
// burst does not throttle another.
func TestRateLimitMiddleware_PerClient(t *testing.T) {
	mw := middleware.RateLimitMiddleware(0.001, 1)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1:5000"); code != http.StatusOK {
		t.Fatalf("first client: expected 200, got %d", code)
	}
	if code := send("10.0.0.1:5001"); code != http.StatusTooManyRequests {
		t.Fatalf("first client again: expected 429, got %d", code)
	}
	if code := send("10.0.0.2:5000"); code != http.StatusOK {
		t.Errorf("second client: expected 200, got %d", code)
	}
}
