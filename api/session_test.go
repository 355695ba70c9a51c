package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"taskboard-api/auth"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header  string
		want    string
		wantErr bool
	}{
		"valid":         {"Bearer a.b.c", "a.b.c", false},
		"padded":        {"  Bearer a.b.c  ", "a.b.c", false},
		"empty":         {"", "", true},
		"no_prefix":     {"a.b.c", "", true},
		"wrong_prefix":  {"Basic a.b.c", "", true},
		"empty_token":   {"Bearer ", "", true},
		"not_a_jwt":     {"Bearer abc", "", true},
		"too_many_dots": {"Bearer a.b.c.d", "", true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := bearerToken(tc.header)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

type stubSessions struct {
	claims  *auth.Claims
	renewed string
}

func (s *stubSessions) Issue(id auth.Identity) (string, error) { return "issued", nil }

func (s *stubSessions) Parse(token string) (*auth.Claims, error) {
	if s.claims == nil {
		return nil, auth.ErrInvalidToken
	}
	return s.claims, nil
}

func (s *stubSessions) Renew(token string) (string, bool) {
	if s.renewed == "" {
		return token, false
	}
	return s.renewed, true
}

func runMiddleware(t *testing.T, sessions Sessions, req *http.Request) (*httptest.ResponseRecorder, *auth.Claims) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *auth.Claims
	handler := SessionMiddleware(sessions, false)(func(c echo.Context) error {
		got = claimsFromContext(c)
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	return rec, got
}

func TestSessionMiddlewareBearerFallback(t *testing.T) {
	claims := &auth.Claims{UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)}
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer a.b.c")

	_, got := runMiddleware(t, &stubSessions{claims: claims}, req)
	if got == nil || got.UserID != "u-1" {
		t.Fatalf("expected claims from bearer token, got %#v", got)
	}
}

func TestSessionMiddlewareNoToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	_, got := runMiddleware(t, &stubSessions{}, req)
	if got != nil {
		t.Fatalf("expected no claims, got %#v", got)
	}
}

func TestSessionMiddlewareRenewsCookie(t *testing.T) {
	claims := &auth.Claims{UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)}
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "a.b.c"})

	rec, got := runMiddleware(t, &stubSessions{claims: claims, renewed: "x.y.z"}, req)
	if got == nil {
		t.Fatal("expected claims from cookie")
	}
	var refreshed bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.Value == "x.y.z" {
			refreshed = true
			if !c.HttpOnly {
				t.Fatal("refreshed cookie must stay HTTP-only")
			}
		}
	}
	if !refreshed {
		t.Fatal("expected the cookie to be reissued")
	}
}

func TestSessionMiddlewareDoesNotRenewBearer(t *testing.T) {
	claims := &auth.Claims{UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)}
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer a.b.c")

	rec, _ := runMiddleware(t, &stubSessions{claims: claims, renewed: "x.y.z"}, req)
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("bearer sessions must not produce cookies")
	}
}

func TestSessionMiddlewareClearsBadCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})

	rec, got := runMiddleware(t, &stubSessions{}, req)
	if got != nil {
		t.Fatalf("expected no claims for a bad cookie, got %#v", got)
	}
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected the unusable cookie to be cleared")
	}
}

func TestSessionRoundTripThroughMiddleware(t *testing.T) {
	sessions := auth.NewSessions([]byte("middleware-secret"))
	token, err := sessions.Issue(auth.Identity{ID: "u-7", Role: "USER"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	_, got := runMiddleware(t, sessions, req)
	if got == nil || got.UserID != "u-7" || got.Role != "USER" {
		t.Fatalf("expected decoded claims, got %#v", got)
	}
}
