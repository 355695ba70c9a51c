package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"taskboard-api/auth"
)

// SessionCookieName is the HTTP-only cookie carrying the session token.
const SessionCookieName = "taskboard_session"

const claimsContextKey = "taskboard.session.claims"

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

// SessionMiddleware extracts the session token from the cookie (or a bearer
// header as fallback), parses it, and stashes the claims in the request
// context. When the token is inside its renewal window the cookie is reissued
// transparently. Requests without a usable session pass through with no
// claims; the handlers decide whether that is fatal.
func SessionMiddleware(sessions Sessions, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, fromCookie := sessionToken(c)
			if token == "" {
				return next(c)
			}

			claims, err := sessions.Parse(token)
			if err != nil {
				if fromCookie {
					clearSessionCookie(c, secure)
				}
				return next(c)
			}
			c.Set(claimsContextKey, claims)

			if fromCookie {
				if fresh, renewed := sessions.Renew(token); renewed {
					setSessionCookie(c, fresh, secure)
				}
			}
			return next(c)
		}
	}
}

func sessionToken(c echo.Context) (token string, fromCookie bool) {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	if token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization)); err == nil {
		return token, false
	}
	return "", false
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingAuthorization
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", errBadAuthorization
	}
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}

func claimsFromContext(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsContextKey).(*auth.Claims)
	return claims
}

func setSessionCookie(c echo.Context, token string, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
