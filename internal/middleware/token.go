package middleware

import (
	"net/http"
	"strings"
)

// SessionCookieName is the cookie carrying a session token
const SessionCookieName = "session"

// Token extracts a bearer token from the Authorization header, the token query
// parameter, or the session cookie, in that order
func Token(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err == nil {
		return cookie.Value
	}

	return ""
}
