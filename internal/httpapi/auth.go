package httpapi

import (
	"crypto/subtle"
	"net/http"
)

// checkBasicAuth validates HTTP Basic credentials against the configured
// username/password using constant-time comparison, so response timing
// never leaks how many characters matched (spec.md §4.6).
func checkBasicAuth(r *http.Request, user, pass string) bool {
	gotUser, gotPass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userMatch := subtle.ConstantTimeCompare([]byte(gotUser), []byte(user)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(gotPass), []byte(pass)) == 1
	return userMatch && passMatch
}

// requireBasicAuth wraps next with Basic Auth enforcement for the ingest
// endpoint. A missing or invalid credential gets a 401 with a WWW-Authenticate
// challenge, never a distinguishing error message.
func requireBasicAuth(user, pass string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !checkBasicAuth(r, user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="hls-relay"`)
			respondError(w, r, http.StatusUnauthorized, "auth_failed", "invalid credentials")
			return
		}
		next(w, r)
	}
}

// requireLoopback restricts next to requests whose RemoteAddr resolves to
// the loopback interface, for the local-only read endpoints.
func requireLoopback(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isLoopback(r) {
			respondError(w, r, http.StatusForbidden, "forbidden", "loopback access only")
			return
		}
		next(w, r)
	}
}
