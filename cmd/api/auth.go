package main

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// auth validates the Bearer token before letting a request through.
// An unset key locks the server down with a 500 rather than a 401, so a
// missing API_SECRET_KEY reads as a deployment mistake, not a bad token.
func (a *api) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.APIKey == "" {
			a.writeError(w, http.StatusInternalServerError, "server configuration error: API key not set")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))

		// Constant-time compare keeps response latency from leaking how
		// much of a guess matched.
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.cfg.APIKey)) != 1 {
			a.writeError(w, http.StatusUnauthorized, "unauthorized: invalid or missing API key")
			return
		}

		next(w, r)
	}
}

// cors wraps the whole mux so OPTIONS preflights are answered before
// method-specific routing can reject them.
func (a *api) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
