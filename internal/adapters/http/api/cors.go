package api

import (
	"net/http"
	"net/url"
	"strings"
)

// CORSPolicy decides which browser origins may call the API. Requests
// without an Origin header (curl, server-to-server) are always allowed.
type CORSPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

// NewCORSPolicy builds a policy from the configured origin list. An empty
// list allows every origin.
func NewCORSPolicy(origins []string) *CORSPolicy {
	p := &CORSPolicy{allowed: make(map[string]struct{})}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			p.allowed[o] = struct{}{}
		}
	}
	if len(p.allowed) == 0 {
		p.allowAll = true
	}
	return p
}

// Allowed reports whether the origin may call the API. Local dev servers
// are always let through so the game client can run against a deployed
// backend without config changes.
func (p *CORSPolicy) Allowed(origin string) bool {
	if origin == "" || p.allowAll {
		return true
	}
	if _, ok := p.allowed[origin]; ok {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" {
		return true
	}
	return false
}

// CORS wraps a handler with origin checks and preflight handling.
func CORS(policy *CORSPolicy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if !policy.Allowed(origin) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
