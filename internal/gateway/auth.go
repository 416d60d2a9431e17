package gateway

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/soyeahso/agentdash/internal/config"
)

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Method string `json:"method,omitempty"` // "none" | "token" | "password"
	Reason string `json:"reason,omitempty"`
}

// ResolvedAuth holds the resolved dashboard credentials.
type ResolvedAuth struct {
	Mode     string
	Token    string
	Password string
}

// ResolveAuth resolves credentials from config, then AGENTDASH_DASHBOARD_TOKEN
// and AGENTDASH_DASHBOARD_PASSWORD. An empty mode stays open only when no
// credential is available.
func ResolveAuth(cfg config.DashboardAuth) ResolvedAuth {
	auth := ResolvedAuth{Mode: cfg.Mode, Token: cfg.Token, Password: cfg.Password}
	if auth.Token == "" {
		auth.Token = os.Getenv("AGENTDASH_DASHBOARD_TOKEN")
	}
	if auth.Password == "" {
		auth.Password = os.Getenv("AGENTDASH_DASHBOARD_PASSWORD")
	}

	if auth.Mode == "" {
		switch {
		case auth.Password != "":
			auth.Mode = "password"
		case auth.Token != "":
			auth.Mode = "token"
		default:
			auth.Mode = "none"
		}
	}
	return auth
}

// Credentials are what a request presented.
type Credentials struct {
	Token    string
	Password string
}

// credentialsFromRequest reads a bearer token (header or ?token=) and a
// basic-auth password.
func credentialsFromRequest(r *http.Request) Credentials {
	var c Credentials
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			c.Token = strings.TrimSpace(tok)
		}
	}
	if c.Token == "" {
		c.Token = r.URL.Query().Get("token")
	}
	if _, pw, ok := r.BasicAuth(); ok {
		c.Password = pw
	}
	return c
}

// Authorize checks presented credentials against the resolved auth.
func Authorize(serverAuth ResolvedAuth, creds Credentials) AuthResult {
	switch serverAuth.Mode {
	case "none":
		return AuthResult{OK: true, Method: "none"}

	case "token":
		if serverAuth.Token == "" {
			return AuthResult{OK: false, Reason: "server token not configured"}
		}
		if creds.Token == "" {
			return AuthResult{OK: false, Reason: "token required"}
		}
		if !safeEqual(creds.Token, serverAuth.Token) {
			return AuthResult{OK: false, Reason: "token_mismatch"}
		}
		return AuthResult{OK: true, Method: "token"}

	case "password":
		if serverAuth.Password == "" {
			return AuthResult{OK: false, Reason: "server password not configured"}
		}
		if creds.Password == "" {
			return AuthResult{OK: false, Reason: "password required"}
		}
		if !safeEqual(creds.Password, serverAuth.Password) {
			return AuthResult{OK: false, Reason: "password_mismatch"}
		}
		return AuthResult{OK: true, Method: "password"}

	default:
		return AuthResult{OK: false, Reason: "unknown auth mode: " + serverAuth.Mode}
	}
}

// requireAuth gates a handler behind the dashboard auth and the per-IP
// failure limiter.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth.Mode == "none" {
			next(w, r)
			return
		}
		if !s.authLimiter.allow(r.RemoteAddr) {
			s.log.Warn().Str("remote", r.RemoteAddr).Msg("rate limited: too many failed auth attempts")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}

		res := Authorize(s.auth, credentialsFromRequest(r))
		if !res.OK {
			s.authLimiter.recordFailure(r.RemoteAddr)
			s.log.Warn().Str("remote", r.RemoteAddr).Str("reason", res.Reason).Msg("unauthorized request")
			if s.auth.Mode == "password" {
				w.Header().Set("WWW-Authenticate", `Basic realm="agentdash"`)
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// safeEqual performs a constant-time string comparison that does not leak
// the secret's length.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}

// checkWebSocketOrigin validates WebSocket Origin headers. With no allowed
// origins only same-origin or non-browser clients pass.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if origin == "http://"+r.Host || origin == "https://"+r.Host {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}
