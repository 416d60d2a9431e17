package snowapi

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenTypeHeader tells the platform how to interpret the bearer token.
const TokenTypeHeader = "X-Snowflake-Authorization-Token-Type"

// AuthConfig selects how requests are authorized.
type AuthConfig struct {
	Mode         string // "token" | "oauth"
	Token        string
	TokenType    string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// tokenTypeTransport sets the token type header on every request.
type tokenTypeTransport struct {
	base      http.RoundTripper
	tokenType string
}

func (t *tokenTypeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set(TokenTypeHeader, t.tokenType)
	return t.base.RoundTrip(r)
}

// TokenSource returns the oauth2 token source for the configured mode.
func TokenSource(ctx context.Context, cfg AuthConfig) (oauth2.TokenSource, error) {
	switch cfg.Mode {
	case "", "token":
		if cfg.Token == "" {
			return nil, fmt.Errorf("platform token is not configured")
		}
		return oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "Bearer",
		}), nil
	case "oauth":
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		return cc.TokenSource(ctx), nil
	default:
		return nil, fmt.Errorf("unknown platform auth mode %q", cfg.Mode)
	}
}

// NewHTTPClient returns an http.Client that authorizes every request with
// the configured credentials.
func NewHTTPClient(ctx context.Context, cfg AuthConfig) (*http.Client, error) {
	ts, err := TokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokenType := cfg.TokenType
	if tokenType == "" && cfg.Mode == "oauth" {
		tokenType = "OAUTH"
	}

	var base http.RoundTripper = http.DefaultTransport
	if tokenType != "" {
		base = &tokenTypeTransport{base: base, tokenType: tokenType}
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: base},
	}, nil
}
