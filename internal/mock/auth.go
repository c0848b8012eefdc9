package mock

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// AuthConfig lists the credentials the simulator accepts. An empty list for
// a scheme means any non-empty credential of that shape is accepted.
type AuthConfig struct {
	Tokens  []string // bearer tokens and oauth2 access tokens
	APIKeys []string
	Basic   []string // user:password pairs
}

// AuthResult reports the outcome of authentication simulation.
type AuthResult struct {
	Authenticated bool
	Method        string // scheme name that succeeded, or "none"
	Scopes        []string
	Message       string // failure message when not authenticated
}

// Authenticator simulates the security requirements of an operation without
// a real identity provider.
type Authenticator struct {
	tokens  map[string]bool
	apiKeys map[string]bool
	basic   map[string]bool
}

// NewAuthenticator builds an authenticator from configured credentials.
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	return &Authenticator{
		tokens:  toSet(cfg.Tokens),
		apiKeys: toSet(cfg.APIKeys),
		basic:   toSet(cfg.Basic),
	}
}

// Authenticate tries each declared requirement in document order and stops
// at the first that succeeds. When every requirement fails, the failure
// message describes the last scheme attempted. An operation with no
// requirements authenticates unconditionally with method "none".
func (a *Authenticator) Authenticate(r *http.Request, reqs []SecurityRequirement) AuthResult {
	if len(reqs) == 0 {
		return AuthResult{Authenticated: true, Method: "none"}
	}

	var last AuthResult
	for _, req := range reqs {
		result := a.tryScheme(r, req)
		if result.Authenticated {
			result.Method = req.SchemeName
			result.Scopes = req.Scopes
			return result
		}
		last = result
	}
	return last
}

func (a *Authenticator) tryScheme(r *http.Request, req SecurityRequirement) AuthResult {
	switch {
	case req.Type == "http" && req.Scheme == "bearer", req.Type == "oauth2":
		return a.tryBearer(r)
	case req.Type == "http" && req.Scheme == "basic":
		return a.tryBasic(r)
	case req.Type == "apiKey":
		return a.tryAPIKey(r, req)
	}
	return AuthResult{Message: "Unsupported authentication scheme."}
}

func (a *Authenticator) tryBearer(r *http.Request) AuthResult {
	header := r.Header.Get("Authorization")
	if header == "" {
		return AuthResult{Message: "Missing Authorization header with Bearer token."}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return AuthResult{Message: "Authorization header must use the Bearer scheme."}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return AuthResult{Message: "Bearer token is empty."}
	}
	if len(a.tokens) > 0 && !a.tokens[token] {
		return AuthResult{Message: "Invalid or expired token."}
	}
	return AuthResult{Authenticated: true}
}

func (a *Authenticator) tryBasic(r *http.Request) AuthResult {
	header := r.Header.Get("Authorization")
	if header == "" {
		return AuthResult{Message: "Missing Authorization header with Basic credentials."}
	}
	if !strings.HasPrefix(header, "Basic ") {
		return AuthResult{Message: "Authorization header must use the Basic scheme."}
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil || !strings.Contains(string(raw), ":") {
		return AuthResult{Message: "Basic credentials are malformed."}
	}
	if len(a.basic) > 0 && !a.basic[string(raw)] {
		return AuthResult{Message: "Invalid username or password."}
	}
	return AuthResult{Authenticated: true}
}

func (a *Authenticator) tryAPIKey(r *http.Request, req SecurityRequirement) AuthResult {
	name := req.ParamName
	if name == "" {
		name = "X-API-Key"
	}
	key := apiKeyFrom(r, req.In, name)
	if key == "" {
		return AuthResult{Message: "Missing API key in " + strings.ToLower(reqLocation(req.In)) + " " + name + "."}
	}
	if len(a.apiKeys) > 0 && !a.apiKeys[key] {
		return AuthResult{Message: "Invalid API key."}
	}
	return AuthResult{Authenticated: true}
}

// apiKeyFrom checks the scheme's declared location first, then the usual
// alternate spellings and the query parameter, so clients may supply the
// key in any of the common places.
func apiKeyFrom(r *http.Request, in, name string) string {
	headers := []string{name, "X-API-Key", "Api-Key"}
	queries := []string{name, "api_key"}
	if in == "query" {
		for _, q := range queries {
			if v := r.URL.Query().Get(q); v != "" {
				return v
			}
		}
		for _, h := range headers {
			if v := r.Header.Get(h); v != "" {
				return v
			}
		}
		return ""
	}
	for _, h := range headers {
		if v := r.Header.Get(h); v != "" {
			return v
		}
	}
	for _, q := range queries {
		if v := r.URL.Query().Get(q); v != "" {
			return v
		}
	}
	return ""
}

func reqLocation(in string) string {
	if in == "query" {
		return "query parameter"
	}
	return "header"
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	return set
}
