// Package auth resolves the caller's credential into an acting group
// and decides whether a given tool call may proceed without one.
package auth

import (
	"context"
	"strings"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/values"
)

// PublicGroup is the acting group assigned to unauthenticated callers
// of a discovery tool.
const PublicGroup = "public"

// DiscoveryTools is the set of tool names that may be called without a
// credential; everything else requires one.
var DiscoveryTools = map[string]bool{
	"ping":                    true,
	"help":                    true,
	"list_templates":          true,
	"get_template_details":    true,
	"list_template_fragments": true,
	"get_fragment_details":    true,
	"list_styles":             true,
	"list_themes":             true,
	"list_handlers":           true,
}

// TokenInfo is what a successful token verification yields.
type TokenInfo struct {
	Groups []string
}

// Verifier is the external auth collaborator: it turns a bearer token
// into the set of groups it grants access to.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (TokenInfo, error)
}

type contextKey int

const authHeaderKey contextKey = iota

// ContextWithAuthHeader attaches the raw "Authorization" header value
// observed by the HTTP transport so the MCP dispatch path (which only
// sees tool arguments) can still recover it.
func ContextWithAuthHeader(ctx context.Context, header string) context.Context {
	return context.WithValue(ctx, authHeaderKey, header)
}

func authHeaderFromContext(ctx context.Context) string {
	v, _ := ctx.Value(authHeaderKey).(string)
	return v
}

type legacyHeaderKey int

const xAuthTokenKey legacyHeaderKey = iota

// ContextWithLegacyXAuthToken attaches the raw "X-Auth-Token: group:token"
// header value, HTTP-surface only.
func ContextWithLegacyXAuthToken(ctx context.Context, header string) context.Context {
	return context.WithValue(ctx, xAuthTokenKey, header)
}

func legacyXAuthTokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(xAuthTokenKey).(string)
	return v
}

// Gate is the AuthGate: it extracts a bearer credential, resolves it to
// a group, and enforces the discovery-tools-are-token-optional rule.
type Gate struct {
	verifier Verifier
}

// New builds a Gate. A nil verifier disables authentication entirely —
// every call proceeds as PublicGroup, mirroring the reference
// implementation's "no auth backend configured" behavior.
func New(verifier Verifier) *Gate {
	return &Gate{verifier: verifier}
}

func stripBearer(token string) string {
	if strings.HasPrefix(token, "Bearer ") {
		return strings.TrimPrefix(token, "Bearer ")
	}
	return token
}

// Authenticate resolves the acting group for a call to toolName with
// the given payload. ctx may carry the HTTP-observed Authorization and
// X-Auth-Token headers via ContextWithAuthHeader/ContextWithLegacyXAuthToken.
func (g *Gate) Authenticate(ctx context.Context, toolName string, payload values.Map) (string, error) {
	if g.verifier == nil {
		return PublicGroup, nil
	}

	token, groupHint := resolveCredential(ctx, payload)

	if token == "" {
		if DiscoveryTools[toolName] {
			return PublicGroup, nil
		}
		return "", apperr.New(apperr.AuthRequired,
			"this operation requires authentication but no token was provided",
			"add a valid bearer token via the HTTP Authorization header (Authorization: Bearer <token>), "+
				"or include {\"auth_token\": \"<token>\"} in the tool arguments. "+
				"Discovery tools (list_templates, list_styles, list_themes, list_handlers, ping, help) do not require authentication.")
	}

	info, err := g.verifier.VerifyToken(ctx, token)
	if err != nil {
		return "", apperr.New(apperr.AuthFailed,
			"authentication failed: "+err.Error(),
			recoveryForVerifyError(err.Error()))
	}

	if len(info.Groups) > 0 {
		return info.Groups[0], nil
	}
	if groupHint != "" {
		return groupHint, nil
	}
	return "", nil
}

// RequireAuth resolves the acting group for an HTTP endpoint that has no
// payload to carry auth_token/token fields and is never in the
// discovery set: credentials come only from the context-forwarded
// Authorization/X-Auth-Token headers, and a missing credential always
// fails with AUTH_REQUIRED.
func (g *Gate) RequireAuth(ctx context.Context) (string, error) {
	return g.Authenticate(ctx, "", nil)
}

// resolveCredential implements the documented precedence: payload
// auth_token, payload token, context-forwarded Authorization header,
// then the legacy X-Auth-Token: group:token header (HTTP surface only,
// which additionally yields a group hint used when the verified token
// carries no groups of its own).
func resolveCredential(ctx context.Context, payload values.Map) (token, groupHint string) {
	if v, ok := payload["auth_token"].(string); ok && v != "" {
		return stripBearer(v), ""
	}
	if v, ok := payload["token"].(string); ok && v != "" {
		return stripBearer(v), ""
	}
	if header := authHeaderFromContext(ctx); header != "" {
		if stripped := stripBearer(header); stripped != header || strings.HasPrefix(header, "Bearer ") {
			return stripped, ""
		}
	}
	if legacy := legacyXAuthTokenFromContext(ctx); legacy != "" {
		if group, tok, ok := strings.Cut(legacy, ":"); ok {
			return tok, group
		}
	}
	return "", ""
}

func recoveryForVerifyError(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "expired"):
		return "token expired: obtain a new authentication token and retry the request"
	case strings.Contains(lower, "invalid") || strings.Contains(lower, "malformed"):
		return "invalid token format: verify you are using a valid bearer token"
	default:
		return "the provided token could not be validated: obtain a fresh authentication token and retry"
	}
}
