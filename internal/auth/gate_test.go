package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/values"
)

type stubVerifier struct {
	groups []string
	err    error
}

func (s stubVerifier) VerifyToken(ctx context.Context, token string) (TokenInfo, error) {
	if s.err != nil {
		return TokenInfo{}, s.err
	}
	return TokenInfo{Groups: s.groups}, nil
}

func TestAuthenticate_NilVerifierAlwaysPublic(t *testing.T) {
	g := New(nil)
	group, err := g.Authenticate(context.Background(), "add_fragment", values.Map{})
	if err != nil || group != PublicGroup {
		t.Fatalf("got (%q, %v), want (%q, nil)", group, err, PublicGroup)
	}
}

func TestRequireAuth_MissingTokenFailsEvenThoughToolNameIsEmpty(t *testing.T) {
	g := New(stubVerifier{groups: []string{"acme"}})
	_, err := g.RequireAuth(context.Background())
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Code != apperr.AuthRequired {
		t.Fatalf("got %v, want AUTH_REQUIRED", err)
	}
}

func TestRequireAuth_ContextHeaderResolves(t *testing.T) {
	g := New(stubVerifier{groups: []string{"acme"}})
	ctx := ContextWithAuthHeader(context.Background(), "Bearer tok-123")
	group, err := g.RequireAuth(ctx)
	if err != nil || group != "acme" {
		t.Fatalf("got (%q, %v), want (\"acme\", nil)", group, err)
	}
}

func TestAuthenticate_DiscoveryToolWithoutTokenIsPublic(t *testing.T) {
	g := New(stubVerifier{groups: []string{"acme"}})
	group, err := g.Authenticate(context.Background(), "list_templates", values.Map{})
	if err != nil || group != PublicGroup {
		t.Fatalf("got (%q, %v), want (%q, nil)", group, err, PublicGroup)
	}
}

func TestAuthenticate_NonDiscoveryWithoutTokenFailsAuthRequired(t *testing.T) {
	g := New(stubVerifier{groups: []string{"acme"}})
	_, err := g.Authenticate(context.Background(), "add_fragment", values.Map{})
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Code != apperr.AuthRequired {
		t.Fatalf("got %v, want AUTH_REQUIRED", err)
	}
}

func TestAuthenticate_PayloadAuthTokenResolves(t *testing.T) {
	g := New(stubVerifier{groups: []string{"acme"}})
	group, err := g.Authenticate(context.Background(), "add_fragment", values.Map{"auth_token": "tok-1"})
	if err != nil || group != "acme" {
		t.Fatalf("got (%q, %v), want (\"acme\", nil)", group, err)
	}
}

func TestAuthenticate_LegacyTokenFieldResolves(t *testing.T) {
	g := New(stubVerifier{groups: []string{"acme"}})
	group, err := g.Authenticate(context.Background(), "add_fragment", values.Map{"token": "tok-1"})
	if err != nil || group != "acme" {
		t.Fatalf("got (%q, %v), want (\"acme\", nil)", group, err)
	}
}

func TestAuthenticate_AuthTokenTakesPrecedenceOverLegacyToken(t *testing.T) {
	seen := ""
	g := New(capturingVerifier{out: &seen})
	_, err := g.Authenticate(context.Background(), "add_fragment", values.Map{"auth_token": "preferred", "token": "legacy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "preferred" {
		t.Fatalf("verifier saw token %q, want %q", seen, "preferred")
	}
}

type capturingVerifier struct{ out *string }

func (c capturingVerifier) VerifyToken(ctx context.Context, token string) (TokenInfo, error) {
	*c.out = token
	return TokenInfo{Groups: []string{"acme"}}, nil
}

func TestAuthenticate_ContextAuthorizationHeaderResolves(t *testing.T) {
	g := New(stubVerifier{groups: []string{"acme"}})
	ctx := ContextWithAuthHeader(context.Background(), "Bearer tok-ctx")
	group, err := g.Authenticate(ctx, "add_fragment", values.Map{})
	if err != nil || group != "acme" {
		t.Fatalf("got (%q, %v), want (\"acme\", nil)", group, err)
	}
}

func TestAuthenticate_LegacyXAuthTokenGroupHintUsedWhenTokenCarriesNoGroups(t *testing.T) {
	g := New(stubVerifier{groups: nil})
	ctx := ContextWithLegacyXAuthToken(context.Background(), "acme:tok-legacy")
	group, err := g.Authenticate(ctx, "add_fragment", values.Map{})
	if err != nil || group != "acme" {
		t.Fatalf("got (%q, %v), want (\"acme\", nil)", group, err)
	}
}

func TestAuthenticate_VerifyFailureExpiredRecovery(t *testing.T) {
	g := New(stubVerifier{err: errors.New("token expired at 2026-01-01")})
	_, err := g.Authenticate(context.Background(), "add_fragment", values.Map{"auth_token": "tok"})
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Code != apperr.AuthFailed {
		t.Fatalf("got %v, want AUTH_FAILED", err)
	}
	if !strings.Contains(appErr.Recovery, "expired") {
		t.Fatalf("recovery message %q should mention expiry", appErr.Recovery)
	}
}

func TestAuthenticate_VerifyFailureInvalidRecovery(t *testing.T) {
	g := New(stubVerifier{err: errors.New("invalid signature")})
	_, err := g.Authenticate(context.Background(), "add_fragment", values.Map{"auth_token": "tok"})
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Code != apperr.AuthFailed {
		t.Fatalf("got %v, want AUTH_FAILED", err)
	}
	if !strings.Contains(appErr.Recovery, "invalid token format") {
		t.Fatalf("recovery message %q should mention invalid format", appErr.Recovery)
	}
}
