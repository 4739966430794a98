package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAgentTokensIssueTokens(t *testing.T) {
	tokens, err := NewAgentTokens(AgentTokenConfig{
		SigningSecret: []byte("super-secret"),
		Issuer:        "mewsfeed-session",
		Audience:      "mewsfeed-api",
		TokenTTL:      30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, expiresIn, err := tokens.IssueAgentToken(context.Background(), "agent-123")
	if err != nil {
		t.Fatalf("expected successful issuance: %v", err)
	}

	if expiresIn <= 0 {
		t.Fatalf("expected positive expiry seconds, got %d", expiresIn)
	}

	parser := jwt.Parser{}
	claims := &jwt.RegisteredClaims{}

	_, err = parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	})
	if err != nil {
		t.Fatalf("failed to parse generated token: %v", err)
	}

	if claims.Subject != "agent-123" {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}
	if claims.Issuer != "mewsfeed-session" {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if len(claims.Audience) == 0 || claims.Audience[0] != "mewsfeed-api" {
		t.Fatalf("unexpected audience %#v", claims.Audience)
	}
}

func TestAgentTokensRejectMissingSecret(t *testing.T) {
	_, err := NewAgentTokens(AgentTokenConfig{
		SigningSecret: nil,
		Issuer:        "mewsfeed-session",
		Audience:      "mewsfeed-api",
	})
	if err == nil {
		t.Fatalf("expected constructor error for missing secret")
	}
}

func TestAgentTokensValidateIssuedTokens(t *testing.T) {
	tokens, err := NewAgentTokens(AgentTokenConfig{
		SigningSecret: []byte("another-secret"),
		Issuer:        "mewsfeed-session",
		Audience:      "mewsfeed-api",
		TokenTTL:      15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, _, err := tokens.IssueAgentToken(context.Background(), "agent-321")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	agentID, err := tokens.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("expected token to validate: %v", err)
	}
	if agentID != "agent-321" {
		t.Fatalf("unexpected agent id %s", agentID)
	}
}

func TestAgentTokensRejectExpiredTokens(t *testing.T) {
	issuedAt := time.Unix(1700000000, 0).UTC()
	tokens, err := NewAgentTokens(AgentTokenConfig{
		SigningSecret: []byte("rotating-secret"),
		Issuer:        "mewsfeed-session",
		Audience:      "mewsfeed-api",
		TokenTTL:      time.Minute,
		Clock:         func() time.Time { return issuedAt },
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, _, err := tokens.IssueAgentToken(context.Background(), "agent-999")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	expired, err := NewAgentTokens(AgentTokenConfig{
		SigningSecret: []byte("rotating-secret"),
		Issuer:        "mewsfeed-session",
		Audience:      "mewsfeed-api",
		TokenTTL:      time.Minute,
		Clock:         func() time.Time { return issuedAt.Add(time.Hour) },
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	if _, err := expired.ValidateToken(tokenString); err == nil {
		t.Fatalf("expected validation to fail for expired token")
	}
}

func TestAgentTokensRejectWrongAudience(t *testing.T) {
	issuer, err := NewAgentTokens(AgentTokenConfig{
		SigningSecret: []byte("shared-secret"),
		Issuer:        "mewsfeed-session",
		Audience:      "other-api",
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, _, err := issuer.IssueAgentToken(context.Background(), "agent-555")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	validator, err := NewAgentTokens(AgentTokenConfig{
		SigningSecret: []byte("shared-secret"),
		Issuer:        "mewsfeed-session",
		Audience:      "mewsfeed-api",
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	if _, err := validator.ValidateToken(tokenString); err == nil {
		t.Fatalf("expected validation to fail for wrong audience")
	}
}
