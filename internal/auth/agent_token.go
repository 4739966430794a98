package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenTTL = 30 * time.Minute
)

var (
	errMissingSigningSecret = errors.New("signing secret must be provided")
	errMissingAgentID       = errors.New("agent identity must be provided")
)

// AgentTokenConfig configures the agent session token issuer.
type AgentTokenConfig struct {
	SigningSecret []byte
	Issuer        string
	Audience      string
	TokenTTL      time.Duration
	Clock         func() time.Time
}

// AgentTokens issues and validates the bearer tokens that carry agent
// identity across the remote-call boundary. The session layer mints a
// token per agent; the API validates it and trusts the subject claim.
type AgentTokens struct {
	config AgentTokenConfig
	clock  func() time.Time
}

// NewAgentTokens constructs an AgentTokens with sane defaults.
func NewAgentTokens(cfg AgentTokenConfig) (*AgentTokens, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, errMissingSigningSecret
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AgentTokens{
		config: AgentTokenConfig{
			SigningSecret: cfg.SigningSecret,
			Issuer:        cfg.Issuer,
			Audience:      cfg.Audience,
			TokenTTL:      ttl,
			Clock:         clock,
		},
		clock: clock,
	}, nil
}

// IssueAgentToken produces a signed JWT and its expiry (seconds) for the agent.
func (a *AgentTokens) IssueAgentToken(_ context.Context, agentID string) (string, int64, error) {
	if agentID == "" {
		return "", 0, errMissingAgentID
	}

	now := a.clock().UTC()
	expiresAt := now.Add(a.config.TokenTTL).UTC()

	registered := jwt.RegisteredClaims{
		Subject:   agentID,
		Issuer:    a.config.Issuer,
		Audience:  []string{a.config.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, registered)
	signed, err := token.SignedString(a.config.SigningSecret)
	if err != nil {
		return "", 0, err
	}

	return signed, int64(expiresAt.Sub(now).Seconds()), nil
}

// ValidateToken ensures the token is well formed and returns the agent identity.
func (a *AgentTokens) ValidateToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing algorithm: %s", token.Method.Alg())
			}
			return a.config.SigningSecret, nil
		},
		jwt.WithAudience(a.config.Audience),
		jwt.WithIssuer(a.config.Issuer),
		jwt.WithTimeFunc(a.clock),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errMissingAgentID
	}
	return claims.Subject, nil
}
