package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"genehub/internal/cache"
)

const DefaultTokenTTL = 24 * time.Hour

// ErrSessionRevoked is returned for tokens that verify cryptographically but
// whose session was revoked or superseded by a newer registration.
var ErrSessionRevoked = errors.New("auth: session revoked or superseded")

// Service binds token issuance to a session store: one live token per agent,
// re-registering rotates it, deleting the session revokes it before expiry.
type Service struct {
	jwt      JWT
	sessions cache.Store
	logger   *zap.Logger
}

func NewService(secret []byte, tokenTTL time.Duration, sessions cache.Store, logger *zap.Logger) *Service {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	if sessions == nil {
		sessions = cache.NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		jwt:      JWT{Secret: secret, TokenTTL: tokenTTL},
		sessions: sessions,
		logger:   logger,
	}
}

func sessionKey(agentID string) string {
	return "genehub:session:" + agentID
}

// Issue signs a token for the agent and stores it as the agent's single live
// session.
func (s *Service) Issue(ctx context.Context, agentID string) (token string, expiresAt time.Time, err error) {
	token, expiresAt, err = s.jwt.Sign(Claims{AgentID: agentID})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	if err := s.sessions.Set(ctx, sessionKey(agentID), []byte(token), time.Until(expiresAt)); err != nil {
		return "", time.Time{}, fmt.Errorf("store session: %w", err)
	}
	s.logger.Debug("token issued", zap.String("agent_id", agentID), zap.Time("expires_at", expiresAt))
	return token, expiresAt, nil
}

// Authenticate verifies the signature and then checks the session store, so a
// rotated or revoked token fails even before its expiry.
func (s *Service) Authenticate(ctx context.Context, token string) (Claims, error) {
	claims, err := s.jwt.Verify(token)
	if err != nil {
		return Claims{}, err
	}
	stored, found, err := s.sessions.Get(ctx, sessionKey(claims.AgentID))
	if err != nil {
		return Claims{}, fmt.Errorf("load session: %w", err)
	}
	if !found || string(stored) != token {
		return Claims{}, ErrSessionRevoked
	}
	return claims, nil
}

func (s *Service) Revoke(ctx context.Context, agentID string) error {
	return s.sessions.Delete(ctx, sessionKey(agentID))
}
