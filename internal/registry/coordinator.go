package registry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"genehub/internal/events"
	"genehub/internal/models"
	"genehub/internal/repository"
)

// Claim failure reasons. Contention reasons are expected outcomes for a
// polling agent, not errors.
const (
	ReasonAlreadyClaimed   = "already_claimed"
	ReasonTaskFull         = "task_full"
	ReasonReputationTooLow = "reputation_too_low"
	ReasonNotFound         = "not_found"
	ReasonExpired          = "expired"
)

// ClaimTimeouts sets how long a claim holds per bounty type before the slot
// is reclaimed for other agents.
type ClaimTimeouts struct {
	Discovery    time.Duration `json:"discovery" mapstructure:"discovery"`
	Optimization time.Duration `json:"optimization" mapstructure:"optimization"`
	Verification time.Duration `json:"verification" mapstructure:"verification"`
}

func DefaultClaimTimeouts() ClaimTimeouts {
	return ClaimTimeouts{
		Discovery:    30 * time.Minute,
		Optimization: 60 * time.Minute,
		Verification: 15 * time.Minute,
	}
}

// For returns the claim window for a bounty type, falling back to the
// discovery window for anything unknown.
func (t ClaimTimeouts) For(bountyType string) time.Duration {
	switch bountyType {
	case models.BountyTypeOptimization:
		if t.Optimization > 0 {
			return t.Optimization
		}
	case models.BountyTypeVerification:
		if t.Verification > 0 {
			return t.Verification
		}
	}
	if t.Discovery > 0 {
		return t.Discovery
	}
	return DefaultClaimTimeouts().Discovery
}

type ClaimResult struct {
	Won            bool       `json:"won"`
	Reason         string     `json:"reason,omitempty"`
	ClaimExpiresAt *time.Time `json:"claim_expires_at,omitempty"`
}

// Coordinator arbitrates claim races. The only open -> claimed mutation path
// is the repository's guarded UPDATE; everything else here is read-side
// classification so losers get a precise reason with no side effects.
type Coordinator struct {
	repo     repository.Repository
	timeouts ClaimTimeouts
	hub      *events.Hub
	logger   *zap.Logger
}

func NewCoordinator(repo repository.Repository, timeouts ClaimTimeouts, hub *events.Hub, logger *zap.Logger) *Coordinator {
	if timeouts == (ClaimTimeouts{}) {
		timeouts = DefaultClaimTimeouts()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{repo: repo, timeouts: timeouts, hub: hub, logger: logger}
}

// Claim attempts to take the bounty for agentID. Under concurrent calls on
// one task exactly one caller wins; all others receive a reason.
func (c *Coordinator) Claim(ctx context.Context, taskID, agentID string) (ClaimResult, error) {
	if taskID == "" || agentID == "" {
		return ClaimResult{}, fmt.Errorf("%w: task id and agent id are required", ErrPolicyViolation)
	}
	now := time.Now().UTC()

	b, err := c.repo.GetBounty(ctx, taskID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("load bounty %s: %w", taskID, err)
	}
	if b == nil {
		return ClaimResult{Reason: ReasonNotFound}, nil
	}

	// A claim whose window lapsed reads as open again.
	if claimLapsed(b, now) {
		released, err := c.repo.ReleaseClaimIfExpired(ctx, taskID, now)
		if err != nil {
			return ClaimResult{}, fmt.Errorf("release lapsed claim %s: %w", taskID, err)
		}
		if released {
			c.audit(ctx, taskID, models.BountyEventClaimExpired, claimant(b), nil)
		}
		b, err = c.repo.GetBounty(ctx, taskID)
		if err != nil {
			return ClaimResult{}, fmt.Errorf("reload bounty %s: %w", taskID, err)
		}
		if b == nil {
			return ClaimResult{Reason: ReasonNotFound}, nil
		}
	}

	if b.Status == models.BountyStatusOpen && deadlinePassed(b, now) {
		// The sweep persists the expiry; the answer must not wait for it.
		return ClaimResult{Reason: ReasonExpired}, nil
	}

	switch b.Status {
	case models.BountyStatusOpen:
	case models.BountyStatusClaimed, models.BountyStatusSubmitted:
		return ClaimResult{Reason: ReasonAlreadyClaimed}, nil
	case models.BountyStatusCompleted, models.BountyStatusFailed:
		return ClaimResult{Reason: ReasonTaskFull}, nil
	case models.BountyStatusExpired:
		return ClaimResult{Reason: ReasonExpired}, nil
	default:
		return ClaimResult{Reason: ReasonAlreadyClaimed}, nil
	}

	if b.MinReputation > 0 {
		rep, err := c.repo.GetAgentReputation(ctx, agentID)
		if err != nil {
			return ClaimResult{}, fmt.Errorf("load reputation for %s: %w", agentID, err)
		}
		var score int64
		if rep != nil {
			score = rep.Score
		}
		if score < b.MinReputation {
			return ClaimResult{Reason: ReasonReputationTooLow}, nil
		}
	}

	expiresAt := now.Add(c.timeouts.For(b.Type))
	won, err := c.repo.ClaimBounty(ctx, taskID, agentID, expiresAt)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim bounty %s: %w", taskID, err)
	}
	if !won {
		return c.lostReason(ctx, taskID)
	}

	if _, err := c.repo.EnsureAgentReputation(ctx, agentID); err != nil {
		c.logger.Warn("ensure reputation row",
			zap.String("agent_id", agentID),
			zap.Error(err))
	}
	c.audit(ctx, taskID, models.BountyEventClaimed, agentID, map[string]any{"claim_expires_at": expiresAt})
	c.hub.Publish(events.Event{Type: events.TypeBountyClaimed, EntityID: taskID, Actor: agentID})
	c.logger.Info("bounty claimed",
		zap.String("bounty_id", taskID),
		zap.String("agent_id", agentID),
		zap.Time("claim_expires_at", expiresAt))
	return ClaimResult{Won: true, ClaimExpiresAt: &expiresAt}, nil
}

// lostReason reclassifies a lost compare-and-set by the row's current state.
func (c *Coordinator) lostReason(ctx context.Context, taskID string) (ClaimResult, error) {
	b, err := c.repo.GetBounty(ctx, taskID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("classify lost claim %s: %w", taskID, err)
	}
	if b == nil {
		return ClaimResult{Reason: ReasonNotFound}, nil
	}
	switch b.Status {
	case models.BountyStatusCompleted, models.BountyStatusFailed:
		return ClaimResult{Reason: ReasonTaskFull}, nil
	case models.BountyStatusExpired:
		return ClaimResult{Reason: ReasonExpired}, nil
	default:
		return ClaimResult{Reason: ReasonAlreadyClaimed}, nil
	}
}

func (c *Coordinator) audit(ctx context.Context, bountyID, eventType, actor string, payload map[string]any) {
	appendAudit(ctx, c.repo, c.logger, bountyID, eventType, actor, payload)
}

func claimLapsed(b *models.Bounty, now time.Time) bool {
	return b.Status == models.BountyStatusClaimed &&
		b.ClaimExpiresAt != nil &&
		!b.ClaimExpiresAt.After(now)
}

func deadlinePassed(b *models.Bounty, now time.Time) bool {
	return b.PublishDeadline != nil && !b.PublishDeadline.After(now)
}

func claimant(b *models.Bounty) string {
	if b.ClaimedBy == nil {
		return ""
	}
	return *b.ClaimedBy
}
