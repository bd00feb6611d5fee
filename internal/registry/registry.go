// Package registry owns the bounty lifecycle: publishing, claim arbitration,
// submission, resolution against requirements and expiry sweeps.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"genehub/internal/events"
	"genehub/internal/gate"
	"genehub/internal/models"
	"genehub/internal/repository"
)

type Service struct {
	repo   repository.Repository
	hub    *events.Hub
	logger *zap.Logger
}

func NewService(repo repository.Repository, hub *events.Hub, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, hub: hub, logger: logger}
}

type CreateBountyInput struct {
	Title           string
	Type            string
	Requirements    json.RawMessage
	Reward          int64
	MinReputation   int64
	PublishDeadline *time.Time
	Actor           string
}

func (s *Service) Create(ctx context.Context, in CreateBountyInput) (*models.Bounty, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrPolicyViolation)
	}
	if !models.ValidBountyType(in.Type) {
		return nil, fmt.Errorf("%w: unknown bounty type %q", ErrPolicyViolation, in.Type)
	}
	if in.Reward <= 0 {
		return nil, fmt.Errorf("%w: reward must be positive", ErrPolicyViolation)
	}
	if in.MinReputation < 0 {
		return nil, fmt.Errorf("%w: min reputation must not be negative", ErrPolicyViolation)
	}
	if len(in.Requirements) > 0 {
		if _, err := requirementThresholds(in.Requirements); err != nil {
			return nil, fmt.Errorf("%w: requirements: %v", ErrPolicyViolation, err)
		}
	}
	now := time.Now().UTC()
	if in.PublishDeadline != nil && !in.PublishDeadline.After(now) {
		return nil, fmt.Errorf("%w: publish deadline is in the past", ErrPolicyViolation)
	}

	b := &models.Bounty{
		ID:              uuid.NewString(),
		Title:           title,
		Type:            in.Type,
		Requirements:    datatypes.JSON(in.Requirements),
		Reward:          in.Reward,
		MinReputation:   in.MinReputation,
		Status:          models.BountyStatusOpen,
		PublishDeadline: in.PublishDeadline,
	}
	if err := s.repo.CreateBounty(ctx, b); err != nil {
		return nil, fmt.Errorf("create bounty: %w", err)
	}
	s.audit(ctx, b.ID, models.BountyEventCreated, in.Actor, map[string]any{"type": b.Type, "reward": b.Reward})
	s.hub.Publish(events.Event{Type: events.TypeBountyCreated, EntityID: b.ID, Actor: in.Actor})
	s.logger.Info("bounty created",
		zap.String("bounty_id", b.ID),
		zap.String("type", b.Type),
		zap.Int64("reward", b.Reward))
	return b, nil
}

// Get loads one bounty, repairing a lapsed claim on contact so callers always
// observe it as open with claimedBy cleared.
func (s *Service) Get(ctx context.Context, id string) (*models.Bounty, error) {
	b, err := s.repo.GetBounty(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load bounty %s: %w", id, err)
	}
	if b == nil {
		return nil, ErrNotFound
	}
	now := time.Now().UTC()
	if !claimLapsed(b, now) {
		return b, nil
	}
	released, err := s.repo.ReleaseClaimIfExpired(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("release lapsed claim %s: %w", id, err)
	}
	if released {
		s.audit(ctx, id, models.BountyEventClaimExpired, claimant(b), nil)
	}
	b, err = s.repo.GetBounty(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload bounty %s: %w", id, err)
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

// List sweeps lapsed claims and overdue publishes first, so listings never
// show a claim past its window.
func (s *Service) List(ctx context.Context, params repository.ListBountiesParams) ([]models.Bounty, error) {
	now := time.Now().UTC()
	if _, err := s.repo.ReleaseExpiredClaims(ctx, now); err != nil {
		return nil, fmt.Errorf("release expired claims: %w", err)
	}
	if _, err := s.repo.ExpireDuePublishes(ctx, now); err != nil {
		return nil, fmt.Errorf("expire due publishes: %w", err)
	}
	return s.repo.ListBounties(ctx, params)
}

// Submit moves a claimed bounty to submitted. Only the current claimant may
// submit, the claim window must still be live and the gene must exist.
func (s *Service) Submit(ctx context.Context, taskID, agentID, geneID string) (*models.Bounty, error) {
	if taskID == "" || agentID == "" || geneID == "" {
		return nil, fmt.Errorf("%w: task id, agent id and gene id are required", ErrPolicyViolation)
	}
	if _, err := s.Get(ctx, taskID); err != nil {
		return nil, err
	}
	g, err := s.repo.GetGene(ctx, geneID)
	if err != nil {
		return nil, fmt.Errorf("load gene %s: %w", geneID, err)
	}
	if g == nil {
		return nil, fmt.Errorf("%w: gene %s does not exist", ErrPolicyViolation, geneID)
	}

	ok, err := s.repo.SubmitBounty(ctx, taskID, agentID, geneID)
	if err != nil {
		return nil, fmt.Errorf("submit bounty %s: %w", taskID, err)
	}
	if !ok {
		return nil, s.submitRejection(ctx, taskID, agentID)
	}
	s.audit(ctx, taskID, models.BountyEventSubmitted, agentID, map[string]any{"gene_id": geneID})
	s.hub.Publish(events.Event{Type: events.TypeBountySubmitted, EntityID: taskID, Actor: agentID})
	s.logger.Info("bounty submitted",
		zap.String("bounty_id", taskID),
		zap.String("agent_id", agentID),
		zap.String("gene_id", geneID))
	return s.Get(ctx, taskID)
}

func (s *Service) submitRejection(ctx context.Context, taskID, agentID string) error {
	b, err := s.repo.GetBounty(ctx, taskID)
	if err != nil {
		return fmt.Errorf("classify rejected submit %s: %w", taskID, err)
	}
	if b == nil {
		return ErrNotFound
	}
	switch b.Status {
	case models.BountyStatusClaimed:
		return fmt.Errorf("%w: agent %s is not the claimant of %s", ErrPolicyViolation, agentID, taskID)
	case models.BountyStatusOpen:
		return fmt.Errorf("%w: bounty %s has no live claim", ErrPolicyViolation, taskID)
	default:
		return fmt.Errorf("%w: bounty %s is %s", ErrPolicyViolation, taskID, b.Status)
	}
}

type ResolveInput struct {
	Actor string
	// Accept overrides re-validation when set; nil resolves by running the
	// submitted gene's latest backtest results against the requirements.
	Accept *bool
}

type Resolution struct {
	Bounty   *models.Bounty
	Accepted bool
	Outcome  *gate.Outcome
}

// Resolve finalizes a submitted bounty to completed or failed and credits the
// claimant's reputation.
func (s *Service) Resolve(ctx context.Context, taskID string, in ResolveInput) (*Resolution, error) {
	b, err := s.repo.GetBounty(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load bounty %s: %w", taskID, err)
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if b.Status != models.BountyStatusSubmitted {
		return nil, fmt.Errorf("%w: bounty %s is %s, only submitted bounties resolve", ErrPolicyViolation, taskID, b.Status)
	}
	if b.ClaimedBy == nil || b.SubmittedGeneID == nil {
		return nil, fmt.Errorf("%w: bounty %s has no submission on record", ErrPolicyViolation, taskID)
	}

	var (
		accepted bool
		outcome  *gate.Outcome
	)
	if in.Accept != nil {
		accepted = *in.Accept
	} else {
		out, err := s.revalidate(ctx, b)
		if err != nil {
			return nil, err
		}
		outcome = &out
		accepted = out.Passed
	}

	toStatus, eventType := models.BountyStatusFailed, models.BountyEventFailed
	if accepted {
		toStatus, eventType = models.BountyStatusCompleted, models.BountyEventCompleted
	}
	ok, err := s.repo.FinalizeBounty(ctx, taskID, toStatus)
	if err != nil {
		return nil, fmt.Errorf("finalize bounty %s: %w", taskID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: bounty %s was resolved concurrently", ErrPolicyViolation, taskID)
	}

	if err := s.credit(ctx, *b.ClaimedBy, accepted); err != nil {
		// The transition already landed; surface loudly and move on.
		s.logger.Warn("update reputation",
			zap.String("agent_id", *b.ClaimedBy),
			zap.Error(err))
	}

	payload := map[string]any{"accepted": accepted, "gene_id": *b.SubmittedGeneID}
	if outcome != nil && outcome.Reason != "" {
		payload["reason"] = outcome.Reason
	}
	s.audit(ctx, taskID, eventType, in.Actor, payload)
	s.hub.Publish(events.Event{
		Type:     events.TypeBountyResolved,
		EntityID: taskID,
		Actor:    in.Actor,
		Payload:  map[string]any{"accepted": accepted},
	})
	s.logger.Info("bounty resolved",
		zap.String("bounty_id", taskID),
		zap.Bool("accepted", accepted))

	updated, err := s.repo.GetBounty(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("reload bounty %s: %w", taskID, err)
	}
	return &Resolution{Bounty: updated, Accepted: accepted, Outcome: outcome}, nil
}

// revalidate runs the submission's latest backtest breakdown through the gate
// with the bounty's requirements. A gene with no validated history cannot
// meet any requirement set.
func (s *Service) revalidate(ctx context.Context, b *models.Bounty) (gate.Outcome, error) {
	recs, err := s.repo.RecentBacktestRecords(ctx, *b.SubmittedGeneID, 1)
	if err != nil {
		return gate.Outcome{}, fmt.Errorf("load backtest history for %s: %w", *b.SubmittedGeneID, err)
	}
	th, err := requirementThresholds(b.Requirements)
	if err != nil {
		return gate.Outcome{}, fmt.Errorf("%w: requirements on %s: %v", ErrPolicyViolation, b.ID, err)
	}
	var results []gate.MarketResult
	if len(recs) > 0 && len(recs[0].Breakdown) > 0 {
		if err := json.Unmarshal(recs[0].Breakdown, &results); err != nil {
			return gate.Outcome{}, fmt.Errorf("decode breakdown for %s: %w", *b.SubmittedGeneID, err)
		}
	}
	return gate.Evaluate(th, results), nil
}

// requirementThresholds overlays the bounty's requirements JSON onto the
// default thresholds, so absent keys keep their defaults.
func requirementThresholds(req []byte) (gate.Thresholds, error) {
	th := gate.DefaultThresholds()
	if len(req) == 0 {
		return th, nil
	}
	if err := json.Unmarshal(req, &th); err != nil {
		return gate.Thresholds{}, err
	}
	return th, nil
}

func (s *Service) credit(ctx context.Context, agentID string, accepted bool) error {
	rep, err := s.repo.EnsureAgentReputation(ctx, agentID)
	if err != nil {
		return err
	}
	rep.Submissions++
	if accepted {
		rep.Accepted++
		rep.Validations++
	}
	rep.RecomputeScore()
	return s.repo.SaveAgentReputation(ctx, rep)
}

// SweepExpirations is the cron backstop behind claim windows and publish
// deadlines. Reads also repair on contact, so the sweep only bounds staleness.
func (s *Service) SweepExpirations(ctx context.Context) (released, expired int64, err error) {
	now := time.Now().UTC()
	released, err = s.repo.ReleaseExpiredClaims(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("release expired claims: %w", err)
	}
	expired, err = s.repo.ExpireDuePublishes(ctx, now)
	if err != nil {
		return released, 0, fmt.Errorf("expire due publishes: %w", err)
	}
	if released > 0 || expired > 0 {
		s.logger.Info("expiry sweep",
			zap.Int64("claims_released", released),
			zap.Int64("bounties_expired", expired))
	}
	return released, expired, nil
}

func (s *Service) Events(ctx context.Context, bountyID string, limit int) ([]models.BountyEvent, error) {
	return s.repo.ListBountyEvents(ctx, bountyID, limit)
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]models.AgentReputation, error) {
	return s.repo.ListAgentLeaderboard(ctx, limit)
}

// RegisterAgent guarantees a reputation row exists for the agent.
func (s *Service) RegisterAgent(ctx context.Context, agentID string) (*models.AgentReputation, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, fmt.Errorf("%w: agent id is required", ErrPolicyViolation)
	}
	return s.repo.EnsureAgentReputation(ctx, agentID)
}

func (s *Service) audit(ctx context.Context, bountyID, eventType, actor string, payload map[string]any) {
	appendAudit(ctx, s.repo, s.logger, bountyID, eventType, actor, payload)
}

// appendAudit writes one trail row. The trail is best effort: a failed append
// never blocks the transition that triggered it.
func appendAudit(ctx context.Context, repo repository.Repository, logger *zap.Logger, bountyID, eventType, actor string, payload map[string]any) {
	var raw datatypes.JSON
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			logger.Warn("encode bounty event payload", zap.String("bounty_id", bountyID), zap.Error(err))
		} else {
			raw = encoded
		}
	}
	ev := &models.BountyEvent{
		BountyID:  bountyID,
		EventType: eventType,
		Actor:     actor,
		Payload:   raw,
	}
	if err := repo.AppendBountyEvent(ctx, ev); err != nil {
		logger.Warn("append bounty event",
			zap.String("bounty_id", bountyID),
			zap.String("event", eventType),
			zap.Error(err))
	}
}
