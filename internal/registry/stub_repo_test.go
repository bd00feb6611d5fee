package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"genehub/internal/models"
	"genehub/internal/repository"
)

// stubRepo is an in-memory Repository whose claim and transition methods keep
// the guarded-update semantics of the real store: each check-and-mutate runs
// atomically under one mutex, so races resolve exactly one winner.
type stubRepo struct {
	mu       sync.Mutex
	bounties map[string]models.Bounty
	events   []models.BountyEvent
	reps     map[string]models.AgentReputation
	genes    map[string]models.Gene
	records  []models.BacktestRecord
}

var _ repository.Repository = (*stubRepo)(nil)

func newStubRepo() *stubRepo {
	return &stubRepo{
		bounties: map[string]models.Bounty{},
		reps:     map[string]models.AgentReputation{},
		genes:    map[string]models.Gene{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubRepo) CreateBounty(ctx context.Context, b *models.Bounty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	if cp.Status == "" {
		cp.Status = models.BountyStatusOpen
	}
	s.bounties[cp.ID] = cp
	return nil
}

func (s *stubRepo) GetBounty(ctx context.Context, id string) (*models.Bounty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *stubRepo) ListBounties(ctx context.Context, params repository.ListBountiesParams) ([]models.Bounty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bounty
	for _, b := range s.bounties {
		if params.Status != nil && b.Status != *params.Status {
			continue
		}
		if params.Type != nil && b.Type != *params.Type {
			continue
		}
		if params.ClaimedBy != nil && (b.ClaimedBy == nil || *b.ClaimedBy != *params.ClaimedBy) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *stubRepo) ClaimBounty(ctx context.Context, id, agentID string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	if !ok || b.Status != models.BountyStatusOpen {
		return false, nil
	}
	exp := expiresAt.UTC()
	b.Status = models.BountyStatusClaimed
	b.ClaimedBy = &agentID
	b.ClaimExpiresAt = &exp
	s.bounties[id] = b
	return true, nil
}

func (s *stubRepo) SubmitBounty(ctx context.Context, id, agentID, geneID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	if !ok || b.Status != models.BountyStatusClaimed || b.ClaimedBy == nil || *b.ClaimedBy != agentID {
		return false, nil
	}
	b.Status = models.BountyStatusSubmitted
	b.SubmittedGeneID = &geneID
	s.bounties[id] = b
	return true, nil
}

func (s *stubRepo) FinalizeBounty(ctx context.Context, id, toStatus string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	if !ok || b.Status != models.BountyStatusSubmitted || !models.BountyTransitionAllowed(b.Status, toStatus) {
		return false, nil
	}
	b.Status = toStatus
	b.ClaimedBy = nil
	b.ClaimExpiresAt = nil
	s.bounties[id] = b
	return true, nil
}

func (s *stubRepo) ReleaseClaimIfExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	if !ok || b.Status != models.BountyStatusClaimed || b.ClaimExpiresAt == nil || b.ClaimExpiresAt.After(now) {
		return false, nil
	}
	b.Status = models.BountyStatusOpen
	b.ClaimedBy = nil
	b.ClaimExpiresAt = nil
	s.bounties[id] = b
	return true, nil
}

func (s *stubRepo) ReleaseExpiredClaims(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.bounties))
	for id := range s.bounties {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	var n int64
	for _, id := range ids {
		ok, _ := s.ReleaseClaimIfExpired(ctx, id, now)
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) ExpireDuePublishes(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, b := range s.bounties {
		if b.Status != models.BountyStatusOpen || b.PublishDeadline == nil || b.PublishDeadline.After(now) {
			continue
		}
		b.Status = models.BountyStatusExpired
		s.bounties[id] = b
		n++
	}
	return n, nil
}

func (s *stubRepo) AppendBountyEvent(ctx context.Context, ev *models.BountyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ev
	cp.ID = uint64(len(s.events) + 1)
	s.events = append(s.events, cp)
	return nil
}

func (s *stubRepo) ListBountyEvents(ctx context.Context, bountyID string, limit int) ([]models.BountyEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BountyEvent
	for _, ev := range s.events {
		if ev.BountyID == bountyID {
			out = append(out, ev)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) eventTypes(bountyID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, ev := range s.events {
		if ev.BountyID == bountyID {
			out = append(out, ev.EventType)
		}
	}
	return out
}

func (s *stubRepo) GetAgentReputation(ctx context.Context, agentID string) (*models.AgentReputation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, ok := s.reps[agentID]
	if !ok {
		return nil, nil
	}
	return &rep, nil
}

func (s *stubRepo) EnsureAgentReputation(ctx context.Context, agentID string) (*models.AgentReputation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, ok := s.reps[agentID]
	if !ok {
		rep = models.AgentReputation{AgentID: agentID}
		s.reps[agentID] = rep
	}
	return &rep, nil
}

func (s *stubRepo) SaveAgentReputation(ctx context.Context, a *models.AgentReputation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reps[a.AgentID] = *a
	return nil
}

func (s *stubRepo) ListAgentLeaderboard(ctx context.Context, limit int) ([]models.AgentReputation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AgentReputation, 0, len(s.reps))
	for _, rep := range s.reps {
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].AgentID < out[j].AgentID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) PutGene(ctx context.Context, g *models.Gene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	if cp.Status == "" {
		cp.Status = models.GeneStatusActive
	}
	s.genes[cp.ID] = cp
	return nil
}

func (s *stubRepo) PutGeneTx(ctx context.Context, tx *gorm.DB, g *models.Gene) error {
	return s.PutGene(ctx, g)
}

func (s *stubRepo) GetGene(ctx context.Context, id string) (*models.Gene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.genes[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (s *stubRepo) ListGenes(ctx context.Context, params repository.ListGenesParams) ([]models.Gene, error) {
	return nil, nil
}

func (s *stubRepo) ListActivePool(ctx context.Context) ([]models.Gene, error) { return nil, nil }

func (s *stubRepo) ArchiveGenesTx(ctx context.Context, tx *gorm.DB, ids []string) (int64, error) {
	return 0, nil
}

func (s *stubRepo) AppendBacktestRecord(ctx context.Context, rec *models.BacktestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	cp.ID = uint64(len(s.records) + 1)
	s.records = append(s.records, cp)
	return nil
}

func (s *stubRepo) AppendBacktestRecordTx(ctx context.Context, tx *gorm.DB, rec *models.BacktestRecord) error {
	return s.AppendBacktestRecord(ctx, rec)
}

func (s *stubRepo) ListBacktestRecords(ctx context.Context, geneID string, limit int) ([]models.BacktestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BacktestRecord
	for _, rec := range s.records {
		if rec.GeneID == geneID {
			out = append(out, rec)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) RecentBacktestRecords(ctx context.Context, geneID string, limit int) ([]models.BacktestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BacktestRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].GeneID == geneID {
			out = append(out, s.records[i])
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) GetPoolState(ctx context.Context) (*models.PoolState, error) { return nil, nil }

func (s *stubRepo) SavePoolStateTx(ctx context.Context, tx *gorm.DB, state *models.PoolState) error {
	return nil
}

func (s *stubRepo) CreateListing(ctx context.Context, l *models.Listing) error { return nil }
func (s *stubRepo) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	return nil, nil
}
func (s *stubRepo) ListListings(ctx context.Context, params repository.ListListingsParams) ([]models.Listing, error) {
	return nil, nil
}
func (s *stubRepo) SetListingStatus(ctx context.Context, id, status string) (bool, error) {
	return false, nil
}
func (s *stubRepo) AppendOrder(ctx context.Context, o *models.Order) error { return nil }
func (s *stubRepo) ListOrdersByListing(ctx context.Context, listingID string, limit int) ([]models.Order, error) {
	return nil, nil
}
