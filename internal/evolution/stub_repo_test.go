package evolution

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"genehub/internal/models"
	"genehub/internal/repository"
)

// stubRepo is an in-memory Repository for cycle tests. Only the gene pool
// surface carries real behavior; the registry and marketplace methods exist
// to satisfy the interface.
type stubRepo struct {
	mu      sync.Mutex
	genes   map[string]models.Gene
	records []models.BacktestRecord
	state   *models.PoolState

	putErr error
}

var _ repository.Repository = (*stubRepo)(nil)

func newStubRepo() *stubRepo {
	return &stubRepo{genes: map[string]models.Gene{}}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubRepo) PutGene(ctx context.Context, g *models.Gene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
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
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Gene, 0, len(s.genes))
	for _, g := range s.genes {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) ListActivePool(ctx context.Context) ([]models.Gene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Gene, 0, len(s.genes))
	for _, g := range s.genes {
		if g.Status == models.GeneStatusActive {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) ArchiveGenesTx(ctx context.Context, tx *gorm.DB, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		g, ok := s.genes[id]
		if !ok || g.Status != models.GeneStatusActive {
			continue
		}
		g.Status = models.GeneStatusArchived
		s.genes[id] = g
		n++
	}
	return n, nil
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

func (s *stubRepo) GetPoolState(ctx context.Context) (*models.PoolState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, nil
	}
	cp := *s.state
	return &cp, nil
}

func (s *stubRepo) SavePoolStateTx(ctx context.Context, tx *gorm.DB, state *models.PoolState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *state
	s.state = &cp
	return nil
}

func (s *stubRepo) CreateBounty(ctx context.Context, b *models.Bounty) error { return nil }
func (s *stubRepo) GetBounty(ctx context.Context, id string) (*models.Bounty, error) {
	return nil, nil
}
func (s *stubRepo) ListBounties(ctx context.Context, params repository.ListBountiesParams) ([]models.Bounty, error) {
	return nil, nil
}
func (s *stubRepo) ClaimBounty(ctx context.Context, id, agentID string, expiresAt time.Time) (bool, error) {
	return false, nil
}
func (s *stubRepo) SubmitBounty(ctx context.Context, id, agentID, geneID string) (bool, error) {
	return false, nil
}
func (s *stubRepo) FinalizeBounty(ctx context.Context, id, toStatus string) (bool, error) {
	return false, nil
}
func (s *stubRepo) ReleaseClaimIfExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	return false, nil
}
func (s *stubRepo) ReleaseExpiredClaims(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
func (s *stubRepo) ExpireDuePublishes(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
func (s *stubRepo) AppendBountyEvent(ctx context.Context, ev *models.BountyEvent) error { return nil }
func (s *stubRepo) ListBountyEvents(ctx context.Context, bountyID string, limit int) ([]models.BountyEvent, error) {
	return nil, nil
}
func (s *stubRepo) GetAgentReputation(ctx context.Context, agentID string) (*models.AgentReputation, error) {
	return nil, nil
}
func (s *stubRepo) EnsureAgentReputation(ctx context.Context, agentID string) (*models.AgentReputation, error) {
	return nil, nil
}
func (s *stubRepo) SaveAgentReputation(ctx context.Context, a *models.AgentReputation) error {
	return nil
}
func (s *stubRepo) ListAgentLeaderboard(ctx context.Context, limit int) ([]models.AgentReputation, error) {
	return nil, nil
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
