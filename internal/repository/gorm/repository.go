package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"genehub/internal/models"
	"genehub/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- genes -------------------------------------------------------------------

var genePutColumns = []string{
	"name",
	"formula",
	"parameters",
	"generation",
	"parent_ids",
	"backtest_score",
	"passed",
	"status",
	"last_validated_at",
	"updated_at",
}

func (s *Store) PutGene(ctx context.Context, g *models.Gene) error {
	if s == nil || s.db == nil || g == nil {
		return nil
	}
	return putGene(s.db.WithContext(ctx), g)
}

func (s *Store) PutGeneTx(ctx context.Context, tx *gorm.DB, g *models.Gene) error {
	if g == nil {
		return nil
	}
	return putGene(tx.WithContext(ctx), g)
}

func putGene(db *gorm.DB, g *models.Gene) error {
	if strings.TrimSpace(g.ID) == "" {
		return nil
	}
	if g.Status == "" {
		g.Status = models.GeneStatusActive
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(genePutColumns),
	}).Create(g).Error
}

func (s *Store) GetGene(ctx context.Context, id string) (*models.Gene, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Gene
	err := s.db.WithContext(ctx).Model(&models.Gene{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListGenes(ctx context.Context, params repository.ListGenesParams) ([]models.Gene, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Gene{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Passed != nil {
		query = query.Where("passed = ?", *params.Passed)
	}
	if params.Generation != nil {
		query = query.Where("generation = ?", *params.Generation)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Gene
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListActivePool returns every non-archived gene in id order. The evolution
// cycle re-ranks in memory, so no scoring order is applied here.
func (s *Store) ListActivePool(ctx context.Context) ([]models.Gene, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Gene
	if err := s.db.WithContext(ctx).
		Model(&models.Gene{}).
		Where("status = ?", models.GeneStatusActive).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ArchiveGenesTx(ctx context.Context, tx *gorm.DB, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := tx.WithContext(ctx).
		Model(&models.Gene{}).
		Where("id IN ?", ids).
		Where("status = ?", models.GeneStatusActive).
		Update("status", models.GeneStatusArchived)
	return res.RowsAffected, res.Error
}

// --- backtest history ---------------------------------------------------------

func (s *Store) AppendBacktestRecord(ctx context.Context, rec *models.BacktestRecord) error {
	if s == nil || s.db == nil || rec == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Store) AppendBacktestRecordTx(ctx context.Context, tx *gorm.DB, rec *models.BacktestRecord) error {
	if rec == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(rec).Error
}

func (s *Store) ListBacktestRecords(ctx context.Context, geneID string, limit int) ([]models.BacktestRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	geneID = strings.TrimSpace(geneID)
	if geneID == "" {
		return nil, nil
	}
	var items []models.BacktestRecord
	// Insertion order: the history endpoint reads as a chronological audit.
	if err := s.db.WithContext(ctx).
		Model(&models.BacktestRecord{}).
		Where("gene_id = ?", geneID).
		Order("id asc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// RecentBacktestRecords returns the newest runs first. Re-validation and the
// gene projection care about the latest result, not the full audit trail.
func (s *Store) RecentBacktestRecords(ctx context.Context, geneID string, limit int) ([]models.BacktestRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	geneID = strings.TrimSpace(geneID)
	if geneID == "" {
		return nil, nil
	}
	var items []models.BacktestRecord
	if err := s.db.WithContext(ctx).
		Model(&models.BacktestRecord{}).
		Where("gene_id = ?", geneID).
		Order("id desc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- pool state ----------------------------------------------------------------

func (s *Store) GetPoolState(ctx context.Context) (*models.PoolState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PoolState
	err := s.db.WithContext(ctx).
		Model(&models.PoolState{}).
		Where("scope = ?", models.PoolStateScope).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SavePoolStateTx(ctx context.Context, tx *gorm.DB, state *models.PoolState) error {
	if state == nil {
		return nil
	}
	if state.Scope == "" {
		state.Scope = models.PoolStateScope
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"generation",
			"seed_version",
			"last_cycle_at",
			"last_summary",
			"updated_at",
		}),
	}).Create(state).Error
}

// --- bounties -------------------------------------------------------------------

func (s *Store) CreateBounty(ctx context.Context, b *models.Bounty) error {
	if s == nil || s.db == nil || b == nil {
		return nil
	}
	if strings.TrimSpace(b.ID) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Create(b).Error
}

func (s *Store) GetBounty(ctx context.Context, id string) (*models.Bounty, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Bounty
	err := s.db.WithContext(ctx).Model(&models.Bounty{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBounties(ctx context.Context, params repository.ListBountiesParams) ([]models.Bounty, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Bounty{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("type = ?", strings.TrimSpace(*params.Type))
	}
	if params.ClaimedBy != nil && strings.TrimSpace(*params.ClaimedBy) != "" {
		query = query.Where("claimed_by = ?", strings.TrimSpace(*params.ClaimedBy))
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Bounty
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ClaimBounty is the single compare-and-set that arbitrates claim races. The
// WHERE clause re-checks status=open inside the UPDATE itself, so under any
// interleaving at most one caller sees RowsAffected == 1.
func (s *Store) ClaimBounty(ctx context.Context, id, agentID string, expiresAt time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	id = strings.TrimSpace(id)
	agentID = strings.TrimSpace(agentID)
	if id == "" || agentID == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Bounty{}).
		Where("id = ? AND status = ?", id, models.BountyStatusOpen).
		Updates(map[string]any{
			"status":           models.BountyStatusClaimed,
			"claimed_by":       agentID,
			"claim_expires_at": expiresAt.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) SubmitBounty(ctx context.Context, id, agentID, geneID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	id = strings.TrimSpace(id)
	agentID = strings.TrimSpace(agentID)
	geneID = strings.TrimSpace(geneID)
	if id == "" || agentID == "" || geneID == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Bounty{}).
		Where("id = ? AND status = ? AND claimed_by = ?", id, models.BountyStatusClaimed, agentID).
		Updates(map[string]any{
			"status":            models.BountyStatusSubmitted,
			"submitted_gene_id": geneID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FinalizeBounty moves submitted -> completed|failed. claimed_by is cleared:
// it is non-null only while a claim epoch is live, the audit trail keeps who
// submitted.
func (s *Store) FinalizeBounty(ctx context.Context, id, toStatus string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	id = strings.TrimSpace(id)
	if id == "" || !models.BountyTransitionAllowed(models.BountyStatusSubmitted, toStatus) {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Bounty{}).
		Where("id = ? AND status = ?", id, models.BountyStatusSubmitted).
		Updates(map[string]any{
			"status":           toStatus,
			"claimed_by":       nil,
			"claim_expires_at": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) ReleaseClaimIfExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).
		Model(&models.Bounty{}).
		Where("id = ? AND status = ?", id, models.BountyStatusClaimed).
		Where("claim_expires_at IS NOT NULL AND claim_expires_at <= ?", now).
		Updates(map[string]any{
			"status":           models.BountyStatusOpen,
			"claimed_by":       nil,
			"claim_expires_at": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) ReleaseExpiredClaims(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).
		Model(&models.Bounty{}).
		Where("status = ?", models.BountyStatusClaimed).
		Where("claim_expires_at IS NOT NULL AND claim_expires_at <= ?", now).
		Updates(map[string]any{
			"status":           models.BountyStatusOpen,
			"claimed_by":       nil,
			"claim_expires_at": nil,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) ExpireDuePublishes(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).
		Model(&models.Bounty{}).
		Where("status = ?", models.BountyStatusOpen).
		Where("publish_deadline IS NOT NULL AND publish_deadline <= ?", now).
		Update("status", models.BountyStatusExpired)
	return res.RowsAffected, res.Error
}

func (s *Store) AppendBountyEvent(ctx context.Context, ev *models.BountyEvent) error {
	if s == nil || s.db == nil || ev == nil {
		return nil
	}
	if strings.TrimSpace(ev.BountyID) == "" || strings.TrimSpace(ev.EventType) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Create(ev).Error
}

func (s *Store) ListBountyEvents(ctx context.Context, bountyID string, limit int) ([]models.BountyEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	bountyID = strings.TrimSpace(bountyID)
	if bountyID == "" {
		return nil, nil
	}
	var items []models.BountyEvent
	if err := s.db.WithContext(ctx).
		Model(&models.BountyEvent{}).
		Where("bounty_id = ?", bountyID).
		Order("id asc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- agent reputation -------------------------------------------------------------

func (s *Store) GetAgentReputation(ctx context.Context, agentID string) (*models.AgentReputation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, nil
	}
	var item models.AgentReputation
	err := s.db.WithContext(ctx).
		Model(&models.AgentReputation{}).
		Where("agent_id = ?", agentID).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) EnsureAgentReputation(ctx context.Context, agentID string) (*models.AgentReputation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, nil
	}
	item := &models.AgentReputation{AgentID: agentID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_id"}},
		DoNothing: true,
	}).Create(item).Error; err != nil {
		return nil, err
	}
	return s.GetAgentReputation(ctx, agentID)
}

func (s *Store) SaveAgentReputation(ctx context.Context, a *models.AgentReputation) error {
	if s == nil || s.db == nil || a == nil {
		return nil
	}
	if strings.TrimSpace(a.AgentID) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "agent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"submissions",
			"accepted",
			"validations",
			"score",
			"updated_at",
		}),
	}).Create(a).Error
}

func (s *Store) ListAgentLeaderboard(ctx context.Context, limit int) ([]models.AgentReputation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.AgentReputation
	if err := s.db.WithContext(ctx).
		Model(&models.AgentReputation{}).
		Order("score desc, agent_id asc").
		Limit(normalizeLimit(limit, 50)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- marketplace -------------------------------------------------------------------

func (s *Store) CreateListing(ctx context.Context, l *models.Listing) error {
	if s == nil || s.db == nil || l == nil {
		return nil
	}
	if strings.TrimSpace(l.ID) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Create(l).Error
}

func (s *Store) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Listing
	err := s.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListListings(ctx context.Context, params repository.ListListingsParams) ([]models.Listing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Listing{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.GeneID != nil && strings.TrimSpace(*params.GeneID) != "" {
		query = query.Where("gene_id = ?", strings.TrimSpace(*params.GeneID))
	}
	if params.SellerID != nil && strings.TrimSpace(*params.SellerID) != "" {
		query = query.Where("seller_id = ?", strings.TrimSpace(*params.SellerID))
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Listing
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SetListingStatus(ctx context.Context, id, status string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	id = strings.TrimSpace(id)
	status = strings.TrimSpace(status)
	if id == "" || status == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status <> ?", id, status).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) AppendOrder(ctx context.Context, o *models.Order) error {
	if s == nil || s.db == nil || o == nil {
		return nil
	}
	if strings.TrimSpace(o.ListingID) == "" || strings.TrimSpace(o.TraderID) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Create(o).Error
}

func (s *Store) ListOrdersByListing(ctx context.Context, listingID string, limit int) ([]models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return nil, nil
	}
	var items []models.Order
	if err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("listing_id = ?", listingID).
		Order("id asc").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers -----------------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
