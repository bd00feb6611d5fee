package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"genehub/internal/models"
)

type ListGenesParams struct {
	Limit      int
	Offset     int
	Status     *string
	Passed     *bool
	Generation *int
	OrderBy    string
	Asc        *bool
}

type ListBountiesParams struct {
	Limit     int
	Offset    int
	Status    *string
	Type      *string
	ClaimedBy *string
	OrderBy   string
	Asc       *bool
}

type ListListingsParams struct {
	Limit    int
	Offset   int
	Status   *string
	GeneID   *string
	SellerID *string
	OrderBy  string
	Asc      *bool
}

// Repository is the persistence surface for the gene pool, the bounty
// registry, reputation and the marketplace. Claim and lifecycle mutations are
// guarded single-row updates: they report whether the row actually moved so
// callers can arbitrate races without any cross-record lock.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Genes: put is an idempotent full-record upsert keyed by id; archived
	// genes never reappear in pool listings.
	PutGene(ctx context.Context, g *models.Gene) error
	PutGeneTx(ctx context.Context, tx *gorm.DB, g *models.Gene) error
	GetGene(ctx context.Context, id string) (*models.Gene, error)
	ListGenes(ctx context.Context, params ListGenesParams) ([]models.Gene, error)
	ListActivePool(ctx context.Context) ([]models.Gene, error)
	ArchiveGenesTx(ctx context.Context, tx *gorm.DB, ids []string) (int64, error)

	// Backtest history: append-only. List reads in insertion order;
	// Recent reads newest first for projections and re-validation.
	AppendBacktestRecord(ctx context.Context, rec *models.BacktestRecord) error
	AppendBacktestRecordTx(ctx context.Context, tx *gorm.DB, rec *models.BacktestRecord) error
	ListBacktestRecords(ctx context.Context, geneID string, limit int) ([]models.BacktestRecord, error)
	RecentBacktestRecords(ctx context.Context, geneID string, limit int) ([]models.BacktestRecord, error)

	// Pool state: singleton cycle metadata row.
	GetPoolState(ctx context.Context) (*models.PoolState, error)
	SavePoolStateTx(ctx context.Context, tx *gorm.DB, state *models.PoolState) error

	// Bounties.
	CreateBounty(ctx context.Context, b *models.Bounty) error
	GetBounty(ctx context.Context, id string) (*models.Bounty, error)
	ListBounties(ctx context.Context, params ListBountiesParams) ([]models.Bounty, error)

	// ClaimBounty is the atomic compare-and-set: open -> claimed with
	// claimed_by and claim_expires_at assigned in the same statement. The
	// returned bool is true only for the single caller whose update took.
	ClaimBounty(ctx context.Context, id, agentID string, expiresAt time.Time) (bool, error)

	// SubmitBounty moves claimed -> submitted only when agentID is the
	// current claimant.
	SubmitBounty(ctx context.Context, id, agentID, geneID string) (bool, error)

	// FinalizeBounty moves submitted -> completed|failed.
	FinalizeBounty(ctx context.Context, id, toStatus string) (bool, error)

	// ReleaseClaimIfExpired reverts one overdue claim to open, clearing the
	// claimant. ReleaseExpiredClaims sweeps all overdue claims; ExpireDuePublishes
	// expires open bounties whose publish deadline passed.
	ReleaseClaimIfExpired(ctx context.Context, id string, now time.Time) (bool, error)
	ReleaseExpiredClaims(ctx context.Context, now time.Time) (int64, error)
	ExpireDuePublishes(ctx context.Context, now time.Time) (int64, error)

	AppendBountyEvent(ctx context.Context, ev *models.BountyEvent) error
	ListBountyEvents(ctx context.Context, bountyID string, limit int) ([]models.BountyEvent, error)

	// Agent reputation.
	GetAgentReputation(ctx context.Context, agentID string) (*models.AgentReputation, error)
	EnsureAgentReputation(ctx context.Context, agentID string) (*models.AgentReputation, error)
	SaveAgentReputation(ctx context.Context, a *models.AgentReputation) error
	ListAgentLeaderboard(ctx context.Context, limit int) ([]models.AgentReputation, error)

	// Marketplace.
	CreateListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	ListListings(ctx context.Context, params ListListingsParams) ([]models.Listing, error)
	SetListingStatus(ctx context.Context, id, status string) (bool, error)
	AppendOrder(ctx context.Context, o *models.Order) error
	ListOrdersByListing(ctx context.Context, listingID string, limit int) ([]models.Order, error)
}
