// Package evolution runs the validate/cull/breed loop over the gene pool.
package evolution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"genehub/internal/events"
	"genehub/internal/gate"
	"genehub/internal/models"
	"genehub/internal/oracle"
	"genehub/internal/repository"
)

const (
	DefaultSurvivalRate   = 0.7
	DefaultOffspringCount = 5

	// SentinelScore marks a backtest that never produced numbers. It sits far
	// below any plausible sharpe or drawdown so sentinel rows rank last.
	SentinelScore = -999

	minElites     = 2
	eliteFraction = 0.2
)

var DefaultMarkets = []string{"BTC-USD", "ETH-USD", "SOL-USD"}

// ErrCycleInProgress is returned when Run is called while another run holds
// the pool.
var ErrCycleInProgress = errors.New("evolution: cycle already running")

type Config struct {
	Markets        []string
	Period         string
	SurvivalRate   float64
	OffspringCount int
	OracleTimeout  time.Duration
	Thresholds     gate.Thresholds
}

// Summary describes one completed cycle. Seeded runs only populate the pool
// and skip validation entirely.
type Summary struct {
	Seeded          bool `json:"seeded,omitempty"`
	Generation      int  `json:"generation"`
	SurvivorCount   int  `json:"survivor_count"`
	EliminatedCount int  `json:"eliminated_count"`
	OffspringCount  int  `json:"offspring_count"`
	PoolSize        int  `json:"pool_size"`
}

type Cycle struct {
	repo   repository.Repository
	oracle oracle.Oracle
	cfg    Config
	hub    *events.Hub
	logger *zap.Logger

	running atomic.Bool
	rng     *rand.Rand
	newID   func() string
}

func New(repo repository.Repository, orc oracle.Oracle, cfg Config, hub *events.Hub, logger *zap.Logger) *Cycle {
	if cfg.SurvivalRate <= 0 || cfg.SurvivalRate > 1 {
		cfg.SurvivalRate = DefaultSurvivalRate
	}
	if cfg.OffspringCount <= 0 {
		cfg.OffspringCount = DefaultOffspringCount
	}
	if cfg.Thresholds == (gate.Thresholds{}) {
		cfg.Thresholds = gate.DefaultThresholds()
	}
	if len(cfg.Markets) == 0 {
		cfg.Markets = DefaultMarkets
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cycle{
		repo:   repo,
		oracle: orc,
		cfg:    cfg,
		hub:    hub,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		newID:  uuid.NewString,
	}
}

// Running reports whether a cycle currently holds the pool.
func (c *Cycle) Running() bool {
	return c.running.Load()
}

// candidate pairs a pool gene with its fresh gate outcome for ranking.
type candidate struct {
	gene    *models.Gene
	outcome gate.Outcome
	sharpe  float64
}

// Run executes one full cycle: revalidate every active gene, cull the bottom
// of the ranking, breed offspring from the elites and commit the new pool
// generation atomically. Only one run may be in flight at a time.
func (c *Cycle) Run(ctx context.Context) (Summary, error) {
	if !c.running.CompareAndSwap(false, true) {
		return Summary{}, ErrCycleInProgress
	}
	defer c.running.Store(false)

	pool, err := c.repo.ListActivePool(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list active pool: %w", err)
	}
	state, err := c.repo.GetPoolState(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load pool state: %w", err)
	}

	if len(pool) == 0 {
		return c.seed(ctx, state)
	}

	cands := make([]candidate, 0, len(pool))
	for i := range pool {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		g := &pool[i]
		out := c.validate(ctx, g)
		rec, err := applyOutcome(g, out, time.Now().UTC())
		if err != nil {
			return Summary{}, err
		}
		if err := c.repo.PutGene(ctx, g); err != nil {
			return Summary{}, fmt.Errorf("persist validation for gene %s: %w", g.ID, err)
		}
		if err := c.repo.AppendBacktestRecord(ctx, rec); err != nil {
			return Summary{}, fmt.Errorf("append history for gene %s: %w", g.ID, err)
		}
		cands = append(cands, candidate{gene: g, outcome: out, sharpe: rankingSharpe(out)})
	}

	// Rank best first. Ties prefer the older lineage, then the lexically
	// smaller id, so the ordering is stable across runs.
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.sharpe != b.sharpe {
			return a.sharpe > b.sharpe
		}
		if a.gene.Generation != b.gene.Generation {
			return a.gene.Generation < b.gene.Generation
		}
		return a.gene.ID < b.gene.ID
	})

	keep := int(math.Ceil(c.cfg.SurvivalRate * float64(len(cands))))
	if keep > len(cands) {
		keep = len(cands)
	}
	survivors, culled := cands[:keep], cands[keep:]

	offspring, offspringRecs, err := c.breed(ctx, survivors)
	if err != nil {
		return Summary{}, err
	}

	if state == nil {
		state = &models.PoolState{Scope: models.PoolStateScope, SeedVersion: SeedVersion}
	}
	state.Generation++

	summary := Summary{
		Generation:      state.Generation,
		SurvivorCount:   len(survivors),
		EliminatedCount: len(culled),
		OffspringCount:  len(offspring),
		PoolSize:        len(survivors) + len(offspring),
	}
	rawSummary, err := json.Marshal(summary)
	if err != nil {
		return Summary{}, fmt.Errorf("encode cycle summary: %w", err)
	}
	now := time.Now().UTC()
	state.LastCycleAt = &now
	state.LastSummary = rawSummary

	culledIDs := make([]string, 0, len(culled))
	for _, cand := range culled {
		culledIDs = append(culledIDs, cand.gene.ID)
	}

	err = c.repo.InTx(ctx, func(tx *gorm.DB) error {
		if len(culledIDs) > 0 {
			if _, err := c.repo.ArchiveGenesTx(ctx, tx, culledIDs); err != nil {
				return fmt.Errorf("archive culled genes: %w", err)
			}
		}
		for i, child := range offspring {
			if err := c.repo.PutGeneTx(ctx, tx, child); err != nil {
				return fmt.Errorf("admit offspring %s: %w", child.ID, err)
			}
			if err := c.repo.AppendBacktestRecordTx(ctx, tx, offspringRecs[i]); err != nil {
				return fmt.Errorf("record offspring %s: %w", child.ID, err)
			}
		}
		return c.repo.SavePoolStateTx(ctx, tx, state)
	})
	if err != nil {
		return Summary{}, err
	}

	for _, child := range offspring {
		c.hub.Publish(events.Event{
			Type:     events.TypeGeneAdmitted,
			EntityID: child.ID,
			Payload:  map[string]any{"generation": child.Generation},
		})
	}
	c.hub.Publish(events.Event{
		Type: events.TypeCycleCompleted,
		Payload: map[string]any{
			"generation": summary.Generation,
			"survivors":  summary.SurvivorCount,
			"eliminated": summary.EliminatedCount,
			"offspring":  summary.OffspringCount,
			"pool_size":  summary.PoolSize,
		},
	})
	c.logger.Info("evolution cycle completed",
		zap.Int("generation", summary.Generation),
		zap.Int("survivors", summary.SurvivorCount),
		zap.Int("eliminated", summary.EliminatedCount),
		zap.Int("offspring", summary.OffspringCount),
		zap.Int("pool_size", summary.PoolSize))
	return summary, nil
}

// seed populates an empty pool with the bundled generation-zero set.
func (c *Cycle) seed(ctx context.Context, state *models.PoolState) (Summary, error) {
	genes := SeedPool()
	if state == nil {
		state = &models.PoolState{Scope: models.PoolStateScope}
	}
	state.Generation = 0
	state.SeedVersion = SeedVersion

	summary := Summary{Seeded: true, PoolSize: len(genes)}
	rawSummary, err := json.Marshal(summary)
	if err != nil {
		return Summary{}, fmt.Errorf("encode cycle summary: %w", err)
	}
	now := time.Now().UTC()
	state.LastCycleAt = &now
	state.LastSummary = rawSummary

	err = c.repo.InTx(ctx, func(tx *gorm.DB) error {
		for i := range genes {
			if err := c.repo.PutGeneTx(ctx, tx, &genes[i]); err != nil {
				return fmt.Errorf("seed gene %s: %w", genes[i].ID, err)
			}
		}
		return c.repo.SavePoolStateTx(ctx, tx, state)
	})
	if err != nil {
		return Summary{}, err
	}

	c.logger.Info("seeded gene pool",
		zap.Int("genes", len(genes)),
		zap.String("seed_version", SeedVersion))
	return summary, nil
}

// breed crosses random elite pairs until OffspringCount attempts are spent.
// Children that fail the gate are discarded without a trace.
func (c *Cycle) breed(ctx context.Context, survivors []candidate) ([]*models.Gene, []*models.BacktestRecord, error) {
	eliteCount := int(eliteFraction * float64(len(survivors)))
	if eliteCount < minElites {
		eliteCount = minElites
	}
	if eliteCount > len(survivors) {
		eliteCount = len(survivors)
	}
	elites := survivors[:eliteCount]
	if len(elites) < 2 {
		return nil, nil, nil
	}

	var (
		offspring []*models.Gene
		recs      []*models.BacktestRecord
	)
	for attempt := 0; attempt < c.cfg.OffspringCount; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		a, b := c.pickPair(elites)
		child, err := Crossover(a.gene, b.gene, c.newID())
		if err != nil {
			c.logger.Warn("crossover rejected", zap.Error(err))
			continue
		}
		out := c.validate(ctx, child)
		if !out.Passed {
			c.logger.Debug("offspring failed gate",
				zap.String("gene_id", child.ID),
				zap.String("reason", out.Reason))
			continue
		}
		rec, err := applyOutcome(child, out, time.Now().UTC())
		if err != nil {
			return nil, nil, err
		}
		offspring = append(offspring, child)
		recs = append(recs, rec)
	}
	return offspring, recs, nil
}

func (c *Cycle) pickPair(elites []candidate) (candidate, candidate) {
	i := c.rng.Intn(len(elites))
	j := c.rng.Intn(len(elites) - 1)
	if j >= i {
		j++
	}
	return elites[i], elites[j]
}

// validate backtests a gene on every configured market and feeds the results
// through the gate. Oracle failures become sentinel rows, never run errors.
func (c *Cycle) validate(ctx context.Context, g *models.Gene) gate.Outcome {
	results := make([]gate.MarketResult, 0, len(c.cfg.Markets))
	for _, market := range c.cfg.Markets {
		res, err := c.runBacktest(ctx, g, market)
		if err != nil {
			c.logger.Warn("backtest failed",
				zap.String("gene_id", g.ID),
				zap.String("market", market),
				zap.Error(err))
			results = append(results, gate.MarketResult{
				Market:       market,
				Sharpe:       SentinelScore,
				MaxDrawdown:  SentinelScore,
				WinRate:      0,
				AnnualReturn: SentinelScore,
				Error:        err.Error(),
			})
			continue
		}
		results = append(results, gate.MarketResult{
			Market:       market,
			Sharpe:       res.Sharpe,
			MaxDrawdown:  res.MaxDrawdown,
			WinRate:      res.WinRate,
			AnnualReturn: res.AnnualReturn,
		})
	}
	return gate.Evaluate(c.cfg.Thresholds, results)
}

func (c *Cycle) runBacktest(ctx context.Context, g *models.Gene, market string) (oracle.Result, error) {
	if c.cfg.OracleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.OracleTimeout)
		defer cancel()
	}
	return c.oracle.RunBacktest(ctx, g, market, c.cfg.Period)
}

// applyOutcome stamps the gate result onto the gene and builds its history
// row. The gene is mutated in place; persistence is the caller's business.
func applyOutcome(g *models.Gene, out gate.Outcome, now time.Time) (*models.BacktestRecord, error) {
	score := models.BacktestScore{
		Sharpe:       out.Score.Sharpe,
		MaxDrawdown:  out.Score.MaxDrawdown,
		WinRate:      out.Score.WinRate,
		AnnualReturn: out.Score.AnnualReturn,
	}
	if out.Markets == 0 {
		// WinRate is a rate; zero is its floor.
		score = models.BacktestScore{Sharpe: SentinelScore, MaxDrawdown: SentinelScore, AnnualReturn: SentinelScore}
	}
	rawScore, err := json.Marshal(score)
	if err != nil {
		return nil, fmt.Errorf("encode score for gene %s: %w", g.ID, err)
	}
	rawBreakdown, err := json.Marshal(out.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("encode breakdown for gene %s: %w", g.ID, err)
	}

	g.BacktestScore = rawScore
	g.Passed = out.Passed
	g.LastValidatedAt = &now

	return &models.BacktestRecord{
		GeneID:     g.ID,
		Generation: g.Generation,
		Score:      rawScore,
		Breakdown:  rawBreakdown,
		Passed:     out.Passed,
		FailReason: out.Reason,
	}, nil
}

func rankingSharpe(out gate.Outcome) float64 {
	if out.Markets == 0 {
		return SentinelScore
	}
	return out.Score.Sharpe
}
