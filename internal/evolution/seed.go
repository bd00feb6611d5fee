package evolution

import (
	"encoding/json"

	"genehub/internal/models"
)

// SeedVersion tags the bundled generation-zero pool. Bump it when the seed
// set below changes so pool_state records which lineage a deployment grew from.
const SeedVersion = "v1"

type seedSpec struct {
	id      string
	name    string
	formula string
	params  map[string]float64
}

var seedSpecs = []seedSpec{
	{
		id:      "seed-v1-trend-ema",
		name:    "EMA trend rider",
		formula: "EMA12 > EMA26 AND Close > SMA50",
		params:  map[string]float64{"fast": 12, "slow": 26, "baseline": 50, "stop_loss": 0.03},
	},
	{
		id:      "seed-v1-rsi-reversion",
		name:    "RSI mean reversion",
		formula: "RSI14 < 30 AND Close < SMA20",
		params:  map[string]float64{"rsi_period": 14, "oversold": 30, "baseline": 20, "take_profit": 0.05},
	},
	{
		id:      "seed-v1-breakout-vol",
		name:    "Volume breakout",
		formula: "Close > High20 AND VolSMA20 > 1.5 * VolSMA60",
		params:  map[string]float64{"channel": 20, "vol_fast": 20, "vol_slow": 60, "vol_ratio": 1.5},
	},
	{
		id:      "seed-v1-momentum-zscore",
		name:    "ZScore momentum",
		formula: "ZScore20 > 1.0 AND RSI14 > 55",
		params:  map[string]float64{"z_period": 20, "z_entry": 1.0, "rsi_period": 14, "rsi_floor": 55},
	},
	{
		id:      "seed-v1-pullback",
		name:    "Trend pullback",
		formula: "EMA21 > EMA55 AND RSI14 < 45 AND Close > EMA55",
		params:  map[string]float64{"fast": 21, "slow": 55, "rsi_ceiling": 45, "stop_loss": 0.04},
	},
	{
		id:      "seed-v1-vol-contraction",
		name:    "Volatility squeeze",
		formula: "ATR14 < 0.8 * ATR50 AND Close > SMA20",
		params:  map[string]float64{"atr_fast": 14, "atr_slow": 50, "squeeze_ratio": 0.8, "baseline": 20},
	},
}

// SeedPool materializes the bundled seed genes at generation zero. IDs are
// stable across calls so re-seeding an emptied pool is idempotent.
func SeedPool() []models.Gene {
	genes := make([]models.Gene, 0, len(seedSpecs))
	for _, s := range seedSpecs {
		params, err := json.Marshal(s.params)
		if err != nil {
			// seedSpecs is a compile-time table of plain float maps.
			panic(err)
		}
		genes = append(genes, models.Gene{
			ID:         s.id,
			Name:       s.name,
			Formula:    s.formula,
			Parameters: params,
			Generation: 0,
			Status:     models.GeneStatusActive,
		})
	}
	return genes
}
