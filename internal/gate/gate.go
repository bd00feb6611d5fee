// Package gate applies pass/fail thresholds to oracle-returned score vectors.
// Evaluate is a pure function: no clock, no randomness, no I/O, so identical
// inputs always produce identical outcomes.
package gate

import "strings"

const (
	ReasonAllMarketsErrored = "all_markets_errored"
	ReasonSharpeBelowMin    = "sharpe_below_min"
	ReasonDrawdownBelowMin  = "drawdown_below_floor"
	ReasonWinRateBelowMin   = "win_rate_below_min"
)

// Thresholds is the pass policy. MaxDrawdownFloor follows the negative-signed
// drawdown convention: a drawdown of -0.35 is worse than -0.10, and the check
// is a plain numeric >=, never absolute value.
type Thresholds struct {
	MinSharpe        float64 `json:"min_sharpe" mapstructure:"min_sharpe"`
	MaxDrawdownFloor float64 `json:"max_drawdown_floor" mapstructure:"max_drawdown_floor"`
	MinWinRate       float64 `json:"min_win_rate" mapstructure:"min_win_rate"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSharpe:        1.0,
		MaxDrawdownFloor: -0.20,
		MinWinRate:       0.50,
	}
}

// MarketResult is one oracle invocation's outcome for a single market window.
// A non-empty Error marks the entry as failed; its numeric fields are ignored
// by aggregation.
type MarketResult struct {
	Market       string  `json:"market"`
	Sharpe       float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	AnnualReturn float64 `json:"annual_return"`
	Error        string  `json:"error,omitempty"`
}

// Score is the arithmetic mean of the surviving per-market results.
type Score struct {
	Sharpe       float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	AnnualReturn float64 `json:"annual_return"`
}

type Outcome struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
	Score  Score  `json:"score"`

	// Markets is the number of results that survived the error filter.
	Markets   int            `json:"markets"`
	Breakdown []MarketResult `json:"breakdown"`
}

// Evaluate drops errored entries, averages the rest and checks every
// threshold. All checks must hold for a pass; failed checks are reported in a
// fixed order so outcomes stay deterministic.
func Evaluate(th Thresholds, results []MarketResult) Outcome {
	breakdown := make([]MarketResult, len(results))
	copy(breakdown, results)

	var sum Score
	survivors := 0
	for _, r := range results {
		if r.Error != "" {
			continue
		}
		sum.Sharpe += r.Sharpe
		sum.MaxDrawdown += r.MaxDrawdown
		sum.WinRate += r.WinRate
		sum.AnnualReturn += r.AnnualReturn
		survivors++
	}
	if survivors == 0 {
		return Outcome{
			Passed:    false,
			Reason:    ReasonAllMarketsErrored,
			Markets:   0,
			Breakdown: breakdown,
		}
	}

	n := float64(survivors)
	mean := Score{
		Sharpe:       sum.Sharpe / n,
		MaxDrawdown:  sum.MaxDrawdown / n,
		WinRate:      sum.WinRate / n,
		AnnualReturn: sum.AnnualReturn / n,
	}

	var failed []string
	if mean.Sharpe < th.MinSharpe {
		failed = append(failed, ReasonSharpeBelowMin)
	}
	if mean.MaxDrawdown < th.MaxDrawdownFloor {
		failed = append(failed, ReasonDrawdownBelowMin)
	}
	if mean.WinRate < th.MinWinRate {
		failed = append(failed, ReasonWinRateBelowMin)
	}

	return Outcome{
		Passed:    len(failed) == 0,
		Reason:    strings.Join(failed, ","),
		Score:     mean,
		Markets:   survivors,
		Breakdown: breakdown,
	}
}
