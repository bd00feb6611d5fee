// Package oracle wraps the external backtest engine. The hub owns none of the
// numerical methodology: genes go out, metric vectors come back.
package oracle

import (
	"context"
	"fmt"

	"genehub/internal/models"
)

// Result is the metric vector for one gene on one market window.
type Result struct {
	Sharpe       float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	AnnualReturn float64 `json:"annual_return"`
}

// Oracle scores a gene against a single market window. Implementations may be
// slow and may fail; callers bound each invocation with the context and treat
// any error as a per-market failure, never as a fatal condition.
type Oracle interface {
	RunBacktest(ctx context.Context, g *models.Gene, market, period string) (Result, error)
}

// Error is a failed oracle invocation. It is recoverable by contract: callers
// record it as a failing score and keep going.
type Error struct {
	Market string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle: market %s: %v", e.Market, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
