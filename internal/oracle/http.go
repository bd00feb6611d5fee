package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"genehub/internal/models"
)

// HTTPClient talks to a backtest engine over HTTP. One POST per gene/market
// pair; the engine's numeric output is taken at face value.
type HTTPClient struct {
	BaseURL string
	Token   string

	HTTP   *http.Client
	Logger *zap.Logger
}

type backtestRequest struct {
	GeneID     string          `json:"gene_id"`
	Name       string          `json:"name"`
	Formula    string          `json:"formula"`
	Parameters json.RawMessage `json:"parameters"`
	Market     string          `json:"market"`
	Period     string          `json:"period"`
}

func (c *HTTPClient) RunBacktest(ctx context.Context, g *models.Gene, market, period string) (Result, error) {
	if c == nil {
		return Result{}, &Error{Market: market, Err: errors.New("http oracle is nil")}
	}
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return Result{}, &Error{Market: market, Err: errors.New("oracle base url is empty")}
	}
	if g == nil {
		return Result{}, &Error{Market: market, Err: errors.New("gene is nil")}
	}

	payload := backtestRequest{
		GeneID:     g.ID,
		Name:       g.Name,
		Formula:    g.Formula,
		Parameters: json.RawMessage(g.Parameters),
		Market:     market,
		Period:     period,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, &Error{Market: market, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/backtest", bytes.NewReader(body))
	if err != nil {
		return Result{}, &Error{Market: market, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := strings.TrimSpace(c.Token); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Result{}, &Error{Market: market, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, &Error{Market: market, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &Error{
			Market: market,
			Err:    fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
		}
	}

	var out Result
	if err := json.Unmarshal(b, &out); err != nil {
		return Result{}, &Error{Market: market, Err: err}
	}
	if c.Logger != nil {
		c.Logger.Debug("oracle backtest",
			zap.String("gene_id", g.ID),
			zap.String("market", market),
			zap.Float64("sharpe", out.Sharpe),
		)
	}
	return out, nil
}

func (c *HTTPClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 30 * time.Second}
}
