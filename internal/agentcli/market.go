package agentcli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"genehub/internal/cliout"
)

func marketCmd(ctx Context, args []string) error {
	if len(args) == 0 {
		return errors.New("market subcommand required: listings|list|order|delist")
	}
	switch args[0] {
	case "listings":
		fs := flag.NewFlagSet("genehubctl market listings", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		status := fs.String("status", "", "active|delisted (empty for all)")
		gene := fs.String("gene", "", "gene id filter")
		limit := fs.Int("limit", 20, "limit")
		_ = fs.Parse(args[1:])

		q := url.Values{}
		q.Set("limit", fmt.Sprintf("%d", *limit))
		if s := strings.TrimSpace(*status); s != "" {
			q.Set("status", s)
		}
		if g := strings.TrimSpace(*gene); g != "" {
			q.Set("gene_id", g)
		}
		c := ctx.hubClient()
		var resp any
		if err := c.Get(context.Background(), "/api/v1/market/listings", q, &resp); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	case "list":
		// Puts a gene up for sale; the seller is the acting agent.
		fs := flag.NewFlagSet("genehubctl market list", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		gene := fs.String("gene", "", "gene id to list")
		price := fs.String("price", "", "asking price (decimal)")
		agent := fs.String("agent", "", "acting agent id")
		_ = fs.Parse(args[1:])

		geneID := strings.TrimSpace(*gene)
		askPrice := strings.TrimSpace(*price)
		if geneID == "" || askPrice == "" {
			return errors.New("--gene and --price required")
		}
		sellerID, err := ctx.requireAgent(strings.TrimSpace(*agent))
		if err != nil {
			return err
		}
		c := ctx.authedClient()
		var resp any
		err = c.Post(context.Background(), "/api/v1/market/listings", map[string]string{
			"geneId":   geneID,
			"sellerId": sellerID,
			"price":    askPrice,
		}, &resp)
		if err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	case "order":
		fs := flag.NewFlagSet("genehubctl market order", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		listing := fs.String("listing", "", "listing id")
		price := fs.String("price", "", "bid price (decimal)")
		agent := fs.String("agent", "", "acting agent id")
		_ = fs.Parse(args[1:])

		listingID := strings.TrimSpace(*listing)
		bidPrice := strings.TrimSpace(*price)
		if listingID == "" || bidPrice == "" {
			return errors.New("--listing and --price required")
		}
		traderID, err := ctx.requireAgent(strings.TrimSpace(*agent))
		if err != nil {
			return err
		}
		c := ctx.authedClient()
		var resp any
		err = c.Post(context.Background(), "/api/v1/market/orders", map[string]string{
			"listingId": listingID,
			"traderId":  traderID,
			"price":     bidPrice,
		}, &resp)
		if err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	case "delist":
		if len(args) < 2 {
			return errors.New("usage: genehubctl market delist <listingId>")
		}
		id := strings.TrimSpace(args[1])
		if id == "" {
			return errors.New("listing id required")
		}
		c := ctx.authedClient()
		var resp any
		if err := c.Post(context.Background(), "/api/v1/market/listings/"+url.PathEscape(id)+"/delist", nil, &resp); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	default:
		return fmt.Errorf("unknown market subcommand: %s", args[0])
	}
}
