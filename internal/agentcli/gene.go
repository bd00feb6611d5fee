package agentcli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"genehub/internal/client"
	"genehub/internal/cliout"
)

func geneCmd(ctx Context, args []string) error {
	if len(args) == 0 {
		return errors.New("gene subcommand required: put|get|list|history")
	}
	switch args[0] {
	case "put":
		fs := flag.NewFlagSet("genehubctl gene put", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		id := fs.String("id", "", "gene id (generated when empty)")
		name := fs.String("name", "", "gene name")
		formula := fs.String("formula", "", "signal formula")
		params := fs.String("params", "{}", "json object of numeric parameters")
		parents := fs.String("parents", "", "comma-separated parent gene ids (exactly two, or none)")
		_ = fs.Parse(args[1:])

		if strings.TrimSpace(*name) == "" || strings.TrimSpace(*formula) == "" {
			return errors.New("--name and --formula required")
		}
		if strings.TrimSpace(*params) == "" {
			*params = "{}"
		}
		if !json.Valid([]byte(*params)) {
			return errors.New("--params must be valid json")
		}
		var paramMap map[string]float64
		if err := json.Unmarshal([]byte(*params), &paramMap); err != nil {
			return errors.New("--params must be a json object of numbers")
		}

		var parentIDs []string
		for _, p := range strings.Split(*parents, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parentIDs = append(parentIDs, p)
			}
		}

		c := ctx.authedClient()
		geneID, err := c.PutGene(context.Background(), client.GeneInput{
			ID:         strings.TrimSpace(*id),
			Name:       strings.TrimSpace(*name),
			Formula:    strings.TrimSpace(*formula),
			Parameters: paramMap,
			ParentIDs:  parentIDs,
		})
		if err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, map[string]any{"geneId": geneID})

	case "get":
		if len(args) < 2 {
			return errors.New("usage: genehubctl gene get <id>")
		}
		id := strings.TrimSpace(args[1])
		if id == "" {
			return errors.New("id required")
		}
		c := ctx.hubClient()
		var resp any
		if err := c.Get(context.Background(), "/api/v1/genes/"+url.PathEscape(id), nil, &resp); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	case "list":
		fs := flag.NewFlagSet("genehubctl gene list", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		status := fs.String("status", "", "active|archived (hub defaults to active)")
		limit := fs.Int("limit", 20, "limit")
		_ = fs.Parse(args[1:])

		q := url.Values{}
		q.Set("limit", fmt.Sprintf("%d", *limit))
		if s := strings.TrimSpace(*status); s != "" {
			q.Set("status", s)
		}
		c := ctx.hubClient()
		var resp any
		if err := c.Get(context.Background(), "/api/v1/genes", q, &resp); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	case "history":
		if len(args) < 2 {
			return errors.New("usage: genehubctl gene history <id>")
		}
		id := strings.TrimSpace(args[1])
		fs := flag.NewFlagSet("genehubctl gene history", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		limit := fs.Int("limit", 20, "limit")
		_ = fs.Parse(args[2:])

		q := url.Values{}
		q.Set("limit", fmt.Sprintf("%d", *limit))
		c := ctx.hubClient()
		var resp any
		if err := c.Get(context.Background(), "/api/v1/genes/"+url.PathEscape(id)+"/history", q, &resp); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	default:
		return fmt.Errorf("unknown gene subcommand: %s", args[0])
	}
}
