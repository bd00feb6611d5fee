package agentcli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"genehub/internal/client"
	"genehub/internal/cliout"
)

func taskCmd(ctx Context, args []string) error {
	if len(args) == 0 {
		return errors.New("task subcommand required: list|get|claim|submit|resolve|events|watch")
	}
	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("genehubctl task list", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		status := fs.String("status", "open", "status filter (empty for all)")
		limit := fs.Int("limit", 20, "limit")
		_ = fs.Parse(args[1:])

		c := ctx.hubClient()
		tasks, err := c.ListTasks(context.Background(), strings.TrimSpace(*status), *limit)
		if err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, tasks)

	case "get":
		if len(args) < 2 {
			return errors.New("usage: genehubctl task get <id>")
		}
		id := strings.TrimSpace(args[1])
		if id == "" {
			return errors.New("id required")
		}
		c := ctx.hubClient()
		var resp any
		if err := c.Get(context.Background(), "/api/v1/tasks/"+url.PathEscape(id), nil, &resp); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	case "claim":
		if len(args) < 2 {
			return errors.New("usage: genehubctl task claim <id> [--agent <agentId>]")
		}
		id := strings.TrimSpace(args[1])
		fs := flag.NewFlagSet("genehubctl task claim", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		agent := fs.String("agent", "", "acting agent id")
		_ = fs.Parse(args[2:])

		agentID, err := ctx.requireAgent(strings.TrimSpace(*agent))
		if err != nil {
			return err
		}
		c := ctx.authedClient()
		res, err := c.Claim(context.Background(), id, agentID)
		if err != nil {
			return err
		}
		// A lost race prints its reason and exits 0: the hub answered, the
		// agent just did not win.
		out := map[string]any{"ok": res.OK}
		if res.Reason != "" {
			out["reason"] = res.Reason
		}
		if res.ClaimExpiresAt != nil {
			out["claimExpiresAt"] = res.ClaimExpiresAt.UTC().Format(time.RFC3339)
		}
		return cliout.Write(os.Stdout, ctx.Output, out)

	case "submit":
		if len(args) < 2 {
			return errors.New("usage: genehubctl task submit <id> --gene <geneId> [--agent <agentId>]")
		}
		id := strings.TrimSpace(args[1])
		fs := flag.NewFlagSet("genehubctl task submit", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		gene := fs.String("gene", "", "gene id to submit")
		agent := fs.String("agent", "", "acting agent id")
		_ = fs.Parse(args[2:])

		geneID := strings.TrimSpace(*gene)
		if geneID == "" {
			return errors.New("--gene required")
		}
		agentID, err := ctx.requireAgent(strings.TrimSpace(*agent))
		if err != nil {
			return err
		}
		c := ctx.authedClient()
		if err := c.Submit(context.Background(), id, agentID, geneID); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, map[string]any{
			"submitted": true,
			"taskId":    id,
			"geneId":    geneID,
		})

	case "resolve":
		if len(args) < 2 {
			return errors.New("usage: genehubctl task resolve <id> [--accept|--reject]")
		}
		id := strings.TrimSpace(args[1])
		fs := flag.NewFlagSet("genehubctl task resolve", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		accept := fs.Bool("accept", false, "force acceptance")
		reject := fs.Bool("reject", false, "force failure")
		_ = fs.Parse(args[2:])

		body := map[string]any{}
		switch {
		case *accept && *reject:
			return errors.New("--accept and --reject are mutually exclusive")
		case *accept:
			body["accept"] = true
		case *reject:
			body["accept"] = false
		}
		c := ctx.authedClient()
		var resp any
		if err := c.Post(context.Background(), "/api/v1/tasks/"+url.PathEscape(id)+"/resolve", body, &resp); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	case "events":
		if len(args) < 2 {
			return errors.New("usage: genehubctl task events <id>")
		}
		id := strings.TrimSpace(args[1])
		fs := flag.NewFlagSet("genehubctl task events", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		limit := fs.Int("limit", 50, "limit")
		_ = fs.Parse(args[2:])

		q := url.Values{}
		q.Set("limit", fmt.Sprintf("%d", *limit))
		c := ctx.hubClient()
		var resp any
		if err := c.Get(context.Background(), "/api/v1/tasks/"+url.PathEscape(id)+"/events", q, &resp); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	case "watch":
		fs := flag.NewFlagSet("genehubctl task watch", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		interval := fs.Duration("interval", 5*time.Second, "poll interval")
		_ = fs.Parse(args[1:])

		sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		c := ctx.hubClient()
		err := c.PollOpenTasks(sigCtx, *interval, func(_ context.Context, tasks []client.Task) error {
			return cliout.Write(os.Stdout, ctx.Output, tasks)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	default:
		return fmt.Errorf("unknown task subcommand: %s", args[0])
	}
}
