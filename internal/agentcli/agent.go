package agentcli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"genehub/internal/cliout"
)

func agentCmd(ctx Context, args []string) error {
	if len(args) == 0 {
		return errors.New("agent subcommand required: register|status|leaderboard")
	}
	switch args[0] {
	case "register":
		fs := flag.NewFlagSet("genehubctl agent register", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		id := fs.String("id", "", "agent id (generated when empty)")
		_ = fs.Parse(args[1:])

		agentID := strings.TrimSpace(*id)
		if agentID == "" {
			agentID = "agent-" + uuid.NewString()
		}

		c := ctx.hubClient()
		res, err := c.Register(context.Background(), agentID)
		if err != nil {
			return err
		}

		cred, _ := LoadCredentials()
		cred.AgentID = agentID
		if res.Token != "" {
			cred.Token = res.Token
		}
		if res.TokenExpiresAt != nil {
			cred.ExpiresAt = res.TokenExpiresAt.UTC().Format(time.RFC3339)
		}
		_ = SaveCredentials(cred)

		out := map[string]any{"agentId": agentID}
		if res.Token != "" {
			out["token"] = res.Token
			out["tokenExpiresAt"] = cred.ExpiresAt
		}
		return cliout.Write(os.Stdout, ctx.Output, out)

	case "status":
		fs := flag.NewFlagSet("genehubctl agent status", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		agent := fs.String("agent", "", "agent id (defaults to the acting agent)")
		_ = fs.Parse(args[1:])

		agentID, err := ctx.requireAgent(strings.TrimSpace(*agent))
		if err != nil {
			return err
		}
		c := ctx.hubClient()
		var resp any
		if err := c.Get(context.Background(), "/api/v1/agents/"+url.PathEscape(agentID), nil, &resp); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	case "leaderboard":
		fs := flag.NewFlagSet("genehubctl agent leaderboard", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		limit := fs.Int("limit", 20, "limit")
		_ = fs.Parse(args[1:])

		q := url.Values{}
		q.Set("limit", fmt.Sprintf("%d", *limit))
		c := ctx.hubClient()
		var resp any
		if err := c.Get(context.Background(), "/api/v1/agents/leaderboard", q, &resp); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	default:
		return fmt.Errorf("unknown agent subcommand: %s", args[0])
	}
}
