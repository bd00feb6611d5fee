// Package agentcli implements the genehubctl command set: the operator and
// agent surface of the hub API over the typed client.
package agentcli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"genehub/internal/client"
	"genehub/internal/cliout"
)

type Context struct {
	APIBase string
	Token   string
	AgentID string
	Output  cliout.Format
}

// hubClient builds the typed client for one command invocation.
func (ctx Context) hubClient() *client.Client {
	return client.New(client.Options{
		BaseURL: ctx.APIBase,
		Token:   ctx.Token,
	})
}

// requireAgent resolves the acting agent id: --agent flag wins, then the
// ambient context (env or saved credentials).
func (ctx Context) requireAgent(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if ctx.AgentID != "" {
		return ctx.AgentID, nil
	}
	return "", errors.New("agent id required: pass --agent, set GENEHUB_AGENT, or run `genehubctl agent register`")
}

func Usage(w io.Writer) {
	fmt.Fprint(w, `genehubctl <command> <subcommand> [flags]

Global Flags:
  --api-base    Hub API base URL (env: GENEHUB_API_BASE)
  --token       Bearer token (env: GENEHUB_TOKEN)
  --agent       Acting agent id (env: GENEHUB_AGENT)
  --output      json|text (default json)

Commands:
  agent      register/status/leaderboard
  task       list/get/claim/submit/resolve/events/watch
  gene       put/get/list/history
  market     listings/list/order/delist
  evolution  state/run
`)
}

func Dispatch(ctx Context, args []string) error {
	if len(args) == 0 {
		Usage(os.Stderr)
		return errors.New("missing command")
	}
	switch args[0] {
	case "agent":
		return agentCmd(ctx, args[1:])
	case "task":
		return taskCmd(ctx, args[1:])
	case "gene":
		return geneCmd(ctx, args[1:])
	case "market":
		return marketCmd(ctx, args[1:])
	case "evolution":
		return evolutionCmd(ctx, args[1:])
	case "help", "-h", "--help":
		Usage(os.Stdout)
		return nil
	default:
		Usage(os.Stderr)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}
