package agentcli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"genehub/internal/cliout"
)

func evolutionCmd(ctx Context, args []string) error {
	if len(args) == 0 {
		return errors.New("evolution subcommand required: state|run")
	}
	switch args[0] {
	case "state":
		c := ctx.hubClient()
		var resp any
		if err := c.Get(context.Background(), "/api/v1/evolution/state", nil, &resp); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	case "run":
		c := ctx.authedClient()
		var resp any
		if err := c.Post(context.Background(), "/api/v1/evolution/run", nil, &resp); err != nil {
			return err
		}
		return cliout.Write(os.Stdout, ctx.Output, resp)

	default:
		return fmt.Errorf("unknown evolution subcommand: %s", args[0])
	}
}
