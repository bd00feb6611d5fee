package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"genehub/internal/agentcli"
	"genehub/internal/cliout"
)

func main() {
	var (
		apiBase = flag.String("api-base", "", "Hub API base URL (env: GENEHUB_API_BASE)")
		token   = flag.String("token", "", "Bearer token (env: GENEHUB_TOKEN)")
		agent   = flag.String("agent", "", "Acting agent id (env: GENEHUB_AGENT)")
		outFmt  = flag.String("output", "json", "Output format: json|text")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		agentcli.Usage(os.Stderr)
		os.Exit(2)
	}

	ctx := agentcli.Context{
		Output: cliout.Format(strings.TrimSpace(*outFmt)),
	}

	if v := strings.TrimSpace(*apiBase); v != "" {
		ctx.APIBase = strings.TrimRight(v, "/")
	} else if v := strings.TrimSpace(os.Getenv("GENEHUB_API_BASE")); v != "" {
		ctx.APIBase = strings.TrimRight(v, "/")
	}

	// Token resolution order: flag, then env. Persisted credentials are
	// picked up per-command so near-expiry tokens get renewed first.
	if v := strings.TrimSpace(*token); v != "" {
		ctx.Token = v
	} else if v := strings.TrimSpace(os.Getenv("GENEHUB_TOKEN")); v != "" {
		ctx.Token = v
	}

	// Acting agent id: flag, env, then saved credentials.
	if v := strings.TrimSpace(*agent); v != "" {
		ctx.AgentID = v
	} else if v := strings.TrimSpace(os.Getenv("GENEHUB_AGENT")); v != "" {
		ctx.AgentID = v
	} else if cred, err := agentcli.LoadCredentials(); err == nil {
		ctx.AgentID = strings.TrimSpace(cred.AgentID)
	}

	if err := agentcli.Dispatch(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
