package agentcli

import (
	"context"
	"strings"
	"time"

	"genehub/internal/client"
)

const refreshSkew = 2 * time.Minute

// authedClient returns the client for mutating calls. An explicit token
// (flag/env) is trusted as-is; otherwise the persisted token is used and,
// when missing or about to expire, renewed by re-registering the agent,
// which rotates the hub session. Renewal failures degrade to an
// unauthenticated client: a hub with auth disabled accepts it, one with auth
// enabled answers 401.
func (ctx Context) authedClient() *client.Client {
	c := ctx.hubClient()
	if strings.TrimSpace(ctx.Token) != "" {
		return c
	}

	cred, err := LoadCredentials()
	if err != nil {
		return c
	}

	tok := strings.TrimSpace(cred.Token)
	exp, hasExp := cred.ExpiresAtTime()

	needsRenew := tok == ""
	if !needsRenew && hasExp && !exp.IsZero() && time.Until(exp) < refreshSkew {
		needsRenew = true
	}
	if !needsRenew {
		c.SetToken(tok)
		return c
	}

	agentID := strings.TrimSpace(ctx.AgentID)
	if agentID == "" {
		agentID = strings.TrimSpace(cred.AgentID)
	}
	if agentID == "" {
		return c
	}

	res, err := c.Register(context.Background(), agentID)
	if err != nil || res.Token == "" {
		return c
	}
	cred.AgentID = agentID
	cred.Token = res.Token
	if res.TokenExpiresAt != nil {
		cred.ExpiresAt = res.TokenExpiresAt.UTC().Format(time.RFC3339)
	}
	_ = SaveCredentials(cred)

	// Register installed the fresh token on the client already.
	return c
}
