package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"genehub/internal/models"
)

func strPtr(s string) *string       { return &s }
func timePtr(t time.Time) *time.Time { return &t }

func mkOpenBounty(t *testing.T, repo *stubRepo, id, typ string, minRep int64) {
	t.Helper()
	err := repo.CreateBounty(context.Background(), &models.Bounty{
		ID:            id,
		Title:         "find alpha on " + id,
		Type:          typ,
		Reward:        100,
		MinReputation: minRep,
		Status:        models.BountyStatusOpen,
	})
	if err != nil {
		t.Fatalf("create bounty: %v", err)
	}
}

func putBounty(repo *stubRepo, b models.Bounty) {
	repo.mu.Lock()
	repo.bounties[b.ID] = b
	repo.mu.Unlock()
}

func TestCoordinator_Claim_SingleWinnerUnderContention(t *testing.T) {
	repo := newStubRepo()
	mkOpenBounty(t, repo, "b-1", models.BountyTypeDiscovery, 0)
	coord := NewCoordinator(repo, ClaimTimeouts{}, nil, zap.NewNop())

	const agents = 32
	results := make([]ClaimResult, agents)
	errs := make([]error, agents)
	var wg sync.WaitGroup
	for i := 0; i < agents; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = coord.Claim(context.Background(), "b-1", fmt.Sprintf("agent-%02d", i))
		}(i)
	}
	wg.Wait()

	winners := 0
	winner := ""
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("claim %d: %v", i, errs[i])
		}
		if results[i].Won {
			winners++
			winner = fmt.Sprintf("agent-%02d", i)
			if results[i].ClaimExpiresAt == nil || !results[i].ClaimExpiresAt.After(time.Now()) {
				t.Fatalf("winner got bad expiry %v", results[i].ClaimExpiresAt)
			}
			continue
		}
		if results[i].Reason != ReasonAlreadyClaimed {
			t.Fatalf("loser %d reason=%q want=%q", i, results[i].Reason, ReasonAlreadyClaimed)
		}
	}
	if winners != 1 {
		t.Fatalf("winners=%d want=1", winners)
	}

	b, err := repo.GetBounty(context.Background(), "b-1")
	if err != nil || b == nil {
		t.Fatalf("get bounty: %v %v", b, err)
	}
	if b.Status != models.BountyStatusClaimed || b.ClaimedBy == nil || *b.ClaimedBy != winner {
		t.Fatalf("bounty=%+v winner=%s", b, winner)
	}
}

func TestCoordinator_Claim_ReputationTooLow(t *testing.T) {
	repo := newStubRepo()
	mkOpenBounty(t, repo, "b-1", models.BountyTypeDiscovery, 10)
	repo.reps["agent-low"] = models.AgentReputation{AgentID: "agent-low", Score: 5}
	coord := NewCoordinator(repo, ClaimTimeouts{}, nil, zap.NewNop())

	res, err := coord.Claim(context.Background(), "b-1", "agent-low")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Won || res.Reason != ReasonReputationTooLow {
		t.Fatalf("res=%+v", res)
	}

	// The task stays open and untouched.
	b, _ := repo.GetBounty(context.Background(), "b-1")
	if b.Status != models.BountyStatusOpen || b.ClaimedBy != nil {
		t.Fatalf("bounty mutated: %+v", b)
	}
	if evs := repo.eventTypes("b-1"); len(evs) != 0 {
		t.Fatalf("events=%v want none", evs)
	}

	// An agent with no reputation row scores zero.
	res, err = coord.Claim(context.Background(), "b-1", "agent-unknown")
	if err != nil || res.Won || res.Reason != ReasonReputationTooLow {
		t.Fatalf("res=%+v err=%v", res, err)
	}

	// Exactly at the bar is enough.
	repo.reps["agent-fit"] = models.AgentReputation{AgentID: "agent-fit", Score: 10}
	res, err = coord.Claim(context.Background(), "b-1", "agent-fit")
	if err != nil || !res.Won {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}

func TestCoordinator_Claim_NotFound(t *testing.T) {
	repo := newStubRepo()
	coord := NewCoordinator(repo, ClaimTimeouts{}, nil, zap.NewNop())

	res, err := coord.Claim(context.Background(), "missing", "agent-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Won || res.Reason != ReasonNotFound {
		t.Fatalf("res=%+v", res)
	}
}

func TestCoordinator_Claim_TerminalStates(t *testing.T) {
	repo := newStubRepo()
	coord := NewCoordinator(repo, ClaimTimeouts{}, nil, zap.NewNop())

	cases := []struct {
		status string
		reason string
	}{
		{models.BountyStatusCompleted, ReasonTaskFull},
		{models.BountyStatusFailed, ReasonTaskFull},
		{models.BountyStatusExpired, ReasonExpired},
		{models.BountyStatusSubmitted, ReasonAlreadyClaimed},
	}
	for _, tc := range cases {
		id := "b-" + tc.status
		putBounty(repo, models.Bounty{
			ID:        id,
			Title:     "done work",
			Type:      models.BountyTypeDiscovery,
			Reward:    100,
			Status:    tc.status,
			ClaimedBy: strPtr("agent-old"),
		})
		res, err := coord.Claim(context.Background(), id, "agent-new")
		if err != nil {
			t.Fatalf("%s: %v", tc.status, err)
		}
		if res.Won || res.Reason != tc.reason {
			t.Fatalf("%s: res=%+v want reason=%q", tc.status, res, tc.reason)
		}
	}
}

func TestCoordinator_Claim_PublishDeadlinePassed(t *testing.T) {
	repo := newStubRepo()
	putBounty(repo, models.Bounty{
		ID:              "b-1",
		Title:           "stale offer",
		Type:            models.BountyTypeDiscovery,
		Reward:          100,
		Status:          models.BountyStatusOpen,
		PublishDeadline: timePtr(time.Now().UTC().Add(-time.Minute)),
	})
	coord := NewCoordinator(repo, ClaimTimeouts{}, nil, zap.NewNop())

	res, err := coord.Claim(context.Background(), "b-1", "agent-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Won || res.Reason != ReasonExpired {
		t.Fatalf("res=%+v", res)
	}
}

func TestCoordinator_Claim_ReclaimsLapsedClaim(t *testing.T) {
	repo := newStubRepo()
	putBounty(repo, models.Bounty{
		ID:             "b-1",
		Title:          "abandoned work",
		Type:           models.BountyTypeDiscovery,
		Reward:         100,
		Status:         models.BountyStatusClaimed,
		ClaimedBy:      strPtr("agent-gone"),
		ClaimExpiresAt: timePtr(time.Now().UTC().Add(-time.Minute)),
	})
	coord := NewCoordinator(repo, ClaimTimeouts{}, nil, zap.NewNop())

	res, err := coord.Claim(context.Background(), "b-1", "agent-new")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !res.Won {
		t.Fatalf("res=%+v want winner", res)
	}

	b, _ := repo.GetBounty(context.Background(), "b-1")
	if b.ClaimedBy == nil || *b.ClaimedBy != "agent-new" {
		t.Fatalf("claimed_by=%v", b.ClaimedBy)
	}

	evs := repo.eventTypes("b-1")
	if len(evs) != 2 || evs[0] != models.BountyEventClaimExpired || evs[1] != models.BountyEventClaimed {
		t.Fatalf("events=%v", evs)
	}
}

func TestCoordinator_Claim_WindowDependsOnType(t *testing.T) {
	repo := newStubRepo()
	mkOpenBounty(t, repo, "b-verify", models.BountyTypeVerification, 0)
	mkOpenBounty(t, repo, "b-opt", models.BountyTypeOptimization, 0)
	coord := NewCoordinator(repo, ClaimTimeouts{}, nil, zap.NewNop())

	res, err := coord.Claim(context.Background(), "b-verify", "agent-1")
	if err != nil || !res.Won {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	window := time.Until(*res.ClaimExpiresAt)
	if window < 14*time.Minute || window > 16*time.Minute {
		t.Fatalf("verification window=%v want ~15m", window)
	}

	res, err = coord.Claim(context.Background(), "b-opt", "agent-2")
	if err != nil || !res.Won {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	window = time.Until(*res.ClaimExpiresAt)
	if window < 59*time.Minute || window > 61*time.Minute {
		t.Fatalf("optimization window=%v want ~60m", window)
	}
}

func TestClaimTimeouts_For(t *testing.T) {
	var zero ClaimTimeouts
	if got := zero.For("anything"); got != 30*time.Minute {
		t.Fatalf("fallback=%v want=30m", got)
	}
	custom := ClaimTimeouts{Discovery: time.Hour, Optimization: 2 * time.Hour, Verification: 5 * time.Minute}
	if got := custom.For(models.BountyTypeOptimization); got != 2*time.Hour {
		t.Fatalf("optimization=%v", got)
	}
	if got := custom.For(models.BountyTypeVerification); got != 5*time.Minute {
		t.Fatalf("verification=%v", got)
	}
	if got := custom.For("unknown"); got != time.Hour {
		t.Fatalf("unknown=%v want discovery window", got)
	}
}
