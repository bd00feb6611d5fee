package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	BountyStatusOpen      = "open"
	BountyStatusClaimed   = "claimed"
	BountyStatusSubmitted = "submitted"
	BountyStatusCompleted = "completed"
	BountyStatusFailed    = "failed"
	BountyStatusExpired   = "expired"
)

const (
	BountyTypeDiscovery    = "discovery"
	BountyTypeOptimization = "optimization"
	BountyTypeVerification = "verification"
)

// bountyTransitions is the full lifecycle: open -> claimed -> submitted ->
// {completed|failed}, claimed -> open on claim timeout, open -> expired on
// publish deadline. completed, failed and expired are terminal.
var bountyTransitions = map[string]map[string]struct{}{
	BountyStatusOpen: {
		BountyStatusClaimed: {},
		BountyStatusExpired: {},
	},
	BountyStatusClaimed: {
		BountyStatusSubmitted: {},
		BountyStatusOpen:      {},
	},
	BountyStatusSubmitted: {
		BountyStatusCompleted: {},
		BountyStatusFailed:    {},
	},
}

func BountyTransitionAllowed(from, to string) bool {
	next, ok := bountyTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

func ValidBountyType(t string) bool {
	switch t {
	case BountyTypeDiscovery, BountyTypeOptimization, BountyTypeVerification:
		return true
	default:
		return false
	}
}

// Bounty is a unit of paid work agents race to claim. ClaimedBy is non-null
// exactly while status is claimed or submitted; claim mutation goes through
// the coordinator's compare-and-set only.
type Bounty struct {
	ID    string `gorm:"type:varchar(64);primaryKey"`
	Title string `gorm:"type:varchar(200);not null"`
	Type  string `gorm:"type:varchar(20);not null;index"`

	// Requirements holds the validation thresholds a submitted gene must meet.
	Requirements  datatypes.JSON `gorm:"type:jsonb"`
	Reward        int64          `gorm:"not null"`
	MinReputation int64          `gorm:"not null;default:0"`

	Status          string     `gorm:"type:varchar(20);not null;default:'open';index"`
	ClaimedBy       *string    `gorm:"type:varchar(64);index"`
	ClaimExpiresAt  *time.Time `gorm:"type:timestamptz;index"`
	PublishDeadline *time.Time `gorm:"type:timestamptz;index"`
	SubmittedGeneID *string    `gorm:"type:varchar(64)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Bounty) TableName() string {
	return "bounties"
}
