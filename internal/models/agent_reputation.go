package models

import "time"

// AgentReputation is created on an agent's first successful claim or
// submission and only ever grows; rows are never deleted.
type AgentReputation struct {
	AgentID string `gorm:"type:varchar(64);primaryKey"`

	Submissions int64 `gorm:"not null;default:0"`
	Accepted    int64 `gorm:"not null;default:0"`
	Validations int64 `gorm:"not null;default:0"`

	// Score is derived from the counters and stored for leaderboard ordering.
	Score int64 `gorm:"not null;default:0;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (AgentReputation) TableName() string {
	return "agent_reputations"
}

// RecomputeScore refreshes the stored score from the counters.
func (a *AgentReputation) RecomputeScore() {
	a.Score = a.Accepted*10 + a.Validations*2
}

// Accuracy is accepted/submissions, 0 when nothing was submitted yet.
func (a *AgentReputation) Accuracy() float64 {
	if a.Submissions == 0 {
		return 0
	}
	return float64(a.Accepted) / float64(a.Submissions)
}
