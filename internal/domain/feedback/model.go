package feedback

import "time"

// MaxVotesPerEmail caps how many requests a single voter email can back.
const MaxVotesPerEmail = 4

const (
	StatusOpen       = "open"
	StatusPlanned    = "planned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusDeclined   = "declined"
)

type FeatureRequest struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Title          string  `gorm:"type:varchar(200);not null" json:"title"`
	Description    string  `gorm:"type:text" json:"description"`
	Status         string  `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	VotesCount     int     `gorm:"not null;default:0" json:"votes_count"`
	SubmitterEmail *string `gorm:"type:varchar(320)" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeatureVote is one voter's backing of one request. Voters are identified
// by a self-reported, unverified email.
type FeatureVote struct {
	ID         uint           `gorm:"primaryKey"`
	RequestID  uint           `gorm:"not null;uniqueIndex:ux_feature_votes_request_voter,priority:1"`
	Request    FeatureRequest `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	VoterEmail string         `gorm:"type:varchar(320);not null;uniqueIndex:ux_feature_votes_request_voter,priority:2;index"`
	CreatedAt  time.Time
}

func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusPlanned, StatusInProgress, StatusCompleted, StatusDeclined:
		return true
	}
	return false
}
