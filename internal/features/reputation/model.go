package reputation

import "time"

// Profile tracks an account's standing. Base reputation moves with vote
// and report outcomes; staked reputation is derived from the account's
// active stakes and recomputed on every stake change.
type Profile struct {
	Address          string    `bson:"_id" json:"address"`
	BaseReputation   int64     `bson:"baseReputation" json:"baseReputation"`
	StakedReputation int64     `bson:"stakedReputation" json:"stakedReputation"`
	TotalReputation  int64     `bson:"totalReputation" json:"totalReputation"`
	Tier             string    `bson:"tier" json:"tier"`
	ReportsSubmitted int64     `bson:"reportsSubmitted" json:"reportsSubmitted"`
	VotesCast        int64     `bson:"votesCast" json:"votesCast"`
	CorrectVotes     int64     `bson:"correctVotes" json:"correctVotes"`
	FalseReports     int64     `bson:"falseReports" json:"falseReports"`
	SlashingCount    int64     `bson:"slashingCount" json:"slashingCount"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

// OverrideRequest sets an account's base reputation (admin emergency path).
type OverrideRequest struct {
	BaseReputation int64  `json:"baseReputation" binding:"min=0"`
	Reason         string `json:"reason" binding:"required,min=5,max=500"`
}
