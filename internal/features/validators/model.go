package validators

import "time"

// BaselineReputation is the starting score for a newly registered
// validator; it moves by one point per resolved vote.
const BaselineReputation = 100

// Validator is a self-registered account allowed to vote on reports.
type Validator struct {
	Address            string    `bson:"_id" json:"address"`
	Reputation         int64     `bson:"reputation" json:"reputation"`
	TotalValidations   int64     `bson:"totalValidations" json:"totalValidations"`
	CorrectValidations int64     `bson:"correctValidations" json:"correctValidations"`
	Active             bool      `bson:"active" json:"active"`
	RegisteredAt       time.Time `bson:"registeredAt" json:"registeredAt"`
}

// ListQuery filters the validator listing.
type ListQuery struct {
	Active *bool `form:"active"`
	Page   int   `form:"page"`
	Limit  int   `form:"limit"`
}
