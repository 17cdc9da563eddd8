package events

import "time"

// Event types, one per engine state transition.
const (
	TypeReportSubmitted   = "report.submitted"
	TypeReportVote        = "report.vote"
	TypeReportValidated   = "report.validated"
	TypeReportRejected    = "report.rejected"
	TypeReportExpired     = "report.expired"
	TypeReportDisputed    = "report.disputed"
	TypeStakeLocked       = "stake.locked"
	TypeStakeReleased     = "stake.released"
	TypeStakeForfeited    = "stake.forfeited"
	TypeTierChanged       = "reputation.tier_changed"
	TypeEvidenceSubmitted = "evidence.submitted"
	TypeEvidenceValidated = "evidence.validated"
	TypeEvidenceRejected  = "evidence.rejected"
	TypeAdminAction       = "admin.action"
)

// Event is one entry in the ordered notification stream that off-chain
// indexers mirror into their own stores. Seq is strictly increasing.
type Event struct {
	ID        string                 `bson:"_id" json:"id"`
	Seq       int64                  `bson:"seq" json:"seq"`
	Type      string                 `bson:"type" json:"type"`
	SubjectID string                 `bson:"subjectId" json:"subjectId"`
	Actor     string                 `bson:"actor,omitempty" json:"actor,omitempty"`
	Payload   map[string]interface{} `bson:"payload,omitempty" json:"payload,omitempty"`
	CreatedAt time.Time              `bson:"createdAt" json:"createdAt"`
}

// ListQuery filters the event stream.
type ListQuery struct {
	After int64  `form:"after"`
	Type  string `form:"type"`
	Limit int    `form:"limit"`
}
