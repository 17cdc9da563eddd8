package reports

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report status lifecycle: pending -> validated | rejected on quorum,
// pending -> expired when the voting deadline lapses below quorum.
// Terminal states are reached exactly once.
const (
	StatusPending   = "pending"
	StatusValidated = "validated"
	StatusRejected  = "rejected"
	StatusExpired   = "expired"
)

// Report target types
const (
	TypeURL    = "url"
	TypeWallet = "wallet"
)

// Verdict values accepted on votes
const (
	VerdictValid   = "valid"
	VerdictInvalid = "invalid"
)

// Report is a stake-backed claim that a target is malicious. Everything
// but the status/tally fields is immutable after submission.
type Report struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type           string             `bson:"type" json:"type"`
	TargetValue    string             `bson:"targetValue" json:"targetValue"`
	Description    string             `bson:"description" json:"description"`
	EvidenceRef    string             `bson:"evidenceRef,omitempty" json:"evidenceRef,omitempty"`
	Submitter      string             `bson:"submitter" json:"submitter"`
	StakeID        string             `bson:"stakeId" json:"stakeId"`
	StakeAmount    int64              `bson:"stakeAmount" json:"stakeAmount"`
	Status         string             `bson:"status" json:"status"`
	ValidVotes     int                `bson:"validVotes" json:"validVotes"`
	InvalidVotes   int                `bson:"invalidVotes" json:"invalidVotes"`
	VoterCount     int                `bson:"voterCount" json:"voterCount"`
	DisputeCount   int                `bson:"disputeCount" json:"disputeCount"`
	Version        int64              `bson:"version" json:"-"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	VotingDeadline time.Time          `bson:"votingDeadline" json:"votingDeadline"`
	FinalizedAt    *time.Time         `bson:"finalizedAt,omitempty" json:"finalizedAt,omitempty"`
}

// Vote is one validator's stake-backed verdict on a report. The
// (reportId, validator) pair is unique: a validator votes at most once.
type Vote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReportID  primitive.ObjectID `bson:"reportId" json:"reportId"`
	Validator string             `bson:"validator" json:"validator"`
	Approve   bool               `bson:"approve" json:"approve"`
	StakeID   string             `bson:"stakeId" json:"stakeId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Dispute is an append-only objection raised against a report. Disputes
// never change report status by themselves.
type Dispute struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReportID  primitive.ObjectID `bson:"reportId" json:"reportId"`
	Disputer  string             `bson:"disputer" json:"disputer"`
	Reason    string             `bson:"reason" json:"reason"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// SubmitRequest is the payload for submitting a report.
type SubmitRequest struct {
	Type        string `json:"type" binding:"required,oneof=url wallet"`
	TargetValue string `json:"targetValue" binding:"required"`
	Description string `json:"description" binding:"required,min=10,max=1000"`
	EvidenceRef string `json:"evidenceRef" binding:"omitempty"`
}

// VoteRequest is the payload for voting on a report.
type VoteRequest struct {
	Verdict string `json:"verdict" binding:"required,oneof=valid invalid"`
}

// DisputeRequest is the payload for raising a dispute.
type DisputeRequest struct {
	Reason string `json:"reason" binding:"required,min=5,max=500"`
}

// ForceFinalizeRequest forces a terminal outcome (admin recovery).
type ForceFinalizeRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=validated rejected"`
	Reason  string `json:"reason" binding:"required,min=5,max=500"`
}

// ListQuery filters the report listing.
type ListQuery struct {
	Status    string `form:"status"`
	Type      string `form:"type"`
	Submitter string `form:"submitter"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}
