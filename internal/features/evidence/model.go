package evidence

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Evidence status lifecycle: pending -> under_review on first
// validation, then validated | rejected at quorum. No funds move here,
// only reputation.
const (
	StatusPending     = "pending"
	StatusUnderReview = "under_review"
	StatusValidated   = "validated"
	StatusRejected    = "rejected"
)

// Validation levels, ordered by scrutiny.
const (
	LevelBasic    = "basic"
	LevelStandard = "standard"
	LevelThorough = "thorough"
)

// Verdict values accepted on validations
const (
	VerdictPositive = "positive"
	VerdictNegative = "negative"
)

// Item is a piece of submitted evidence, addressed by its content hash.
// Validations are embedded: the list is small (quorum-bounded) and is
// only ever appended to under a guard that excludes the same validator
// twice.
type Item struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Submitter       string             `bson:"submitter" json:"submitter"`
	ContentHash     string             `bson:"contentHash" json:"contentHash"`
	Kind            string             `bson:"kind" json:"kind"`
	Size            int64              `bson:"size" json:"size"`
	MimeType        string             `bson:"mimeType" json:"mimeType"`
	OriginalRef     string             `bson:"originalRef,omitempty" json:"originalRef,omitempty"`
	Description     string             `bson:"description" json:"description"`
	Status          string             `bson:"status" json:"status"`
	ValidationLevel string             `bson:"validationLevel" json:"validationLevel"`
	Validations     []Validation       `bson:"validations" json:"validations"`
	PositiveCount   int                `bson:"positiveCount" json:"positiveCount"`
	NegativeCount   int                `bson:"negativeCount" json:"negativeCount"`
	Annotations     []Annotation       `bson:"annotations,omitempty" json:"annotations,omitempty"`
	SubmittedAt     time.Time          `bson:"submittedAt" json:"submittedAt"`
	FinalizedAt     *time.Time         `bson:"finalizedAt,omitempty" json:"finalizedAt,omitempty"`
}

// Validation is one reviewer's verdict on an item.
type Validation struct {
	Validator string    `bson:"validator" json:"validator"`
	Positive  bool      `bson:"positive" json:"positive"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	Level     string    `bson:"level" json:"level"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Annotation is classifier or admin metadata stored verbatim. The
// engine never interprets it.
type Annotation struct {
	Key       string    `bson:"key" json:"key"`
	Value     string    `bson:"value" json:"value"`
	Source    string    `bson:"source" json:"source"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// SubmitRequest is the payload for submitting evidence.
type SubmitRequest struct {
	ContentHash string `json:"contentHash" binding:"required"`
	Kind        string `json:"kind" binding:"required,oneof=screenshot document transaction other"`
	Size        int64  `json:"size" binding:"required,gt=0"`
	MimeType    string `json:"mimeType" binding:"required"`
	OriginalRef string `json:"originalRef" binding:"omitempty,max=500"`
	Description string `json:"description" binding:"required,min=10,max=1000"`
}

// ValidateRequest is the payload for validating evidence.
type ValidateRequest struct {
	Verdict string `json:"verdict" binding:"required,oneof=positive negative"`
	Reason  string `json:"reason" binding:"omitempty,max=500"`
	Level   string `json:"level" binding:"omitempty,oneof=basic standard thorough"`
}

// AnnotateRequest attaches classifier metadata to an item (admin).
type AnnotateRequest struct {
	Key    string `json:"key" binding:"required,max=100"`
	Value  string `json:"value" binding:"required,max=2000"`
	Source string `json:"source" binding:"omitempty,max=100"`
}

// ListQuery filters the evidence listing.
type ListQuery struct {
	Status    string `form:"status"`
	Kind      string `form:"kind"`
	Submitter string `form:"submitter"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}
