package ledger

import (
	"time"
)

// StakeKind determines what a stake backs and its reputation multiplier.
type StakeKind string

const (
	KindReport    StakeKind = "report"
	KindVote      StakeKind = "vote"
	KindValidator StakeKind = "validator"
)

// Multiplier returns the reputation multiplier for the kind, scaled by 100
// to keep all arithmetic integral (1.5x -> 150).
func (k StakeKind) Multiplier() int64 {
	switch k {
	case KindReport:
		return 150
	case KindVote:
		return 120
	case KindValidator:
		return 200
	default:
		return 100
	}
}

// Account holds an identity's balances in the smallest accounting unit.
// Accounts are created lazily on first interaction and never deleted.
type Account struct {
	Address   string    `bson:"_id" json:"address"`
	Spendable int64     `bson:"spendable" json:"spendable"`
	Locked    int64     `bson:"locked" json:"locked"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Stake is a bounded lock of funds backing an action. Stakes are
// deactivated on withdrawal or forfeiture but never removed, so the
// collection doubles as the audit trail.
type Stake struct {
	ID         string        `bson:"_id" json:"id"`
	Owner      string        `bson:"owner" json:"owner"`
	Amount     int64         `bson:"amount" json:"amount"`
	Kind       StakeKind     `bson:"kind" json:"kind"`
	Multiplier int64         `bson:"multiplier" json:"multiplier"`
	Active     bool          `bson:"active" json:"active"`
	LockPeriod time.Duration `bson:"lockPeriod" json:"lockPeriod"`
	CreatedAt  time.Time     `bson:"createdAt" json:"createdAt"`
	ReleasedAt *time.Time    `bson:"releasedAt,omitempty" json:"releasedAt,omitempty"`
	Penalty    int64         `bson:"penalty,omitempty" json:"penalty,omitempty"`
}

// Conservation is the ops-facing snapshot of total value held by the
// engine. Outside explicit deposits the Total must never change.
type Conservation struct {
	Spendable int64 `json:"spendable"`
	Locked    int64 `json:"locked"`
	Pool      int64 `json:"pool"`
	Total     int64 `json:"total"`
}

// DepositRequest credits an account from the external funding boundary.
type DepositRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// TransferRequest moves spendable funds between accounts.
type TransferRequest struct {
	To     string `json:"to" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

// FundPoolRequest tops up the reward pool (admin).
type FundPoolRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}
