package blacklist

import "time"

// Entry is a confirmed-malicious URL or wallet. The list is consulted at
// report submission time only; adding an entry is never retroactive.
type Entry struct {
	Value     string    `bson:"_id" json:"value"`
	IsURL     bool      `bson:"isUrl" json:"isUrl"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	AddedBy   string    `bson:"addedBy" json:"addedBy"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// AddRequest adds a target to the blacklist (admin).
type AddRequest struct {
	Value  string `json:"value" binding:"required"`
	IsURL  bool   `json:"isUrl"`
	Reason string `json:"reason" binding:"omitempty,max=500"`
}
