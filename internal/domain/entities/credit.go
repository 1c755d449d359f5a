package entities

import (
	"time"

	"github.com/google/uuid"
)

// CreditMethod identifies how a session start was funded
type CreditMethod string

const (
	CreditMethodFree   CreditMethod = "free"
	CreditMethodAd     CreditMethod = "ad"
	CreditMethodCredit CreditMethod = "credit"
)

// UserCredits holds the purchased credit balance of a user. Daily free and ad
// allowances live in Redis counters, not here.
type UserCredits struct {
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;primary_key"`
	PaidCredits int       `json:"paid_credits" gorm:"not null;default:0"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (UserCredits) TableName() string {
	return "user_credits"
}
