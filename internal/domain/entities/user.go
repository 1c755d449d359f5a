package entities

import (
	"time"

	"github.com/google/uuid"
)

// User is the account record; the dubbing engine only reads it for
// notification addressing.
type User struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email       string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(100)"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}
