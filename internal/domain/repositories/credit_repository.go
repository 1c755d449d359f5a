package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/youdub-team/youdub-backend/internal/domain/entities"
)

// CreditRepository defines the interface for purchased credit balances
type CreditRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*entities.UserCredits, error)
	// ConsumeOne atomically decrements the paid balance by one. It returns
	// false without error when the balance is already zero.
	ConsumeOne(ctx context.Context, userID uuid.UUID) (bool, error)
	// RefundOne adds one paid credit back, used to compensate a failed start.
	RefundOne(ctx context.Context, userID uuid.UUID) error
}
