package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/youdub-team/youdub-backend/internal/domain/entities"
)

// CreditRepository implements the credit repository interface using GORM
type CreditRepository struct {
	db *gorm.DB
}

// NewCreditRepository creates a new credit repository
func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{
		db: db,
	}
}

// FindByUser finds the purchased credit balance of a user
func (r *CreditRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*entities.UserCredits, error) {
	var credits entities.UserCredits
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&credits).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, entities.ErrCreditsNotFound
		}
		return nil, fmt.Errorf("failed to find user credits: %w", err)
	}
	return &credits, nil
}

// ConsumeOne decrements the paid balance by one. The conditional update keeps
// concurrent consumers from driving the balance negative; zero rows affected
// means the balance was already empty.
func (r *CreditRepository) ConsumeOne(ctx context.Context, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.UserCredits{}).
		Where("user_id = ? AND paid_credits >= 1", userID).
		Update("paid_credits", gorm.Expr("paid_credits - 1"))
	if result.Error != nil {
		return false, fmt.Errorf("failed to consume credit: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RefundOne adds one paid credit back to the user's balance
func (r *CreditRepository) RefundOne(ctx context.Context, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&entities.UserCredits{}).
		Where("user_id = ?", userID).
		Update("paid_credits", gorm.Expr("paid_credits + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to refund credit: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entities.ErrCreditsNotFound
	}
	return nil
}
