package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/youdub-team/youdub-backend/internal/domain/entities"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
}
