package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/youdub-team/youdub-backend/internal/domain/entities"
)

// TranscriptRepository defines the interface for transcript data access
type TranscriptRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Transcript, error)
}
