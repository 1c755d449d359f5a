package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/youdub-team/youdub-backend/internal/domain/entities"
)

// SessionRepository defines the interface for dubbing session data access
type SessionRepository interface {
	Create(ctx context.Context, session *entities.DubbingSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.DubbingSession, error)
	// FindActive returns the recording session for the given user, transcript
	// and character, or entities.ErrSessionNotFound when none exists.
	FindActive(ctx context.Context, userID, transcriptID uuid.UUID, characterID string) (*entities.DubbingSession, error)
	FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.DubbingSession, int64, error)
	FindByTranscript(ctx context.Context, transcriptID uuid.UUID) ([]*entities.DubbingSession, error)
	Update(ctx context.Context, session *entities.DubbingSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
