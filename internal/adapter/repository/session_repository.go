package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/youdub-team/youdub-backend/internal/domain/entities"
)

// SessionRepository implements the dubbing session repository interface using GORM
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new dubbing session repository
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{
		db: db,
	}
}

// Create creates a new dubbing session
func (r *SessionRepository) Create(ctx context.Context, session *entities.DubbingSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create dubbing session: %w", err)
	}
	return nil
}

// FindByID finds a dubbing session by ID
func (r *SessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.DubbingSession, error) {
	var session entities.DubbingSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, entities.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find dubbing session by ID: %w", err)
	}
	return &session, nil
}

// FindActive finds the recording session for a user, transcript and character
func (r *SessionRepository) FindActive(ctx context.Context, userID, transcriptID uuid.UUID, characterID string) (*entities.DubbingSession, error) {
	var session entities.DubbingSession
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND transcript_id = ? AND character_id = ? AND status = ?",
			userID, transcriptID, characterID, entities.SessionStatusRecording).
		First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, entities.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find active dubbing session: %w", err)
	}
	return &session, nil
}

// FindByUser finds sessions for a user, newest first, with the total count
func (r *SessionRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.DubbingSession, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&entities.DubbingSession{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count dubbing sessions: %w", err)
	}

	var sessions []*entities.DubbingSession
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&sessions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find dubbing sessions by user: %w", err)
	}
	return sessions, total, nil
}

// FindByTranscript finds all sessions recorded against a transcript
func (r *SessionRepository) FindByTranscript(ctx context.Context, transcriptID uuid.UUID) ([]*entities.DubbingSession, error) {
	var sessions []*entities.DubbingSession
	if err := r.db.WithContext(ctx).
		Where("transcript_id = ?", transcriptID).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to find dubbing sessions by transcript: %w", err)
	}
	return sessions, nil
}

// Update updates a dubbing session
func (r *SessionRepository) Update(ctx context.Context, session *entities.DubbingSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("failed to update dubbing session: %w", err)
	}
	return nil
}

// Delete deletes a dubbing session
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entities.DubbingSession{}).Error; err != nil {
		return fmt.Errorf("failed to delete dubbing session: %w", err)
	}
	return nil
}

// CountCompletedByUser counts the completed sessions of a user
func (r *SessionRepository) CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.DubbingSession{}).
		Where("user_id = ? AND status = ?", userID, entities.SessionStatusCompleted).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count completed dubbing sessions: %w", err)
	}
	return count, nil
}
