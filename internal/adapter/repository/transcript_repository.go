package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/youdub-team/youdub-backend/internal/domain/entities"
)

// TranscriptRepository implements the transcript repository interface using GORM
type TranscriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository creates a new transcript repository
func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{
		db: db,
	}
}

// FindByID finds a transcript by ID
func (r *TranscriptRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Transcript, error) {
	var transcript entities.Transcript
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&transcript).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, entities.ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("failed to find transcript by ID: %w", err)
	}
	return &transcript, nil
}
