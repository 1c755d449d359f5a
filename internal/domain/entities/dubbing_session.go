package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionStatus represents the lifecycle state of a dubbing session
type SessionStatus string

const (
	SessionStatusRecording SessionStatus = "recording"
	SessionStatusCompleted SessionStatus = "completed"
)

// DialogueRecording is one uploaded take, keyed by dialogue id within the
// session. Re-uploads replace the entry in place; StorageKey lets the replaced
// object be cleaned up.
type DialogueRecording struct {
	DialogueID      string    `json:"dialogue_id"`
	AudioURL        string    `json:"audio_url"`
	StorageKey      string    `json:"storage_key,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// DubbingSession is one user's take on one character of one transcript. At
// most one active (recording) session exists per (user, transcript,
// character); completed sessions never block a new one.
type DubbingSession struct {
	ID            uuid.UUID                               `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID        uuid.UUID                               `json:"user_id" gorm:"type:uuid;not null;index"`
	TranscriptID  uuid.UUID                               `json:"transcript_id" gorm:"type:uuid;not null;index"`
	CharacterID   string                                  `json:"character_id" gorm:"type:varchar(64);not null"`
	CharacterName string                                  `json:"character_name" gorm:"type:varchar(255);not null"`
	Status        SessionStatus                           `json:"status" gorm:"type:varchar(20);not null;default:'recording'"`
	CreditMethod  CreditMethod                            `json:"credit_method" gorm:"type:varchar(20);not null"`
	Recordings    datatypes.JSONSlice[DialogueRecording]  `json:"recordings" gorm:"type:jsonb"`
	MixedAudioURL *string                                 `json:"mixed_audio_url,omitempty" gorm:"type:text"`
	MixedVideoURL *string                                 `json:"mixed_video_url,omitempty" gorm:"type:text"`
	CompletedAt   *time.Time                              `json:"completed_at,omitempty"`
	CreatedAt     time.Time                               `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time                               `json:"updated_at" gorm:"autoUpdateTime"`

	Transcript *Transcript `json:"transcript,omitempty" gorm:"foreignKey:TranscriptID"`
}

// TableName specifies the table name for GORM
func (DubbingSession) TableName() string {
	return "dubbing_sessions"
}

// IsCompleted checks if the session has been mixed and finalized
func (s *DubbingSession) IsCompleted() bool {
	return s.Status == SessionStatusCompleted
}

// RecordingFor returns the recording for the given dialogue id, or nil.
func (s *DubbingSession) RecordingFor(dialogueID string) *DialogueRecording {
	for i := range s.Recordings {
		if s.Recordings[i].DialogueID == dialogueID {
			return &s.Recordings[i]
		}
	}
	return nil
}

// UpsertRecording records a take for a dialogue, replacing any previous take
// for the same dialogue id.
func (s *DubbingSession) UpsertRecording(rec DialogueRecording) {
	for i := range s.Recordings {
		if s.Recordings[i].DialogueID == rec.DialogueID {
			s.Recordings[i] = rec
			return
		}
	}
	s.Recordings = append(s.Recordings, rec)
}

// RecordedDialogueIDs returns the set of dialogue ids that have a take.
func (s *DubbingSession) RecordedDialogueIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Recordings))
	for i := range s.Recordings {
		ids[s.Recordings[i].DialogueID] = struct{}{}
	}
	return ids
}

// Progress returns the recorded share of the expected dialogues as a
// percentage rounded to two decimals. Zero expected dialogues yields zero.
func (s *DubbingSession) Progress(totalDialogues int) float64 {
	if totalDialogues <= 0 {
		return 0
	}
	pct := float64(len(s.Recordings)) / float64(totalDialogues) * 100
	return float64(int(pct*100+0.5)) / 100
}

// MarkCompleted transitions the session to completed with its mix outputs.
func (s *DubbingSession) MarkCompleted(audioURL string, videoURL *string, at time.Time) {
	s.Status = SessionStatusCompleted
	s.MixedAudioURL = &audioURL
	s.MixedVideoURL = videoURL
	s.CompletedAt = &at
}
