package dubbing

import (
	"time"

	"github.com/youdub-team/youdub-backend/internal/domain/entities"
	"github.com/youdub-team/youdub-backend/internal/usecase/dubbing"
)

// SessionResponse is the API shape of a dubbing session
type SessionResponse struct {
	ID             string                       `json:"id"`
	TranscriptID   string                       `json:"transcript_id"`
	CharacterID    string                       `json:"character_id"`
	CharacterName  string                       `json:"character_name"`
	Status         string                       `json:"status"`
	CreditMethod   string                       `json:"credit_method"`
	Recordings     []entities.DialogueRecording `json:"recordings"`
	TotalDialogues int                          `json:"total_dialogues"`
	Recorded       int                          `json:"recorded"`
	Pending        []string                     `json:"pending_dialogue_ids"`
	Progress       float64                      `json:"progress"`
	MixedAudioURL  *string                      `json:"mixed_audio_url,omitempty"`
	MixedVideoURL  *string                      `json:"mixed_video_url,omitempty"`
	CompletedAt    *time.Time                   `json:"completed_at,omitempty"`
	CreatedAt      time.Time                    `json:"created_at"`
}

// NewSessionResponse converts a session with progress to its API shape
func NewSessionResponse(sp *dubbing.SessionWithProgress) SessionResponse {
	resp := newSessionResponse(sp.Session)
	resp.TotalDialogues = sp.TotalDialogues
	resp.Recorded = sp.Recorded
	resp.Pending = sp.PendingDialogueIDs
	if resp.Pending == nil {
		resp.Pending = []string{}
	}
	resp.Progress = sp.Progress
	return resp
}

func newSessionResponse(s *entities.DubbingSession) SessionResponse {
	recordings := s.Recordings
	if recordings == nil {
		recordings = []entities.DialogueRecording{}
	}
	return SessionResponse{
		ID:            s.ID.String(),
		TranscriptID:  s.TranscriptID.String(),
		CharacterID:   s.CharacterID,
		CharacterName: s.CharacterName,
		Status:        string(s.Status),
		CreditMethod:  string(s.CreditMethod),
		Recordings:    recordings,
		MixedAudioURL: s.MixedAudioURL,
		MixedVideoURL: s.MixedVideoURL,
		CompletedAt:   s.CompletedAt,
		CreatedAt:     s.CreatedAt,
	}
}

// SessionListResponse is a page of sessions
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// NewSessionListResponse converts a page of sessions to its API shape
func NewSessionListResponse(sessions []*entities.DubbingSession, total int64, page, pageSize int) SessionListResponse {
	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, newSessionResponse(s))
	}
	return SessionListResponse{
		Sessions: out,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
}

// TranscriptInfoResponse summarizes dubbing activity on a transcript
type TranscriptInfoResponse struct {
	TranscriptID      string               `json:"transcript_id"`
	Characters        []entities.Character `json:"characters"`
	VideoURL          *string              `json:"video_url,omitempty"`
	Sessions          []SessionResponse    `json:"sessions"`
	CompletedSessions int                  `json:"completed_sessions"`
}

// NewTranscriptInfoResponse converts transcript dubbing info to its API shape
func NewTranscriptInfoResponse(info *dubbing.TranscriptDubbingInfo) TranscriptInfoResponse {
	sessions := make([]SessionResponse, 0, len(info.Sessions))
	for _, s := range info.Sessions {
		sessions = append(sessions, newSessionResponse(s))
	}
	return TranscriptInfoResponse{
		TranscriptID:      info.Transcript.ID.String(),
		Characters:        info.Transcript.Characters,
		VideoURL:          info.Transcript.VideoURL,
		Sessions:          sessions,
		CompletedSessions: info.CompletedSessions,
	}
}
