package dubbing

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/youdub-team/youdub-backend/errors"
	"github.com/youdub-team/youdub-backend/internal/domain/entities"
	"github.com/youdub-team/youdub-backend/internal/domain/repositories"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/media"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/storage"
	"github.com/youdub-team/youdub-backend/internal/usecase/mixer"
	"github.com/youdub-team/youdub-backend/pkg/config"
	"github.com/youdub-team/youdub-backend/pkg/jobcontext"
	"github.com/youdub-team/youdub-backend/pkg/notify"
)

// Takes are accepted in the formats browsers and mobile recorders produce.
var allowedUploadExts = map[string]bool{
	".mp3":  true,
	".ogg":  true,
	".webm": true,
	".wav":  true,
	".m4a":  true,
}

// CreditGate charges and refunds session funding. Decide picks the funding
// method when the caller leaves the choice open.
type CreditGate interface {
	Decide(ctx context.Context, userID uuid.UUID) (entities.CreditMethod, error)
	Consume(ctx context.Context, userID uuid.UUID, method entities.CreditMethod) error
	Refund(ctx context.Context, userID uuid.UUID, method entities.CreditMethod) error
}

// MixRenderer renders dubbed mixes from validated sources.
type MixRenderer interface {
	Mix(ctx context.Context, transcript *entities.Transcript, sources []mixer.Source) (*mixer.Result, error)
}

// Service handles dubbing session business logic
type Service struct {
	sessionRepo    repositories.SessionRepository
	transcriptRepo repositories.TranscriptRepository
	userRepo       repositories.UserRepository
	gate           CreditGate
	renderer       MixRenderer
	codec          media.Codec
	store          storage.ObjectStore
	notifier       notify.Notifier
	cfg            *config.MediaConfig
	logger         *zap.Logger

	// mixSem bounds concurrent mix jobs; each render holds stems and takes
	// in memory.
	mixSem chan struct{}
}

// NewService creates a new dubbing service
func NewService(
	sessionRepo repositories.SessionRepository,
	transcriptRepo repositories.TranscriptRepository,
	userRepo repositories.UserRepository,
	gate CreditGate,
	renderer MixRenderer,
	codec media.Codec,
	store storage.ObjectStore,
	notifier notify.Notifier,
	cfg *config.MediaConfig,
	logger *zap.Logger,
) *Service {
	maxMixes := cfg.MaxConcurrentMixes
	if maxMixes <= 0 {
		maxMixes = 1
	}
	return &Service{
		sessionRepo:    sessionRepo,
		transcriptRepo: transcriptRepo,
		userRepo:       userRepo,
		gate:           gate,
		renderer:       renderer,
		codec:          codec,
		store:          store,
		notifier:       notifier,
		cfg:            cfg,
		logger:         logger,
		mixSem:         make(chan struct{}, maxMixes),
	}
}

// SessionWithProgress pairs a session with its recording progress.
type SessionWithProgress struct {
	Session            *entities.DubbingSession
	TotalDialogues     int
	Recorded           int
	PendingDialogueIDs []string
	Progress           float64
}

// StartSession creates a dubbing session for a character, charging the chosen
// funding method. An empty method lets the gate pick the cheapest available
// one. An existing recording session for the same (user, transcript,
// character) is returned as-is without a second charge.
func (s *Service) StartSession(ctx context.Context, userID, transcriptID uuid.UUID, characterID string, method entities.CreditMethod) (*SessionWithProgress, error) {
	transcript, err := s.transcriptRepo.FindByID(ctx, transcriptID)
	if err != nil {
		if errors.Is(err, entities.ErrTranscriptNotFound) {
			return nil, apperrors.ErrTranscriptNotFound(transcriptID.String())
		}
		return nil, apperrors.ErrDBFailed("find transcript", err)
	}

	character := transcript.FindCharacter(characterID)
	if character == nil {
		return nil, apperrors.ErrCharacterNotFound(characterID)
	}

	existing, err := s.sessionRepo.FindActive(ctx, userID, transcriptID, characterID)
	if err == nil {
		return s.withProgress(existing, character), nil
	}
	if !errors.Is(err, entities.ErrSessionNotFound) {
		return nil, apperrors.ErrDBFailed("find active session", err)
	}

	if method == "" {
		method, err = s.gate.Decide(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	session := &entities.DubbingSession{
		UserID:        userID,
		TranscriptID:  transcriptID,
		CharacterID:   characterID,
		CharacterName: character.CharacterName,
		Status:        entities.SessionStatusRecording,
		CreditMethod:  method,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, apperrors.ErrDBFailed("create session", err)
	}

	// Charge after creation; a failed charge rolls the session back so the
	// user is never left with an unfunded session.
	if err := s.gate.Consume(ctx, userID, method); err != nil {
		if delErr := s.sessionRepo.Delete(ctx, session.ID); delErr != nil {
			s.logger.Error("failed to roll back unfunded session",
				zap.String("session_id", session.ID.String()),
				zap.Error(delErr),
			)
		}
		var appErr apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.ErrCreditConsumeFailed(err)
	}

	s.logger.Info("dubbing session started",
		zap.String("session_id", session.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("character_id", characterID),
		zap.String("credit_method", string(method)),
	)
	return s.withProgress(session, character), nil
}

// GetSession retrieves a session owned by the user with its progress
func (s *Service) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*SessionWithProgress, error) {
	session, transcript, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.withProgress(session, transcript.FindCharacter(session.CharacterID)), nil
}

// ListSessions retrieves the user's sessions, newest first
func (s *Service) ListSessions(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*entities.DubbingSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	sessions, total, err := s.sessionRepo.FindByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, apperrors.ErrDBFailed("list sessions", err)
	}
	return sessions, total, nil
}

// UploadRecording validates and stores a take for one dialogue. Re-uploading
// a dialogue replaces the previous take.
func (s *Service) UploadRecording(ctx context.Context, userID, sessionID uuid.UUID, dialogueID, filename string, data []byte) (*SessionWithProgress, error) {
	session, transcript, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsCompleted() {
		return nil, apperrors.ErrInvalidArgument("session is already completed")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedUploadExts[ext] {
		return nil, apperrors.ErrUnsupportedFormat(allowedExtList())
	}
	if len(data) == 0 {
		return nil, apperrors.ErrEmptyFile()
	}

	character := transcript.FindCharacter(session.CharacterID)
	if character == nil {
		return nil, apperrors.ErrCharacterNotFound(session.CharacterID)
	}
	if character.FindDialogue(dialogueID) == nil {
		return nil, apperrors.ErrDialogueNotFound(dialogueID, session.CharacterID)
	}

	// A take that cannot be decoded would poison the mix later; reject it at
	// the door.
	seg, err := s.codec.Decode(ctx, data, ext)
	if err != nil {
		return nil, apperrors.ErrInvalidAudio(err)
	}

	folder := fmt.Sprintf("recordings/%s", session.ID)
	result, err := s.store.Upload(ctx, data, folder, dialogueID+ext, contentTypeFor(ext))
	if err != nil {
		return nil, apperrors.ErrStorageFailed("upload recording", err)
	}

	previous := session.RecordingFor(dialogueID)
	var previousKey string
	if previous != nil {
		previousKey = previous.StorageKey
	}

	session.UpsertRecording(entities.DialogueRecording{
		DialogueID:      dialogueID,
		AudioURL:        result.URL,
		StorageKey:      result.Key,
		DurationSeconds: float64(seg.DurationMS()) / 1000,
		UploadedAt:      time.Now().UTC(),
	})
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, apperrors.ErrDBFailed("save recording", err)
	}

	// The replaced take is unreferenced now; losing the cleanup is harmless.
	if previousKey != "" && previousKey != result.Key {
		if err := s.store.Delete(ctx, previousKey); err != nil {
			s.logger.Warn("failed to delete superseded take",
				zap.String("key", previousKey),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("recording uploaded",
		zap.String("session_id", session.ID.String()),
		zap.String("dialogue_id", dialogueID),
		zap.Int64("size", result.Size),
	)
	return s.withProgress(session, character), nil
}

// DeleteSession removes a session owned by the user together with its stored
// takes. Completed mixes are kept; they may already be shared.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, _, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	for _, rec := range session.Recordings {
		if rec.StorageKey == "" {
			continue
		}
		if err := s.store.Delete(ctx, rec.StorageKey); err != nil {
			s.logger.Warn("failed to delete session take",
				zap.String("session_id", session.ID.String()),
				zap.String("key", rec.StorageKey),
				zap.Error(err),
			)
		}
	}

	if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
		return apperrors.ErrDBFailed("delete session", err)
	}

	s.logger.Info("dubbing session deleted",
		zap.String("session_id", session.ID.String()),
		zap.String("user_id", userID.String()),
	)
	return nil
}

// ProcessSession mixes a fully recorded session and finalizes it. Calling it
// on an already completed session returns the stored outputs again.
func (s *Service) ProcessSession(ctx context.Context, userID, sessionID uuid.UUID) (*entities.DubbingSession, error) {
	session, transcript, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsCompleted() {
		return session, nil
	}

	character := transcript.FindCharacter(session.CharacterID)
	if character == nil {
		return nil, apperrors.ErrCharacterNotFound(session.CharacterID)
	}
	if _, missing := mixer.ResolveWindows(character, session); len(missing) > 0 {
		return nil, apperrors.ErrIncompleteSession(len(character.Dialogues), len(session.Recordings))
	}

	result, err := s.renderMix(ctx, session.ID, transcript, []mixer.Source{{Character: character, Session: session}})
	if err != nil {
		return nil, err
	}

	audioURL, videoURL, err := s.storeMix(ctx, fmt.Sprintf("mixes/%s", session.ID), result)
	if err != nil {
		return nil, err
	}

	session.MarkCompleted(audioURL, videoURL, time.Now().UTC())
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, apperrors.ErrDBFailed("finalize session", err)
	}

	s.logger.Info("dubbing session completed",
		zap.String("session_id", session.ID.String()),
		zap.String("mixed_audio_url", audioURL),
		zap.Bool("has_video", videoURL != nil),
	)

	s.notifyIfFirstCompletion(session.UserID, audioURL)

	return session, nil
}

// CollaborativeResult is the rendered output of a collaborative mix. It is
// returned directly; the contributing sessions are never modified.
type CollaborativeResult struct {
	MixedAudioURL string   `json:"mixed_audio_url"`
	MixedVideoURL *string  `json:"mixed_video_url,omitempty"`
	CharacterIDs  []string `json:"character_ids"`
}

// ProcessCollaborative mixes several sessions voicing different characters of
// the same transcript into one output.
func (s *Service) ProcessCollaborative(ctx context.Context, transcriptID uuid.UUID, sessionIDs []uuid.UUID) (*CollaborativeResult, error) {
	if len(sessionIDs) == 0 {
		return nil, apperrors.ErrInvalidArgument("at least one session is required")
	}

	transcript, err := s.transcriptRepo.FindByID(ctx, transcriptID)
	if err != nil {
		if errors.Is(err, entities.ErrTranscriptNotFound) {
			return nil, apperrors.ErrTranscriptNotFound(transcriptID.String())
		}
		return nil, apperrors.ErrDBFailed("find transcript", err)
	}

	sources := make([]mixer.Source, 0, len(sessionIDs))
	characterIDs := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		session, err := s.sessionRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, entities.ErrSessionNotFound) {
				return nil, apperrors.ErrSessionNotFound(id.String())
			}
			return nil, apperrors.ErrDBFailed("find session", err)
		}
		if session.TranscriptID != transcript.ID {
			return nil, apperrors.ErrInconsistentTranscript()
		}
		character := transcript.FindCharacter(session.CharacterID)
		if character == nil {
			return nil, apperrors.ErrCharacterNotFound(session.CharacterID)
		}
		sources = append(sources, mixer.Source{Character: character, Session: session})
		characterIDs = append(characterIDs, character.CharacterID)
	}

	mixID := uuid.New()
	result, err := s.renderMix(ctx, mixID, transcript, sources)
	if err != nil {
		return nil, err
	}

	audioURL, videoURL, err := s.storeMix(ctx, fmt.Sprintf("collabs/%s", mixID), result)
	if err != nil {
		return nil, err
	}

	sort.Strings(characterIDs)
	s.logger.Info("collaborative mix completed",
		zap.String("transcript_id", transcript.ID.String()),
		zap.Strings("character_ids", characterIDs),
	)
	return &CollaborativeResult{
		MixedAudioURL: audioURL,
		MixedVideoURL: videoURL,
		CharacterIDs:  characterIDs,
	}, nil
}

// TranscriptDubbingInfo summarizes dubbing activity on a transcript.
type TranscriptDubbingInfo struct {
	Transcript        *entities.Transcript
	Sessions          []*entities.DubbingSession
	CompletedSessions int
}

// GetTranscriptDubbingInfo returns a transcript with all sessions recorded
// against it
func (s *Service) GetTranscriptDubbingInfo(ctx context.Context, transcriptID uuid.UUID) (*TranscriptDubbingInfo, error) {
	transcript, err := s.transcriptRepo.FindByID(ctx, transcriptID)
	if err != nil {
		if errors.Is(err, entities.ErrTranscriptNotFound) {
			return nil, apperrors.ErrTranscriptNotFound(transcriptID.String())
		}
		return nil, apperrors.ErrDBFailed("find transcript", err)
	}

	sessions, err := s.sessionRepo.FindByTranscript(ctx, transcriptID)
	if err != nil {
		return nil, apperrors.ErrDBFailed("find transcript sessions", err)
	}

	completed := 0
	for _, session := range sessions {
		if session.IsCompleted() {
			completed++
		}
	}
	return &TranscriptDubbingInfo{
		Transcript:        transcript,
		Sessions:          sessions,
		CompletedSessions: completed,
	}, nil
}

// renderMix runs the renderer under the concurrency bound and mix deadline.
func (s *Service) renderMix(ctx context.Context, jobID uuid.UUID, transcript *entities.Transcript, sources []mixer.Source) (*mixer.Result, error) {
	select {
	case s.mixSem <- struct{}{}:
		defer func() { <-s.mixSem }()
	case <-ctx.Done():
		return nil, apperrors.ErrInternal(ctx.Err())
	}

	jobCtx, cancel := jobcontext.JobBegin(ctx, jobID, "mix", s.cfg.MixTimeout)
	defer cancel()

	var result *mixer.Result
	err := jobcontext.JobEnd(jobCtx, func(ctx context.Context) error {
		var mixErr error
		result, mixErr = s.renderer.Mix(ctx, transcript, sources)
		return mixErr
	})
	if err != nil {
		var appErr apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.ErrInternal(err)
	}
	return result, nil
}

// storeMix uploads the rendered outputs and returns their URLs.
func (s *Service) storeMix(ctx context.Context, folder string, result *mixer.Result) (string, *string, error) {
	audio, err := s.store.Upload(ctx, result.AudioMP3, folder, "mix.mp3", "audio/mpeg")
	if err != nil {
		return "", nil, apperrors.ErrStorageFailed("upload mix", err)
	}

	var videoURL *string
	if len(result.VideoMP4) > 0 {
		video, err := s.store.Upload(ctx, result.VideoMP4, folder, "mix.mp4", "video/mp4")
		if err != nil {
			// The audio mix is the product; losing the video upload is not
			// fatal.
			s.logger.Warn("failed to upload mixed video",
				zap.String("folder", folder),
				zap.Error(err),
			)
		} else {
			videoURL = &video.URL
		}
	}
	return audio.URL, videoURL, nil
}

// notifyIfFirstCompletion emails the user after their very first completed
// dub. Failures are logged and never surface to the caller.
func (s *Service) notifyIfFirstCompletion(userID uuid.UUID, mixedAudioURL string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		count, err := s.sessionRepo.CountCompletedByUser(ctx, userID)
		if err != nil {
			s.logger.Warn("failed to count completed sessions for notification",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			return
		}
		if count != 1 {
			return
		}

		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			s.logger.Warn("failed to load user for notification",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			return
		}

		if err := s.notifier.SendFirstDubCompleted(ctx, user.Email, user.DisplayName, mixedAudioURL); err != nil {
			s.logger.Warn("failed to send first completion email",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			return
		}
		s.logger.Info("first completion email sent",
			zap.String("user_id", userID.String()),
		)
	}()
}

func (s *Service) ownedSession(ctx context.Context, userID, sessionID uuid.UUID) (*entities.DubbingSession, *entities.Transcript, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, entities.ErrSessionNotFound) {
			return nil, nil, apperrors.ErrSessionNotFound(sessionID.String())
		}
		return nil, nil, apperrors.ErrDBFailed("find session", err)
	}
	if session.UserID != userID {
		return nil, nil, apperrors.ErrForbidden("access this dubbing session")
	}

	transcript, err := s.transcriptRepo.FindByID(ctx, session.TranscriptID)
	if err != nil {
		if errors.Is(err, entities.ErrTranscriptNotFound) {
			return nil, nil, apperrors.ErrTranscriptNotFound(session.TranscriptID.String())
		}
		return nil, nil, apperrors.ErrDBFailed("find transcript", err)
	}
	return session, transcript, nil
}

func (s *Service) withProgress(session *entities.DubbingSession, character *entities.Character) *SessionWithProgress {
	sp := &SessionWithProgress{
		Session:  session,
		Recorded: len(session.Recordings),
	}
	if character != nil {
		sp.TotalDialogues = len(character.Dialogues)
		recorded := session.RecordedDialogueIDs()
		for i := range character.Dialogues {
			id := character.Dialogues[i].DialogueID
			if _, ok := recorded[id]; !ok {
				sp.PendingDialogueIDs = append(sp.PendingDialogueIDs, id)
			}
		}
	}
	sp.Progress = session.Progress(sp.TotalDialogues)
	return sp
}

func allowedExtList() string {
	exts := make([]string, 0, len(allowedUploadExts))
	for ext := range allowedUploadExts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
