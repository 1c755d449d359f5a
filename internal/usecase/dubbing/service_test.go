package dubbing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/youdub-team/youdub-backend/errors"
	"github.com/youdub-team/youdub-backend/internal/domain/entities"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/media"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/storage"
	"github.com/youdub-team/youdub-backend/internal/usecase/mixer"
	"github.com/youdub-team/youdub-backend/pkg/config"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entities.DubbingSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*entities.DubbingSession)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *entities.DubbingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.DubbingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, entities.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) FindActive(_ context.Context, userID, transcriptID uuid.UUID, characterID string) (*entities.DubbingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.UserID == userID && s.TranscriptID == transcriptID &&
			s.CharacterID == characterID && s.Status == entities.SessionStatusRecording {
			cp := *s
			return &cp, nil
		}
	}
	return nil, entities.ErrSessionNotFound
}

func (r *fakeSessionRepo) FindByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entities.DubbingSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.DubbingSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeSessionRepo) FindByTranscript(_ context.Context, transcriptID uuid.UUID) ([]*entities.DubbingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.DubbingSession
	for _, s := range r.sessions {
		if s.TranscriptID == transcriptID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *entities.DubbingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return entities.ErrSessionNotFound
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) CountCompletedByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.Status == entities.SessionStatusCompleted {
			n++
		}
	}
	return n, nil
}

type fakeTranscriptRepo struct {
	transcripts map[uuid.UUID]*entities.Transcript
}

func (r *fakeTranscriptRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.Transcript, error) {
	t, ok := r.transcripts[id]
	if !ok {
		return nil, entities.ErrTranscriptNotFound
	}
	return t, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*entities.User
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	return u, nil
}

type fakeGate struct {
	mu         sync.Mutex
	consumed   int
	refunded   int
	consumeErr error
	decided    entities.CreditMethod
}

func (g *fakeGate) Decide(_ context.Context, _ uuid.UUID) (entities.CreditMethod, error) {
	if g.decided == "" {
		return entities.CreditMethodFree, nil
	}
	return g.decided, nil
}

func (g *fakeGate) Consume(_ context.Context, _ uuid.UUID, _ entities.CreditMethod) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.consumeErr != nil {
		return g.consumeErr
	}
	g.consumed++
	return nil
}

func (g *fakeGate) Refund(_ context.Context, _ uuid.UUID, _ entities.CreditMethod) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunded++
	return nil
}

type fakeRenderer struct {
	mu     sync.Mutex
	mixes  int
	err    error
	result *mixer.Result
}

func (r *fakeRenderer) Mix(_ context.Context, _ *entities.Transcript, _ []mixer.Source) (*mixer.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.mixes++
	if r.result != nil {
		return r.result, nil
	}
	return &mixer.Result{AudioMP3: []byte("mp3")}, nil
}

type fakeUploadCodec struct {
	decodeErr error
}

func (c *fakeUploadCodec) Available() error { return nil }

func (c *fakeUploadCodec) Decode(_ context.Context, _ []byte, _ string) (*media.Segment, error) {
	if c.decodeErr != nil {
		return nil, c.decodeErr
	}
	return media.NewSilence(100), nil
}

func (c *fakeUploadCodec) EncodeMP3(_ context.Context, _ *media.Segment, _ int) ([]byte, error) {
	return []byte("mp3"), nil
}

func (c *fakeUploadCodec) MuxReplaceAudio(_ context.Context, _ []byte, _ string, _ []byte) ([]byte, error) {
	return []byte("mp4"), nil
}

type fakeStore struct {
	mu      sync.Mutex
	seq     int
	uploads []string
	deleted []string
}

func (s *fakeStore) Upload(_ context.Context, data []byte, folder, filename, _ string) (*storage.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	key := fmt.Sprintf("%s/%d-%s", folder, s.seq, filename)
	s.uploads = append(s.uploads, key)
	return &storage.UploadResult{
		URL:  "http://store.local/" + key,
		Key:  key,
		Size: int64(len(data)),
	}, nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

type fakeNotifier struct {
	sent chan string
}

func (n *fakeNotifier) SendFirstDubCompleted(_ context.Context, toEmail, _, _ string) error {
	n.sent <- toEmail
	return nil
}

type fixture struct {
	service    *Service
	sessions   *fakeSessionRepo
	gate       *fakeGate
	renderer   *fakeRenderer
	codec      *fakeUploadCodec
	store      *fakeStore
	notifier   *fakeNotifier
	user       *entities.User
	transcript *entities.Transcript
}

func newFixture() *fixture {
	user := &entities.User{ID: uuid.New(), Email: "sid@example.com", DisplayName: "Sid"}
	transcript := &entities.Transcript{
		ID:                 uuid.New(),
		VoicesAudioURL:     "http://store.local/stems/voices.wav",
		BackgroundAudioURL: "http://store.local/stems/background.wav",
		Characters: []entities.Character{
			{
				CharacterID:   "char-sid",
				CharacterName: "Sid",
				Dialogues: []entities.Dialogue{
					{DialogueID: "d1", StartTime: 1.0, EndTime: 3.0},
					{DialogueID: "d2", StartTime: 4.0, EndTime: 5.0},
				},
			},
			{
				CharacterID:   "char-manny",
				CharacterName: "Manny",
				Dialogues: []entities.Dialogue{
					{DialogueID: "m1", StartTime: 6.0, EndTime: 7.0},
				},
			},
		},
	}

	sessions := newFakeSessionRepo()
	gate := &fakeGate{}
	renderer := &fakeRenderer{}
	codec := &fakeUploadCodec{}
	store := &fakeStore{}
	notifier := &fakeNotifier{sent: make(chan string, 4)}

	svc := NewService(
		sessions,
		&fakeTranscriptRepo{transcripts: map[uuid.UUID]*entities.Transcript{transcript.ID: transcript}},
		&fakeUserRepo{users: map[uuid.UUID]*entities.User{user.ID: user}},
		gate,
		renderer,
		codec,
		store,
		notifier,
		&config.MediaConfig{
			MixTimeout:         time.Minute,
			MaxConcurrentMixes: 2,
			MP3BitrateKbps:     192,
		},
		zap.NewNop(),
	)

	return &fixture{
		service:    svc,
		sessions:   sessions,
		gate:       gate,
		renderer:   renderer,
		codec:      codec,
		store:      store,
		notifier:   notifier,
		user:       user,
		transcript: transcript,
	}
}

func (f *fixture) startSession(t *testing.T) *entities.DubbingSession {
	t.Helper()
	sp, err := f.service.StartSession(context.Background(), f.user.ID, f.transcript.ID, "char-sid", entities.CreditMethodFree)
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	return sp.Session
}

func (f *fixture) uploadAll(t *testing.T, sessionID uuid.UUID, dialogueIDs ...string) {
	t.Helper()
	for _, id := range dialogueIDs {
		if _, err := f.service.UploadRecording(context.Background(), f.user.ID, sessionID, id, id+".wav", []byte("take")); err != nil {
			t.Fatalf("upload %s failed: %v", id, err)
		}
	}
}

func expectCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %v", code)
	}
	appErr, ok := err.(apperrors.AppError)
	if !ok {
		t.Fatalf("expected AppError got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %v got %v (%v)", code, appErr.Code, err)
	}
}

func TestStartSession_ChargesOnce(t *testing.T) {
	f := newFixture()

	first := f.startSession(t)
	second := f.startSession(t)

	if first.ID != second.ID {
		t.Fatalf("expected the active session back, got %s and %s", first.ID, second.ID)
	}
	if f.gate.consumed != 1 {
		t.Fatalf("expected exactly one charge got %d", f.gate.consumed)
	}
	if first.CharacterName != "Sid" {
		t.Fatalf("expected character name denormalized on the session, got %q", first.CharacterName)
	}
}

func TestStartSession_RollsBackOnChargeFailure(t *testing.T) {
	f := newFixture()
	f.gate.consumeErr = apperrors.ErrInsufficientCredits("daily free allowance exhausted")

	_, err := f.service.StartSession(context.Background(), f.user.ID, f.transcript.ID, "char-sid", entities.CreditMethodFree)
	expectCode(t, err, apperrors.ErrorCode_INSUFFICIENT_CREDITS)

	if len(f.sessions.sessions) != 0 {
		t.Fatalf("unfunded session must be rolled back, %d sessions remain", len(f.sessions.sessions))
	}
}

func TestStartSession_UnknownCharacter(t *testing.T) {
	f := newFixture()

	_, err := f.service.StartSession(context.Background(), f.user.ID, f.transcript.ID, "char-nobody", entities.CreditMethodFree)
	expectCode(t, err, apperrors.ErrorCode_CHARACTER_NOT_FOUND)
	if f.gate.consumed != 0 {
		t.Fatalf("no charge for a rejected start, got %d", f.gate.consumed)
	}
}

func TestUploadRecording_ProgressAndReplace(t *testing.T) {
	f := newFixture()
	session := f.startSession(t)

	sp, err := f.service.UploadRecording(context.Background(), f.user.ID, session.ID, "d1", "take.webm", []byte("audio"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if sp.Progress != 50 {
		t.Fatalf("expected 50%% progress got %f", sp.Progress)
	}

	if len(sp.PendingDialogueIDs) != 1 || sp.PendingDialogueIDs[0] != "d2" {
		t.Fatalf("expected d2 pending got %v", sp.PendingDialogueIDs)
	}
	firstKey := sp.Session.RecordingFor("d1").StorageKey

	// Re-uploading the same dialogue replaces the take instead of adding one.
	sp, err = f.service.UploadRecording(context.Background(), f.user.ID, session.ID, "d1", "retake.webm", []byte("audio2"))
	if err != nil {
		t.Fatalf("re-upload failed: %v", err)
	}
	if len(sp.Session.Recordings) != 1 {
		t.Fatalf("expected 1 recording after replace got %d", len(sp.Session.Recordings))
	}
	if sp.Progress != 50 {
		t.Fatalf("expected 50%% progress after replace got %f", sp.Progress)
	}

	// The replaced take's object is cleaned up.
	if len(f.store.deleted) != 1 || f.store.deleted[0] != firstKey {
		t.Fatalf("expected superseded take %s deleted got %v", firstKey, f.store.deleted)
	}
}

func TestStartSession_PicksMethodWhenUnspecified(t *testing.T) {
	f := newFixture()
	f.gate.decided = entities.CreditMethodAd

	sp, err := f.service.StartSession(context.Background(), f.user.ID, f.transcript.ID, "char-sid", "")
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	if sp.Session.CreditMethod != entities.CreditMethodAd {
		t.Fatalf("expected the gate's pick got %s", sp.Session.CreditMethod)
	}
	if f.gate.consumed != 1 {
		t.Fatalf("expected one charge got %d", f.gate.consumed)
	}
}

func TestDeleteSession_RemovesSessionAndTakes(t *testing.T) {
	f := newFixture()
	session := f.startSession(t)
	f.uploadAll(t, session.ID, "d1", "d2")

	if err := f.service.DeleteSession(context.Background(), f.user.ID, session.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(f.sessions.sessions) != 0 {
		t.Fatalf("expected session removed, %d remain", len(f.sessions.sessions))
	}
	if len(f.store.deleted) != 2 {
		t.Fatalf("expected both takes deleted got %v", f.store.deleted)
	}

	stranger := uuid.New()
	other := f.startSession(t)
	err := f.service.DeleteSession(context.Background(), stranger, other.ID)
	expectCode(t, err, apperrors.ErrorCode_FORBIDDEN)
}

func TestUploadRecording_Validation(t *testing.T) {
	f := newFixture()
	session := f.startSession(t)
	ctx := context.Background()

	_, err := f.service.UploadRecording(ctx, f.user.ID, session.ID, "d1", "take.flac", []byte("audio"))
	expectCode(t, err, apperrors.ErrorCode_UNSUPPORTED_FORMAT)

	_, err = f.service.UploadRecording(ctx, f.user.ID, session.ID, "d1", "take.wav", nil)
	expectCode(t, err, apperrors.ErrorCode_EMPTY_FILE)

	_, err = f.service.UploadRecording(ctx, f.user.ID, session.ID, "d-unknown", "take.wav", []byte("audio"))
	expectCode(t, err, apperrors.ErrorCode_DIALOGUE_NOT_FOUND)

	f.codec.decodeErr = fmt.Errorf("not audio")
	_, err = f.service.UploadRecording(ctx, f.user.ID, session.ID, "d1", "take.wav", []byte("junk"))
	expectCode(t, err, apperrors.ErrorCode_INVALID_AUDIO)
	f.codec.decodeErr = nil

	stranger := uuid.New()
	_, err = f.service.UploadRecording(ctx, stranger, session.ID, "d1", "take.wav", []byte("audio"))
	expectCode(t, err, apperrors.ErrorCode_FORBIDDEN)
}

func TestProcessSession_RejectsIncomplete(t *testing.T) {
	f := newFixture()
	session := f.startSession(t)
	f.uploadAll(t, session.ID, "d1")

	_, err := f.service.ProcessSession(context.Background(), f.user.ID, session.ID)
	expectCode(t, err, apperrors.ErrorCode_INCOMPLETE_SESSION)

	stored, _ := f.sessions.FindByID(context.Background(), session.ID)
	if stored.Status != entities.SessionStatusRecording {
		t.Fatalf("failed process must leave the session recording, got %s", stored.Status)
	}
	if f.renderer.mixes != 0 {
		t.Fatalf("no mix for an incomplete session, got %d", f.renderer.mixes)
	}
}

func TestProcessSession_CompletesAndNotifiesFirst(t *testing.T) {
	f := newFixture()
	session := f.startSession(t)
	f.uploadAll(t, session.ID, "d1", "d2")

	done, err := f.service.ProcessSession(context.Background(), f.user.ID, session.ID)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !done.IsCompleted() {
		t.Fatalf("expected completed status got %s", done.Status)
	}
	if done.MixedAudioURL == nil || *done.MixedAudioURL == "" {
		t.Fatal("expected a mixed audio url")
	}
	if done.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}

	select {
	case email := <-f.notifier.sent:
		if email != f.user.Email {
			t.Fatalf("notification to wrong address %s", email)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a first-completion email")
	}
}

func TestProcessSession_Idempotent(t *testing.T) {
	f := newFixture()
	session := f.startSession(t)
	f.uploadAll(t, session.ID, "d1", "d2")

	first, err := f.service.ProcessSession(context.Background(), f.user.ID, session.ID)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	second, err := f.service.ProcessSession(context.Background(), f.user.ID, session.ID)
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}

	if *first.MixedAudioURL != *second.MixedAudioURL {
		t.Fatalf("expected stored outputs back, got %s and %s", *first.MixedAudioURL, *second.MixedAudioURL)
	}
	if f.renderer.mixes != 1 {
		t.Fatalf("completed session must not be mixed again, got %d mixes", f.renderer.mixes)
	}
}

func TestProcessSession_SecondCompletionDoesNotNotify(t *testing.T) {
	f := newFixture()

	first := f.startSession(t)
	f.uploadAll(t, first.ID, "d1", "d2")
	if _, err := f.service.ProcessSession(context.Background(), f.user.ID, first.ID); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	<-f.notifier.sent

	sp, err := f.service.StartSession(context.Background(), f.user.ID, f.transcript.ID, "char-manny", entities.CreditMethodFree)
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	f.uploadAll(t, sp.Session.ID, "m1")
	if _, err := f.service.ProcessSession(context.Background(), f.user.ID, sp.Session.ID); err != nil {
		t.Fatalf("second process failed: %v", err)
	}

	select {
	case email := <-f.notifier.sent:
		t.Fatalf("unexpected second notification to %s", email)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestProcessCollaborative_LeavesSessionsUntouched(t *testing.T) {
	f := newFixture()

	sid := f.startSession(t)
	f.uploadAll(t, sid.ID, "d1", "d2")

	manny, err := f.service.StartSession(context.Background(), f.user.ID, f.transcript.ID, "char-manny", entities.CreditMethodFree)
	if err != nil {
		t.Fatalf("start manny failed: %v", err)
	}
	f.uploadAll(t, manny.Session.ID, "m1")

	result, err := f.service.ProcessCollaborative(context.Background(), f.transcript.ID, []uuid.UUID{sid.ID, manny.Session.ID})
	if err != nil {
		t.Fatalf("collaborative mix failed: %v", err)
	}
	if result.MixedAudioURL == "" {
		t.Fatal("expected a mixed audio url")
	}
	if len(result.CharacterIDs) != 2 {
		t.Fatalf("expected 2 characters got %v", result.CharacterIDs)
	}

	for _, id := range []uuid.UUID{sid.ID, manny.Session.ID} {
		stored, _ := f.sessions.FindByID(context.Background(), id)
		if stored.Status != entities.SessionStatusRecording {
			t.Fatalf("collaborative mix must not touch session %s, got status %s", id, stored.Status)
		}
		if stored.MixedAudioURL != nil {
			t.Fatalf("collaborative mix must not set outputs on session %s", id)
		}
	}
}

func TestProcessCollaborative_InconsistentTranscript(t *testing.T) {
	f := newFixture()
	session := f.startSession(t)

	otherTranscript := uuid.New()
	_, err := f.service.ProcessCollaborative(context.Background(), otherTranscript, []uuid.UUID{session.ID})
	expectCode(t, err, apperrors.ErrorCode_TRANSCRIPT_NOT_FOUND)
}
