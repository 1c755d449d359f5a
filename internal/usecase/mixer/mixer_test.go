package mixer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/youdub-team/youdub-backend/errors"
	"github.com/youdub-team/youdub-backend/internal/domain/entities"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/media"
)

// fakeFetcher serves canned payloads and records every URL it is asked for.
type fakeFetcher struct {
	payloads map[string][]byte
	calls    []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	p, ok := f.payloads[url]
	if !ok {
		return nil, fmt.Errorf("no payload for %s", url)
	}
	return p, nil
}

// fakeCodec decodes payloads of the form "ms:value" into constant segments
// and records the segment handed to EncodeMP3.
type fakeCodec struct {
	lastEncoded *media.Segment
	muxErr      error
}

func clipPayload(ms, value int) []byte {
	return []byte(fmt.Sprintf("%d:%d", ms, value))
}

func (c *fakeCodec) Available() error { return nil }

func (c *fakeCodec) Decode(_ context.Context, data []byte, _ string) (*media.Segment, error) {
	parts := strings.SplitN(string(data), ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("unparseable payload %q", data)
	}
	ms, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, err
	}
	value, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, err
	}
	seg := media.NewSilence(ms)
	for i := range seg.Data {
		seg.Data[i] = value
	}
	return seg, nil
}

func (c *fakeCodec) EncodeMP3(_ context.Context, seg *media.Segment, _ int) ([]byte, error) {
	c.lastEncoded = seg.Clone()
	return []byte("mp3-data"), nil
}

func (c *fakeCodec) MuxReplaceAudio(_ context.Context, _ []byte, _ string, _ []byte) ([]byte, error) {
	if c.muxErr != nil {
		return nil, c.muxErr
	}
	return []byte("mp4-data"), nil
}

func sampleAt(seg *media.Segment, ms int) int {
	return seg.Data[ms*media.SampleRate/1000*media.NumChannels]
}

func testTranscript() *entities.Transcript {
	return &entities.Transcript{
		ID:                 uuid.New(),
		VoicesAudioURL:     "http://store.local/stems/voices.wav",
		BackgroundAudioURL: "http://store.local/stems/background.wav",
		Characters: []entities.Character{
			{
				CharacterID:   "char-sid",
				CharacterName: "Sid",
				Dialogues: []entities.Dialogue{
					{DialogueID: "d1", StartTime: 1.0, EndTime: 3.0},
				},
			},
			{
				CharacterID:   "char-manny",
				CharacterName: "Manny",
				Dialogues: []entities.Dialogue{
					{DialogueID: "m1", StartTime: 4.0, EndTime: 5.0},
				},
			},
		},
	}
}

func completeSession(transcript *entities.Transcript, characterID string) *entities.DubbingSession {
	character := transcript.FindCharacter(characterID)
	s := &entities.DubbingSession{
		ID:           uuid.New(),
		TranscriptID: transcript.ID,
		CharacterID:  characterID,
		Status:       entities.SessionStatusRecording,
	}
	for _, d := range character.Dialogues {
		s.UpsertRecording(entities.DialogueRecording{
			DialogueID: d.DialogueID,
			AudioURL:   "http://store.local/takes/" + d.DialogueID + ".wav",
		})
	}
	return s
}

func newTestMixer(fetcher *fakeFetcher, codec *fakeCodec) *Mixer {
	return NewMixer(codec, fetcher, 192, zap.NewNop())
}

func TestMix_ReplacesWindowWithTake(t *testing.T) {
	transcript := testTranscript()
	session := completeSession(transcript, "char-sid")

	fetcher := &fakeFetcher{payloads: map[string][]byte{
		transcript.VoicesAudioURL:     clipPayload(6000, 1000),
		transcript.BackgroundAudioURL: clipPayload(6000, 10),
		// Take is shorter than its 2000ms window; the rest is padded silent.
		"http://store.local/takes/d1.wav": clipPayload(1500, 1000),
	}}
	codec := &fakeCodec{}

	result, err := newTestMixer(fetcher, codec).Mix(context.Background(), transcript, []Source{
		{Character: transcript.FindCharacter("char-sid"), Session: session},
	})
	if err != nil {
		t.Fatalf("mix failed: %v", err)
	}
	if string(result.AudioMP3) != "mp3-data" {
		t.Fatalf("unexpected audio payload %q", result.AudioMP3)
	}
	if result.VideoMP4 != nil {
		t.Fatal("expected no video without a video url")
	}

	mixed := codec.lastEncoded
	if mixed == nil {
		t.Fatal("nothing was encoded")
	}
	if got := mixed.DurationMS(); got != 6000 {
		t.Fatalf("mix length must match the voices stem, got %dms", got)
	}

	// Outside the window: original voices plus background.
	if got := sampleAt(mixed, 500); got != 1010 {
		t.Fatalf("expected untouched voices+background 1010 got %d", got)
	}
	// Inside the window where the take plays: take plus background.
	if got := sampleAt(mixed, 1500); got != 1010 {
		t.Fatalf("expected take+background 1010 got %d", got)
	}
	// Window tail past the 1500ms take: silence plus background only.
	if got := sampleAt(mixed, 2800); got != 10 {
		t.Fatalf("expected padded tail to carry background only, got %d", got)
	}
	// After the window: original voices again.
	if got := sampleAt(mixed, 4000); got != 1010 {
		t.Fatalf("expected voices restored after window got %d", got)
	}
}

func TestMix_GainMatchesQuietTake(t *testing.T) {
	transcript := testTranscript()
	session := completeSession(transcript, "char-sid")

	fetcher := &fakeFetcher{payloads: map[string][]byte{
		transcript.VoicesAudioURL:         clipPayload(6000, 1000),
		transcript.BackgroundAudioURL:     clipPayload(6000, 0),
		"http://store.local/takes/d1.wav": clipPayload(2000, 500),
	}}
	codec := &fakeCodec{}

	if _, err := newTestMixer(fetcher, codec).Mix(context.Background(), transcript, []Source{
		{Character: transcript.FindCharacter("char-sid"), Session: session},
	}); err != nil {
		t.Fatalf("mix failed: %v", err)
	}

	// The -6dB take is raised to the stem's level.
	got := sampleAt(codec.lastEncoded, 2000)
	if got < 995 || got > 1005 {
		t.Fatalf("expected take boosted to ~1000 got %d", got)
	}
}

func TestMix_DuplicateCharacterRejectedBeforeFetch(t *testing.T) {
	transcript := testTranscript()
	a := completeSession(transcript, "char-sid")
	b := completeSession(transcript, "char-sid")

	fetcher := &fakeFetcher{payloads: map[string][]byte{}}
	codec := &fakeCodec{}

	_, err := newTestMixer(fetcher, codec).Mix(context.Background(), transcript, []Source{
		{Character: transcript.FindCharacter("char-sid"), Session: a},
		{Character: transcript.FindCharacter("char-sid"), Session: b},
	})
	if err == nil {
		t.Fatal("expected duplicate character error")
	}
	var appErr apperrors.AppError
	if !asAppError(err, &appErr) || appErr.Code != apperrors.ErrorCode_DUPLICATE_CHARACTER {
		t.Fatalf("expected DUPLICATE_CHARACTER got %v", err)
	}
	if len(fetcher.calls) != 0 {
		t.Fatalf("validation must run before any fetch, got %v", fetcher.calls)
	}
}

func TestMix_InconsistentTranscriptRejected(t *testing.T) {
	transcript := testTranscript()
	other := testTranscript()
	session := completeSession(other, "char-sid")

	fetcher := &fakeFetcher{payloads: map[string][]byte{}}
	codec := &fakeCodec{}

	_, err := newTestMixer(fetcher, codec).Mix(context.Background(), transcript, []Source{
		{Character: transcript.FindCharacter("char-sid"), Session: session},
	})
	var appErr apperrors.AppError
	if !asAppError(err, &appErr) || appErr.Code != apperrors.ErrorCode_INCONSISTENT_TRANSCRIPT {
		t.Fatalf("expected INCONSISTENT_TRANSCRIPT got %v", err)
	}
	if len(fetcher.calls) != 0 {
		t.Fatalf("validation must run before any fetch, got %v", fetcher.calls)
	}
}

func TestMix_CollaborativeLaysBothCharacters(t *testing.T) {
	transcript := testTranscript()
	sid := completeSession(transcript, "char-sid")
	manny := completeSession(transcript, "char-manny")

	fetcher := &fakeFetcher{payloads: map[string][]byte{
		transcript.VoicesAudioURL:         clipPayload(6000, 1000),
		transcript.BackgroundAudioURL:     clipPayload(6000, 0),
		"http://store.local/takes/d1.wav": clipPayload(2000, 1000),
		"http://store.local/takes/m1.wav": clipPayload(1000, 1000),
	}}
	codec := &fakeCodec{}

	if _, err := newTestMixer(fetcher, codec).Mix(context.Background(), transcript, []Source{
		{Character: transcript.FindCharacter("char-sid"), Session: sid},
		{Character: transcript.FindCharacter("char-manny"), Session: manny},
	}); err != nil {
		t.Fatalf("mix failed: %v", err)
	}

	mixed := codec.lastEncoded
	if got := sampleAt(mixed, 1500); got != 1000 {
		t.Fatalf("expected sid take in 1-3s window got %d", got)
	}
	if got := sampleAt(mixed, 4500); got != 1000 {
		t.Fatalf("expected manny take in 4-5s window got %d", got)
	}
}

func TestMix_UnrecordedWindowStaysSilent(t *testing.T) {
	transcript := testTranscript()
	sid := completeSession(transcript, "char-sid")
	manny := completeSession(transcript, "char-manny")
	manny.Recordings = nil

	fetcher := &fakeFetcher{payloads: map[string][]byte{
		transcript.VoicesAudioURL:         clipPayload(6000, 1000),
		transcript.BackgroundAudioURL:     clipPayload(6000, 10),
		"http://store.local/takes/d1.wav": clipPayload(2000, 1000),
	}}
	codec := &fakeCodec{}

	if _, err := newTestMixer(fetcher, codec).Mix(context.Background(), transcript, []Source{
		{Character: transcript.FindCharacter("char-sid"), Session: sid},
		{Character: transcript.FindCharacter("char-manny"), Session: manny},
	}); err != nil {
		t.Fatalf("partially recorded sources must still mix: %v", err)
	}

	mixed := codec.lastEncoded
	// Sid's recorded window carries the take.
	if got := sampleAt(mixed, 1500); got != 1010 {
		t.Fatalf("expected take+background 1010 got %d", got)
	}
	// Manny's unrecorded 4-5s window is silenced, background only.
	if got := sampleAt(mixed, 4500); got != 10 {
		t.Fatalf("expected silent window with background only, got %d", got)
	}
	// No take was fetched for the unrecorded dialogue.
	for _, url := range fetcher.calls {
		if strings.Contains(url, "m1") {
			t.Fatalf("unexpected fetch for unrecorded dialogue: %s", url)
		}
	}
}

func TestMix_MuxFailureIsNonFatal(t *testing.T) {
	transcript := testTranscript()
	videoURL := "http://store.local/stems/scene.mp4"
	transcript.VideoURL = &videoURL
	session := completeSession(transcript, "char-sid")

	fetcher := &fakeFetcher{payloads: map[string][]byte{
		transcript.VoicesAudioURL:         clipPayload(6000, 1000),
		transcript.BackgroundAudioURL:     clipPayload(6000, 10),
		"http://store.local/takes/d1.wav": clipPayload(2000, 1000),
		videoURL:                          []byte("raw-video"),
	}}
	codec := &fakeCodec{muxErr: fmt.Errorf("codec blew up")}

	result, err := newTestMixer(fetcher, codec).Mix(context.Background(), transcript, []Source{
		{Character: transcript.FindCharacter("char-sid"), Session: session},
	})
	if err != nil {
		t.Fatalf("mux failure must not fail the mix: %v", err)
	}
	if result.VideoMP4 != nil {
		t.Fatal("expected no video output after mux failure")
	}
	if string(result.AudioMP3) != "mp3-data" {
		t.Fatalf("expected audio output to survive, got %q", result.AudioMP3)
	}
}

func TestMix_FetchFailureSurfaces(t *testing.T) {
	transcript := testTranscript()
	session := completeSession(transcript, "char-sid")

	fetcher := &fakeFetcher{payloads: map[string][]byte{}}
	codec := &fakeCodec{}

	_, err := newTestMixer(fetcher, codec).Mix(context.Background(), transcript, []Source{
		{Character: transcript.FindCharacter("char-sid"), Session: session},
	})
	var appErr apperrors.AppError
	if !asAppError(err, &appErr) || appErr.Code != apperrors.ErrorCode_FETCH_FAILED {
		t.Fatalf("expected FETCH_FAILED got %v", err)
	}
}

func asAppError(err error, target *apperrors.AppError) bool {
	if err == nil {
		return false
	}
	e, ok := err.(apperrors.AppError)
	if ok {
		*target = e
		return true
	}
	return false
}
