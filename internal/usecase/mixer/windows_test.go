package mixer

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/youdub-team/youdub-backend/internal/domain/entities"
)

func testCharacter() *entities.Character {
	return &entities.Character{
		CharacterID:   "char-sid",
		CharacterName: "Sid",
		Dialogues: []entities.Dialogue{
			{DialogueID: "d2", Text: "later line", StartTime: 4.5, EndTime: 6.0},
			{DialogueID: "d1", Text: "first line", StartTime: 1.0, EndTime: 3.0},
		},
	}
}

func sessionWithTakes(c *entities.Character, dialogueIDs ...string) *entities.DubbingSession {
	s := &entities.DubbingSession{
		ID:          uuid.New(),
		CharacterID: c.CharacterID,
		Status:      entities.SessionStatusRecording,
	}
	for _, id := range dialogueIDs {
		s.UpsertRecording(entities.DialogueRecording{
			DialogueID: id,
			AudioURL:   "http://store.local/takes/" + id + ".wav",
			UploadedAt: time.Now(),
		})
	}
	return s
}

func TestResolveWindows_OrderedByStart(t *testing.T) {
	c := testCharacter()
	s := sessionWithTakes(c, "d1", "d2")

	windows, missing := ResolveWindows(c, s)
	if len(missing) != 0 {
		t.Fatalf("expected no missing dialogues got %v", missing)
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows got %d", len(windows))
	}
	if windows[0].DialogueID != "d1" || windows[1].DialogueID != "d2" {
		t.Fatalf("windows not ordered by start: %v", windows)
	}
	if windows[0].StartMS != 1000 || windows[0].EndMS != 3000 {
		t.Fatalf("unexpected window bounds %d-%d", windows[0].StartMS, windows[0].EndMS)
	}
	if got := windows[0].DurationMS(); got != 2000 {
		t.Fatalf("expected 2000ms window got %d", got)
	}
}

func TestResolveWindows_ReportsMissing(t *testing.T) {
	c := testCharacter()
	s := sessionWithTakes(c, "d2")

	windows, missing := ResolveWindows(c, s)
	if len(windows) != 2 {
		t.Fatalf("expected a window per dialogue got %d", len(windows))
	}
	if windows[0].DialogueID != "d1" || windows[0].HasTake() {
		t.Fatalf("expected d1 window without a take, got %+v", windows[0])
	}
	if !windows[1].HasTake() {
		t.Fatalf("expected d2 window to carry its take, got %+v", windows[1])
	}
	if len(missing) != 1 || missing[0] != "d1" {
		t.Fatalf("expected d1 missing got %v", missing)
	}
}

func TestResolveWindows_RoundsToMilliseconds(t *testing.T) {
	c := &entities.Character{
		CharacterID: "c",
		Dialogues: []entities.Dialogue{
			{DialogueID: "d", StartTime: 1.2345, EndTime: 2.9996},
		},
	}
	s := sessionWithTakes(c, "d")

	windows, _ := ResolveWindows(c, s)
	if windows[0].StartMS != 1235 {
		t.Fatalf("expected start 1235ms got %d", windows[0].StartMS)
	}
	if windows[0].EndMS != 3000 {
		t.Fatalf("expected end 3000ms got %d", windows[0].EndMS)
	}
}
