package mixer

import (
	"sort"

	"github.com/youdub-team/youdub-backend/internal/domain/entities"
)

// Window is one dialogue slot to be replaced in the voices stem, paired with
// the take that fills it.
type Window struct {
	DialogueID    string
	CharacterID   string
	CharacterName string
	StartMS       int
	EndMS         int
	AudioURL      string
}

// DurationMS returns the window length in milliseconds.
func (w Window) DurationMS() int {
	return w.EndMS - w.StartMS
}

// HasTake reports whether a recorded take fills this window.
func (w Window) HasTake() bool {
	return w.AudioURL != ""
}

// ResolveWindows pairs a character's dialogues with the session's takes.
// Every dialogue yields a window, recorded or not; unrecorded ones carry an
// empty AudioURL and their ids come back in the second return. Windows are
// ordered by start time.
func ResolveWindows(character *entities.Character, session *entities.DubbingSession) ([]Window, []string) {
	windows := make([]Window, 0, len(character.Dialogues))
	var missing []string

	for i := range character.Dialogues {
		d := &character.Dialogues[i]
		w := Window{
			DialogueID:    d.DialogueID,
			CharacterID:   character.CharacterID,
			CharacterName: character.CharacterName,
			StartMS:       d.StartMS(),
			EndMS:         d.EndMS(),
		}
		if rec := session.RecordingFor(d.DialogueID); rec != nil {
			w.AudioURL = rec.AudioURL
		} else {
			missing = append(missing, d.DialogueID)
		}
		windows = append(windows, w)
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].StartMS < windows[j].StartMS
	})
	return windows, missing
}
