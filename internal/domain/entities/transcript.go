package entities

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Dialogue is a single line of a character within a clip scene. Times are
// seconds relative to the start of the stems; EndTime is always greater than
// StartTime. Windows of one character do not overlap by convention.
type Dialogue struct {
	DialogueID string  `json:"dialogue_id"`
	Text       string  `json:"text"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
}

// StartMS returns the dialogue start rounded to whole milliseconds.
func (d Dialogue) StartMS() int {
	return int(math.Round(d.StartTime * 1000))
}

// EndMS returns the dialogue end rounded to whole milliseconds.
func (d Dialogue) EndMS() int {
	return int(math.Round(d.EndTime * 1000))
}

// DurationSeconds returns the length of the dialogue window in seconds.
func (d Dialogue) DurationSeconds() float64 {
	return d.EndTime - d.StartTime
}

// Character is one dubbed role of a transcript with its expected dialogues.
type Character struct {
	CharacterID   string     `json:"character_id"`
	CharacterName string     `json:"character_name"`
	Dialogues     []Dialogue `json:"dialogues"`
}

// FindDialogue returns the dialogue with the given id, or nil.
func (c *Character) FindDialogue(dialogueID string) *Dialogue {
	for i := range c.Dialogues {
		if c.Dialogues[i].DialogueID == dialogueID {
			return &c.Dialogues[i]
		}
	}
	return nil
}

// Transcript is the per-scene dubbing source material: the two stems, an
// optional source video, and the character/dialogue timing map. It is produced
// by the transcription pipeline and read-only to the dubbing engine.
type Transcript struct {
	ID                 uuid.UUID                       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ClipSceneID        *uuid.UUID                      `json:"clip_scene_id,omitempty" gorm:"type:uuid;index"`
	BackgroundAudioURL string                          `json:"background_audio_url" gorm:"type:text"`
	VoicesAudioURL     string                          `json:"voices_audio_url" gorm:"type:text"`
	VideoURL           *string                         `json:"video_url,omitempty" gorm:"type:text"`
	Characters         datatypes.JSONSlice[Character]  `json:"characters" gorm:"type:jsonb"`
	CreatedAt          time.Time                       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time                       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Transcript) TableName() string {
	return "transcripts"
}

// FindCharacter returns the character with the given id, or nil.
func (t *Transcript) FindCharacter(characterID string) *Character {
	for i := range t.Characters {
		if t.Characters[i].CharacterID == characterID {
			return &t.Characters[i]
		}
	}
	return nil
}

// HasStems reports whether both audio stems are present.
func (t *Transcript) HasStems() bool {
	return t.BackgroundAudioURL != "" && t.VoicesAudioURL != ""
}
