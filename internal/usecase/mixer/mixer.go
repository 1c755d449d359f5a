package mixer

import (
	"context"
	"math"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/youdub-team/youdub-backend/errors"
	"github.com/youdub-team/youdub-backend/internal/domain/entities"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/media"
)

// Source is one session's contribution to a mix: the character being voiced
// and the takes recorded for it.
type Source struct {
	Character *entities.Character
	Session   *entities.DubbingSession
}

// Result is the rendered output of a mix. VideoMP4 is nil when the
// transcript has no source video or remuxing failed; a mux failure never
// fails the mix.
type Result struct {
	AudioMP3 []byte
	VideoMP4 []byte
}

// Mixer renders dubbed mixes: it silences each dialogue window in the voices
// stem, lays the takes into their windows gain-matched to the stem, overlays
// the background, and encodes the result.
type Mixer struct {
	codec       media.Codec
	fetcher     media.Fetcher
	bitrateKbps int
	logger      *zap.Logger
}

// NewMixer creates a new mixer
func NewMixer(codec media.Codec, fetcher media.Fetcher, bitrateKbps int, logger *zap.Logger) *Mixer {
	return &Mixer{
		codec:       codec,
		fetcher:     fetcher,
		bitrateKbps: bitrateKbps,
		logger:      logger,
	}
}

// ValidateSources rejects source sets that cannot be mixed together: every
// session must belong to the given transcript, and no two sources may voice
// the same character. Runs before any media is touched so a bad request
// costs no downloads.
func ValidateSources(transcript *entities.Transcript, sources []Source) error {
	if len(sources) == 0 {
		return apperrors.ErrInvalidArgument("at least one source is required")
	}

	seen := make(map[string]string, len(sources))
	var duplicates []string
	for _, src := range sources {
		if src.Session.TranscriptID != transcript.ID {
			return apperrors.ErrInconsistentTranscript()
		}
		if name, ok := seen[src.Character.CharacterID]; ok {
			duplicates = append(duplicates, name)
			continue
		}
		seen[src.Character.CharacterID] = src.Character.CharacterName
	}
	if len(duplicates) > 0 {
		return apperrors.ErrDuplicateCharacter(duplicates)
	}
	return nil
}

// Mix renders the dubbed output for one or more sources over a transcript.
// Every expected dialogue window is silenced in the voices stem; windows
// without a take stay silent, so partially recorded sources still mix.
func (m *Mixer) Mix(ctx context.Context, transcript *entities.Transcript, sources []Source) (*Result, error) {
	if err := ValidateSources(transcript, sources); err != nil {
		return nil, err
	}
	if !transcript.HasStems() {
		return nil, apperrors.ErrMissingStems(transcript.ID.String())
	}

	var windows []Window
	for _, src := range sources {
		w, _ := ResolveWindows(src.Character, src.Session)
		windows = append(windows, w...)
	}

	voices, err := m.fetchSegment(ctx, transcript.VoicesAudioURL, "voices stem")
	if err != nil {
		return nil, err
	}
	background, err := m.fetchSegment(ctx, transcript.BackgroundAudioURL, "background stem")
	if err != nil {
		return nil, err
	}

	// Reference level for gain matching is the untouched voices stem.
	voicesDBFS := voices.DBFS()

	work := voices.Clone()
	for _, w := range windows {
		work.SilenceRange(w.StartMS, w.EndMS)
	}

	for _, w := range windows {
		if !w.HasTake() {
			continue
		}
		take, err := m.fetchSegment(ctx, w.AudioURL, "dialogue take")
		if err != nil {
			return nil, err
		}

		if gain := gainToMatch(voicesDBFS, take.DBFS()); gain != 0 {
			take.ApplyGain(gain)
		}
		take.FitTo(w.DurationMS())
		work.OverlayAt(take, w.StartMS)

		m.logger.Debug("laid dialogue take",
			zap.String("dialogue_id", w.DialogueID),
			zap.String("character", w.CharacterName),
			zap.Int("start_ms", w.StartMS),
			zap.Int("duration_ms", w.DurationMS()),
		)
	}

	work.OverlayAt(background, 0)

	audioMP3, err := m.codec.EncodeMP3(ctx, work, m.bitrateKbps)
	if err != nil {
		return nil, apperrors.ErrCodecFailed("encode mix", err)
	}

	result := &Result{AudioMP3: audioMP3}

	if transcript.VideoURL != nil && *transcript.VideoURL != "" {
		video, err := m.remux(ctx, *transcript.VideoURL, audioMP3)
		if err != nil {
			// Audio-only output is still a successful mix.
			m.logger.Warn("video remux failed, returning audio only",
				zap.String("video_url", *transcript.VideoURL),
				zap.Error(err),
			)
		} else {
			result.VideoMP4 = video
		}
	}

	return result, nil
}

func (m *Mixer) fetchSegment(ctx context.Context, rawURL, what string) (*media.Segment, error) {
	data, err := m.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, apperrors.ErrFetchFailed(rawURL, err)
	}
	seg, err := m.codec.Decode(ctx, data, extOf(rawURL))
	if err != nil {
		return nil, apperrors.ErrCorruptSource(what, err)
	}
	return seg, nil
}

func (m *Mixer) remux(ctx context.Context, videoURL string, audioMP3 []byte) ([]byte, error) {
	video, err := m.fetcher.Fetch(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	return m.codec.MuxReplaceAudio(ctx, video, extOf(videoURL), audioMP3)
}

// gainToMatch returns the decibel adjustment that brings a take to the
// reference level. Silent material on either side leaves the take untouched.
func gainToMatch(referenceDBFS, takeDBFS float64) float64 {
	if math.IsInf(referenceDBFS, 0) || math.IsInf(takeDBFS, 0) {
		return 0
	}
	return referenceDBFS - takeDBFS
}

func extOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Ext(rawURL)
	}
	ext := path.Ext(u.Path)
	if ext == "" {
		return ".bin"
	}
	return strings.ToLower(ext)
}
