package media

import (
	"fmt"
	"math"

	"github.com/go-audio/audio"
)

// All decoded audio is normalized to this format before any mixing math, so
// segments can be sliced and overlaid without resampling.
const (
	SampleRate  = 44100
	NumChannels = 2
	BitDepth    = 16

	fullScale = 32768.0
)

// Segment is an in-memory PCM clip in the normalized format. Data is
// interleaved int16 samples widened to int, the layout go-audio uses.
type Segment struct {
	Data []int
}

// NewSilence creates a segment of the given length filled with silence.
func NewSilence(ms int) *Segment {
	return &Segment{Data: make([]int, msToSamples(ms))}
}

// FromIntBuffer wraps a decoded PCM buffer, rejecting formats the mixer does
// not operate on.
func FromIntBuffer(buf *audio.IntBuffer) (*Segment, error) {
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("missing pcm format")
	}
	if buf.Format.SampleRate != SampleRate || buf.Format.NumChannels != NumChannels {
		return nil, fmt.Errorf("unexpected pcm format: %d Hz, %d channels",
			buf.Format.SampleRate, buf.Format.NumChannels)
	}
	return &Segment{Data: buf.Data}, nil
}

// IntBuffer returns the segment as a go-audio buffer for encoding.
func (s *Segment) IntBuffer() *audio.IntBuffer {
	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: NumChannels, SampleRate: SampleRate},
		Data:           s.Data,
		SourceBitDepth: BitDepth,
	}
}

// DurationMS returns the segment length in whole milliseconds.
func (s *Segment) DurationMS() int {
	frames := len(s.Data) / NumChannels
	return frames * 1000 / SampleRate
}

// Clone returns a deep copy of the segment.
func (s *Segment) Clone() *Segment {
	out := make([]int, len(s.Data))
	copy(out, s.Data)
	return &Segment{Data: out}
}

// Slice returns a copy of the [startMS, endMS) range, clamped to the segment.
func (s *Segment) Slice(startMS, endMS int) *Segment {
	lo := clamp(msToSamples(startMS), 0, len(s.Data))
	hi := clamp(msToSamples(endMS), lo, len(s.Data))
	out := make([]int, hi-lo)
	copy(out, s.Data[lo:hi])
	return &Segment{Data: out}
}

// FitTo trims or pads the segment with trailing silence to exactly ms long.
func (s *Segment) FitTo(ms int) {
	want := msToSamples(ms)
	if len(s.Data) >= want {
		s.Data = s.Data[:want]
		return
	}
	s.Data = append(s.Data, make([]int, want-len(s.Data))...)
}

// SilenceRange zeroes the [startMS, endMS) range in place.
func (s *Segment) SilenceRange(startMS, endMS int) {
	lo := clamp(msToSamples(startMS), 0, len(s.Data))
	hi := clamp(msToSamples(endMS), lo, len(s.Data))
	for i := lo; i < hi; i++ {
		s.Data[i] = 0
	}
}

// DBFS returns the RMS level relative to full scale. Pure silence returns
// negative infinity.
func (s *Segment) DBFS() float64 {
	if len(s.Data) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, v := range s.Data {
		f := float64(v)
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(len(s.Data)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/fullScale)
}

// ApplyGain scales the segment by the given decibels, clipping to 16-bit
// range.
func (s *Segment) ApplyGain(db float64) {
	if db == 0 || math.IsInf(db, 0) || math.IsNaN(db) {
		return
	}
	factor := math.Pow(10, db/20)
	for i, v := range s.Data {
		s.Data[i] = clipSample(int(math.Round(float64(v) * factor)))
	}
}

// OverlayAt mixes other into the segment starting at atMS. Samples of other
// that run past the end of the base are dropped, matching overlay semantics
// where the base length is authoritative.
func (s *Segment) OverlayAt(other *Segment, atMS int) {
	at := msToSamples(atMS)
	for i, v := range other.Data {
		j := at + i
		if j < 0 {
			continue
		}
		if j >= len(s.Data) {
			break
		}
		s.Data[j] = clipSample(s.Data[j] + v)
	}
}

func msToSamples(ms int) int {
	// Round frames down and keep the channel interleave intact.
	frames := ms * SampleRate / 1000
	return frames * NumChannels
}

func clipSample(v int) int {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
