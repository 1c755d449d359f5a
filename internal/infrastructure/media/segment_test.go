package media

import (
	"math"
	"testing"
)

func constantSegment(ms int, value int) *Segment {
	s := NewSilence(ms)
	for i := range s.Data {
		s.Data[i] = value
	}
	return s
}

func TestNewSilence_Duration(t *testing.T) {
	s := NewSilence(2000)
	if got := s.DurationMS(); got != 2000 {
		t.Fatalf("expected 2000ms got %d", got)
	}
	if got := s.DBFS(); !math.IsInf(got, -1) {
		t.Fatalf("expected -inf dBFS for silence, got %f", got)
	}
}

func TestSlice_Clamped(t *testing.T) {
	s := constantSegment(1000, 100)

	part := s.Slice(200, 700)
	if got := part.DurationMS(); got != 500 {
		t.Fatalf("expected 500ms slice got %d", got)
	}

	// Out-of-range bounds clamp instead of panicking.
	over := s.Slice(800, 5000)
	if got := over.DurationMS(); got != 200 {
		t.Fatalf("expected 200ms clamped slice got %d", got)
	}
}

func TestFitTo_TrimAndPad(t *testing.T) {
	long := constantSegment(1500, 50)
	long.FitTo(1000)
	if got := long.DurationMS(); got != 1000 {
		t.Fatalf("expected trim to 1000ms got %d", got)
	}

	short := constantSegment(400, 50)
	short.FitTo(1000)
	if got := short.DurationMS(); got != 1000 {
		t.Fatalf("expected pad to 1000ms got %d", got)
	}
	// Padding is silence.
	if got := short.Data[len(short.Data)-1]; got != 0 {
		t.Fatalf("expected trailing silence got %d", got)
	}
	if got := short.Data[0]; got != 50 {
		t.Fatalf("expected original samples preserved got %d", got)
	}
}

func TestSilenceRange(t *testing.T) {
	s := constantSegment(1000, 80)
	s.SilenceRange(250, 750)

	if got := s.Data[msToSamples(500)]; got != 0 {
		t.Fatalf("expected silence inside range got %d", got)
	}
	if got := s.Data[msToSamples(100)]; got != 80 {
		t.Fatalf("expected untouched sample before range got %d", got)
	}
	if got := s.Data[msToSamples(900)]; got != 80 {
		t.Fatalf("expected untouched sample after range got %d", got)
	}
}

func TestDBFS_FullScale(t *testing.T) {
	s := constantSegment(100, 32768)
	if got := s.DBFS(); math.Abs(got) > 0.001 {
		t.Fatalf("expected ~0 dBFS at full scale got %f", got)
	}

	half := constantSegment(100, 16384)
	if got := half.DBFS(); math.Abs(got-(-6.0206)) > 0.01 {
		t.Fatalf("expected ~-6.02 dBFS at half scale got %f", got)
	}
}

func TestApplyGain(t *testing.T) {
	s := constantSegment(100, 1000)
	s.ApplyGain(6.0206) // double the amplitude
	if got := s.Data[0]; got < 1990 || got > 2010 {
		t.Fatalf("expected ~2000 after +6dB got %d", got)
	}

	// Gain clips to the 16-bit range instead of wrapping.
	loud := constantSegment(100, 30000)
	loud.ApplyGain(20)
	if got := loud.Data[0]; got != 32767 {
		t.Fatalf("expected clip to 32767 got %d", got)
	}
}

func TestApplyGain_InfNoop(t *testing.T) {
	s := constantSegment(100, 1000)
	s.ApplyGain(math.Inf(-1))
	if got := s.Data[0]; got != 1000 {
		t.Fatalf("expected infinite gain to be ignored, got %d", got)
	}
}

func TestOverlayAt(t *testing.T) {
	base := constantSegment(1000, 100)
	take := constantSegment(200, 50)

	base.OverlayAt(take, 300)

	if got := base.Data[msToSamples(400)]; got != 150 {
		t.Fatalf("expected mixed sample 150 got %d", got)
	}
	if got := base.Data[msToSamples(100)]; got != 100 {
		t.Fatalf("expected base-only sample before overlay got %d", got)
	}
	if got := base.Data[msToSamples(600)]; got != 100 {
		t.Fatalf("expected base-only sample after overlay got %d", got)
	}
}

func TestOverlayAt_TruncatesAtEnd(t *testing.T) {
	base := constantSegment(500, 10)
	take := constantSegment(1000, 20)

	base.OverlayAt(take, 400)

	if got := base.DurationMS(); got != 500 {
		t.Fatalf("overlay must not extend the base, got %dms", got)
	}
	if got := base.Data[msToSamples(450)]; got != 30 {
		t.Fatalf("expected mixed sample 30 got %d", got)
	}
}

func TestOverlayAt_ClipsSum(t *testing.T) {
	base := constantSegment(100, 30000)
	take := constantSegment(100, 30000)

	base.OverlayAt(take, 0)

	if got := base.Data[0]; got != 32767 {
		t.Fatalf("expected clipped sum 32767 got %d", got)
	}
}
