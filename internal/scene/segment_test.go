package scene

import (
	"testing"
	"time"

	"github.com/lacylights-led/ledengine/internal/color"
)

func redPalette() *Palette {
	return &Palette{
		{R: 255, G: 0, B: 0},
		{}, {}, {}, {}, {},
	}
}

// Seed scenario 1: single solid red segment.
func TestEffectRenderSolidSegment(t *testing.T) {
	t0 := time.Unix(0, 0)
	seg := &Segment{
		ID:               0,
		Color:            []int{0},
		Transparency:     []float64{0},
		Length:           []int{5},
		MoveSpeed:        0,
		MoveRange:        [2]int{0, 0},
		CurrentPosition:  2,
		IsEdgeReflect:    false,
		DimmerTime:       []DimmerStage{{DurationMs: 1000, StartBrightness: 100, EndBrightness: 100}},
		SegmentStartTime: t0,
	}
	effect := &Effect{ID: 0, Segments: []*Segment{seg}}

	acc := color.NewAccumulator()
	effect.Render(redPalette(), acc, t0, 10)

	fb := make([]color.RGB, 10)
	acc.Finalize(fb)

	want := []color.RGB{
		{}, {}, {R: 255}, {R: 255}, {R: 255}, {R: 255}, {R: 255}, {}, {}, {},
	}
	for i := range want {
		if fb[i] != want[i] {
			t.Errorf("fb[%d] = %+v, want %+v", i, fb[i], want[i])
		}
	}
}

// Seed scenario 2: dimmer ramp, 0 -> 100% over 1s; at t0+0.5s each lit
// LED must equal (127,0,0) +/- 1.
func TestDimmerRampHalfway(t *testing.T) {
	t0 := time.Unix(0, 0)
	seg := &Segment{
		Color:            []int{0},
		Transparency:     []float64{0},
		Length:           []int{5},
		MoveRange:        [2]int{0, 0},
		CurrentPosition:  2,
		DimmerTime:       []DimmerStage{{DurationMs: 1000, StartBrightness: 0, EndBrightness: 100}},
		SegmentStartTime: t0,
	}

	now := t0.Add(500 * time.Millisecond)
	colors := seg.Colors(redPalette(), now)
	if len(colors) != 5 {
		t.Fatalf("len(colors) = %d, want 5", len(colors))
	}
	for i, c := range colors {
		if c.R < 126 || c.R > 128 {
			t.Errorf("colors[%d].R = %d, want 127+/-1", i, c.R)
		}
	}
}

// Seed scenario 3: edge reflection.
func TestEdgeReflection(t *testing.T) {
	t0 := time.Unix(100, 0)
	seg := &Segment{
		Color:            []int{0},
		Transparency:     []float64{0},
		Length:           []int{3},
		MoveSpeed:        5,
		MoveRange:        [2]int{0, 9},
		CurrentPosition:  8,
		IsEdgeReflect:    true,
		DimmerTime:       []DimmerStage{{DurationMs: 1000, StartBrightness: 100, EndBrightness: 100}},
		SegmentStartTime: t0,
	}

	now := t0.Add(time.Second)
	seg.UpdatePosition(1.0, now)

	if seg.CurrentPosition != 7 {
		t.Errorf("CurrentPosition = %d, want 7", seg.CurrentPosition)
	}
	if seg.MoveSpeed != -5 {
		t.Errorf("MoveSpeed = %v, want -5", seg.MoveSpeed)
	}
	if now.Sub(seg.SegmentStartTime) > 400*time.Millisecond {
		t.Errorf("segment_start_time not reset recently: now-start = %v", now.Sub(seg.SegmentStartTime))
	}
}

func TestPaletteIndexOutOfRangeYieldsBlack(t *testing.T) {
	seg := &Segment{
		Color:            []int{9},
		Transparency:     []float64{0},
		Length:           []int{1},
		MoveRange:        [2]int{0, 0},
		DimmerTime:       []DimmerStage{{DurationMs: 1000, StartBrightness: 100, EndBrightness: 100}},
		SegmentStartTime: time.Unix(0, 0),
	}
	colors := seg.Colors(redPalette(), time.Unix(0, 0))
	if len(colors) != 1 || colors[0] != color.Black {
		t.Errorf("colors = %+v, want [black]", colors)
	}
}

func TestMoveRangeZeroZeroDisablesMotion(t *testing.T) {
	seg := &Segment{
		MoveSpeed:       10,
		MoveRange:       [2]int{0, 0},
		CurrentPosition: 3,
	}
	seg.UpdatePosition(1.0, time.Unix(0, 0))
	if seg.CurrentPosition != 3 {
		t.Errorf("CurrentPosition = %d, want unchanged 3", seg.CurrentPosition)
	}
}

func TestSpeedZeroHaltsPositionButNotDimmer(t *testing.T) {
	t0 := time.Unix(0, 0)
	seg := &Segment{
		Color:            []int{0},
		Transparency:     []float64{0},
		Length:           []int{1},
		MoveSpeed:        0,
		MoveRange:        [2]int{0, 9},
		CurrentPosition:  3,
		DimmerTime:       []DimmerStage{{DurationMs: 1000, StartBrightness: 0, EndBrightness: 100}},
		SegmentStartTime: t0,
	}
	seg.UpdatePosition(1.0, t0.Add(time.Second))
	if seg.CurrentPosition != 3 {
		t.Errorf("CurrentPosition = %d, want unchanged 3 at speed 0", seg.CurrentPosition)
	}
	factor := seg.DimmerFactor(t0.Add(500 * time.Millisecond))
	if factor < 0.49 || factor > 0.51 {
		t.Errorf("DimmerFactor = %v, want ~0.5 (dimmer unaffected by speed)", factor)
	}
}
