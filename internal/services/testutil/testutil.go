// Package testutil provides shared scene-graph fixtures for tests
// across this module, replacing the teacher's database-repository
// test harness with plain in-memory builders (this engine has no
// persistence layer; see DESIGN.md).
package testutil

import (
	"time"

	"github.com/lucsky/cuid"

	"github.com/lacylights-led/ledengine/internal/color"
	"github.com/lacylights-led/ledengine/internal/scene"
)

// RedPalette returns a palette with pure red at index 0 and black
// elsewhere, the common fixture used by scene-manager tests.
func RedPalette() *scene.Palette {
	return &scene.Palette{{R: 255}, {}, {}, {}, {}, {}}
}

// SolidSegment returns a segment of length n at position, fully
// bright, indexed at palette color 0, with no motion.
func SolidSegment(id, position, length int, start time.Time) *scene.Segment {
	return &scene.Segment{
		ID:               id,
		Color:            []int{0},
		Transparency:     []float64{0},
		Length:           []int{length},
		MoveRange:        [2]int{0, 0},
		CurrentPosition:  position,
		DimmerTime:       []scene.DimmerStage{{DurationMs: 1000, StartBrightness: 100, EndBrightness: 100}},
		SegmentStartTime: start,
	}
}

// BouncingSegment returns a segment moving at speed within
// [0, moveRangeHi], reflecting at the edges, for position-integrator
// tests.
func BouncingSegment(id int, speed float64, moveRangeHi, length, position int, start time.Time) *scene.Segment {
	return &scene.Segment{
		ID:               id,
		Color:            []int{0},
		Transparency:     []float64{0},
		Length:           []int{length},
		MoveSpeed:        speed,
		MoveRange:        [2]int{0, moveRangeHi},
		CurrentPosition:  position,
		IsEdgeReflect:    true,
		DimmerTime:       []scene.DimmerStage{{DurationMs: 1000, StartBrightness: 100, EndBrightness: 100}},
		SegmentStartTime: start,
	}
}

// SingleSegmentScene wraps one segment in a one-effect, one-palette
// scene of the given LED count, ready for Compositor/SceneManager
// tests.
func SingleSegmentScene(sceneID, ledCount int, seg *scene.Segment, palette *scene.Palette) *scene.Scene {
	effect := &scene.Effect{ID: 0, Segments: []*scene.Segment{seg}}
	return &scene.Scene{
		ID:       sceneID,
		LEDCount: ledCount,
		FPS:      60,
		Effects:  []*scene.Effect{effect},
		Palettes: []*scene.Palette{palette},
	}
}

// UniqueName generates a short, collision-resistant name for tests
// that need distinct identifiers across parallel sub-tests.
func UniqueName(prefix string) string {
	return prefix + "-" + cuid.New()[:8]
}

// AssertColorsEqual reports whether two framebuffers are identical,
// for tests that want a single call instead of an index loop.
func AssertColorsEqual(a, b []color.RGB) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
