package scene

import (
	"time"

	"github.com/lacylights-led/ledengine/internal/color"
)

// Effect owns an ordered set of Segments and advances their state per
// tick, per §4.3.
type Effect struct {
	ID       int
	Segments []*Segment
}

// Advance advances every segment's position integrator using
// dtScaled, the already speed-scaled tick duration.
func (e *Effect) Advance(dtScaled float64, now time.Time) {
	for _, seg := range e.Segments {
		seg.UpdatePosition(dtScaled, now)
	}
}

// Render writes every segment's current contribution into acc at
// weight 1.0, clipping each moving segment's head position to the
// framebuffer bounds. An anchored (move_range [0,0]) segment's head is
// only clamped at 0; its LEDs past the end of the framebuffer are
// dropped when the accumulator is finalized.
func (e *Effect) Render(palette *Palette, acc *color.Accumulator, now time.Time, ledCount int) {
	for _, seg := range e.Segments {
		colors := seg.Colors(palette, now)
		if len(colors) == 0 {
			continue
		}

		var base int
		if seg.anchored() {
			base = seg.CurrentPosition
			if base < 0 {
				base = 0
			}
		} else {
			base = clampInt(seg.CurrentPosition, 0, ledCount-1)
		}

		for k, c := range colors {
			acc.Add(base+k, c, 1.0)
		}
	}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
