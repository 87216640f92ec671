// Package scene implements the animation data model of §3: segments with
// time-driven dimmer envelopes, reflective or wrapping position
// integrators, and palette-indexed rendering, composed into effects and
// scenes.
package scene

import (
	"math"
	"time"

	"github.com/lacylights-led/ledengine/internal/color"
)

// Palette is an ordered sequence of exactly six colors, indexed [0,5].
type Palette [6]color.RGB

// DimmerStage is one (duration, start%, end%) leg of a dimmer envelope.
type DimmerStage struct {
	DurationMs      int
	StartBrightness float64 // percent, [0,100]
	EndBrightness   float64 // percent, [0,100]
}

// Segment is the smallest animated unit: a contiguous strip of LEDs
// sharing a motion and dimmer envelope, composed of one or more parts
// with per-part palette index, transparency and length.
type Segment struct {
	ID int

	Color        []int
	Transparency []float64
	Length       []int

	MoveSpeed       float64 // signed LEDs/sec; sign encodes direction
	MoveRange       [2]int  // [min, max]; [0,0] disables reflection/clamping
	InitialPosition int
	CurrentPosition int
	IsEdgeReflect   bool

	DimmerTime       []DimmerStage
	SegmentStartTime time.Time

	fractionalAccum float64
}

// anchored reports whether this segment's motion/bounds are disabled
// (the move_range == [0,0] special case).
func (s *Segment) anchored() bool {
	return s.MoveRange[0] == 0 && s.MoveRange[1] == 0
}

// TotalLEDCount returns the number of LEDs this segment emits: the sum
// of Length, plus one LED for each trailing Color entry beyond the end
// of Length.
func (s *Segment) TotalLEDCount() int {
	total := 0
	for _, l := range s.Length {
		if l > 0 {
			total += l
		}
	}
	if len(s.Color) > len(s.Length) {
		total += len(s.Color) - len(s.Length)
	}
	return total
}

// ResetTiming resets the dimmer envelope's wall-clock anchor. Called
// whenever the position integrator changes direction or the segment
// is explicitly reset, per the invariant in §4.2: only position code
// may write segment_start_time; dimmer reads never write state.
func (s *Segment) ResetTiming(now time.Time) {
	s.SegmentStartTime = now
}

// ResetPosition returns the segment to its initial position and
// restarts the dimmer envelope.
func (s *Segment) ResetPosition(now time.Time) {
	s.CurrentPosition = s.InitialPosition
	s.fractionalAccum = 0
	s.ResetTiming(now)
}

// DimmerFactor samples the piecewise-linear dimmer envelope at now,
// returning a brightness factor in [0,1]. See §4.2.
func (s *Segment) DimmerFactor(now time.Time) float64 {
	if len(s.DimmerTime) == 0 {
		return 1.0
	}

	var cycle float64
	for _, stage := range s.DimmerTime {
		d := stage.DurationMs
		if d < 1 {
			d = 1
		}
		cycle += float64(d)
	}
	if cycle <= 0 {
		return 1.0
	}

	elapsedMs := now.Sub(s.SegmentStartTime).Seconds() * 1000
	t := mod(elapsedMs, cycle)

	var cursor float64
	for _, stage := range s.DimmerTime {
		d := float64(stage.DurationMs)
		if d < 1 {
			d = 1
		}
		if t <= cursor+d {
			if stage.StartBrightness == stage.EndBrightness {
				return clamp01Pct(stage.StartBrightness)
			}
			progress := (t - cursor) / d
			progress = clampFloat(progress, 0, 1)
			b := stage.StartBrightness + (stage.EndBrightness-stage.StartBrightness)*progress
			return clamp01Pct(b)
		}
		cursor += d
	}

	last := s.DimmerTime[len(s.DimmerTime)-1].EndBrightness
	return clamp01Pct(last)
}

// UpdatePosition advances the position integrator by dtScaled seconds
// of (already speed-scaled) time, per §4.2.
func (s *Segment) UpdatePosition(dtScaled float64, now time.Time) {
	if s.anchored() {
		return
	}
	if s.MoveSpeed == 0 {
		return
	}

	s.fractionalAccum += s.MoveSpeed * dtScaled
	if step := int(s.fractionalAccum); step != 0 {
		s.CurrentPosition += step
		s.fractionalAccum -= float64(step)
	}

	lo, hi := s.MoveRange[0], s.MoveRange[1]
	hiEff := hi - s.TotalLEDCount() + 1
	if hiEff < lo {
		hiEff = lo
	}

	if s.IsEdgeReflect {
		directionChanged := false
		switch {
		case s.CurrentPosition <= lo:
			s.CurrentPosition = lo
			if s.MoveSpeed < 0 {
				s.MoveSpeed = -s.MoveSpeed
				directionChanged = true
			}
		case s.CurrentPosition >= hiEff:
			s.CurrentPosition = hiEff
			if s.MoveSpeed > 0 {
				s.MoveSpeed = -s.MoveSpeed
				directionChanged = true
			}
		}
		if directionChanged {
			s.ResetTiming(now)
			s.fractionalAccum = 0
		}
		return
	}

	// Wrap mode: fold current_position into [lo, hiEff].
	rangeSize := hiEff - lo + 1
	if rangeSize <= 0 {
		s.CurrentPosition = lo
		return
	}
	if s.CurrentPosition < lo || s.CurrentPosition > hiEff {
		offset := s.CurrentPosition - lo
		s.CurrentPosition = lo + int(mod(float64(offset), float64(rangeSize)))
	}
}

// Colors returns the ordered list of rendered LED colors for this
// segment at `now`, applying palette lookup, per-part transparency and
// the current dimmer factor. Returns an empty slice when the dimmer
// factor is zero (semantically equivalent to all-black, per §4.2).
func (s *Segment) Colors(palette *Palette, now time.Time) []color.RGB {
	if len(s.Color) == 0 || palette == nil {
		return nil
	}

	brightness := s.DimmerFactor(now)
	if brightness <= 0 {
		return nil
	}

	colors := make([]color.RGB, 0, s.TotalLEDCount())

	for i := 0; i < len(s.Length); i++ {
		partLen := s.Length[i]
		if partLen <= 0 {
			continue
		}
		base := paletteColor(palette, colorIndexAt(s.Color, i))
		transparency := transparencyAt(s.Transparency, i)
		final := color.ApplyBrightness(color.ApplyTransparency(base, transparency), brightness)
		for n := 0; n < partLen; n++ {
			colors = append(colors, final)
		}
	}

	for i := len(s.Length); i < len(s.Color); i++ {
		base := paletteColor(palette, s.Color[i])
		transparency := transparencyAt(s.Transparency, i)
		final := color.ApplyBrightness(color.ApplyTransparency(base, transparency), brightness)
		colors = append(colors, final)
	}

	return colors
}

func colorIndexAt(colorIdx []int, i int) int {
	if i < len(colorIdx) {
		return colorIdx[i]
	}
	return 0
}

func transparencyAt(t []float64, i int) float64 {
	if i < len(t) {
		return t[i]
	}
	return 0
}

func paletteColor(p *Palette, index int) color.RGB {
	if index < 0 || index >= len(p) {
		return color.Black
	}
	return p[index]
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01Pct(pct float64) float64 {
	return clampFloat(pct, 0, 100) / 100.0
}

// mod returns a non-negative floating-point modulo, matching Python's
// `%` semantics used by the reference implementation (unlike Go's `%`
// truncated-division operator).
func mod(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := math.Mod(a, b)
	if r < 0 {
		r += b
	}
	return r
}
