// Package compositor renders a scene's current effect against its
// current palette into an LED framebuffer, per §4.5.
package compositor

import (
	"time"

	"github.com/lacylights-led/ledengine/internal/color"
	"github.com/lacylights-led/ledengine/internal/scene"
)

// Compositor builds framebuffers from a scene using a reusable
// weighted-averaging accumulator.
type Compositor struct {
	acc *color.Accumulator
}

// New returns a Compositor with a fresh accumulator.
func New() *Compositor {
	return &Compositor{acc: color.NewAccumulator()}
}

// Render builds a framebuffer for s at time now, sized to s.LEDCount,
// with masterBrightness applied per LED as the final step.
func (c *Compositor) Render(s *scene.Scene, now time.Time, masterBrightness uint8) []color.RGB {
	fb := make([]color.RGB, s.LEDCount)

	c.acc.Reset()
	s.Render(c.acc, now)
	c.acc.Finalize(fb)

	for i, px := range fb {
		fb[i] = color.ApplyMasterBrightness(px, masterBrightness)
	}
	return fb
}

// RenderRaw builds a framebuffer without master brightness applied,
// used internally by the dissolve engine to render each side of a
// crossfade before blending (§4.6 step 1/2: "without master brightness
// or dissolve recursion").
func (c *Compositor) RenderRaw(s *scene.Scene, now time.Time) []color.RGB {
	fb := make([]color.RGB, s.LEDCount)
	c.acc.Reset()
	s.Render(c.acc, now)
	c.acc.Finalize(fb)
	return fb
}
