package scene

import (
	"time"

	"github.com/lacylights-led/ledengine/internal/color"
)

// Scene owns an ordered set of Effects and Palettes and exposes the
// current pattern selection, per §3/§4.4.
type Scene struct {
	ID       int
	LEDCount int
	FPS      int

	Effects  []*Effect
	Palettes []*Palette

	CurrentEffectID  int
	CurrentPaletteID int
}

// EffectByID returns the effect with the given id, if present.
func (s *Scene) EffectByID(id int) (*Effect, bool) {
	for _, e := range s.Effects {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// HasEffect reports whether an effect with the given id exists.
func (s *Scene) HasEffect(id int) bool {
	_, ok := s.EffectByID(id)
	return ok
}

// PaletteByID returns the palette at the given index, if in range.
func (s *Scene) PaletteByID(id int) (*Palette, bool) {
	if id < 0 || id >= len(s.Palettes) {
		return nil, false
	}
	return s.Palettes[id], true
}

// HasPalette reports whether a palette with the given id exists.
func (s *Scene) HasPalette(id int) bool {
	_, ok := s.PaletteByID(id)
	return ok
}

// CurrentEffect returns the effect selected by CurrentEffectID.
func (s *Scene) CurrentEffect() (*Effect, bool) {
	return s.EffectByID(s.CurrentEffectID)
}

// CurrentPalette returns the palette selected by CurrentPaletteID.
func (s *Scene) CurrentPalette() (*Palette, bool) {
	return s.PaletteByID(s.CurrentPaletteID)
}

// Render selects the current effect and palette and renders them into
// acc. Missing effect/palette selections render nothing.
func (s *Scene) Render(acc *color.Accumulator, now time.Time) {
	effect, ok := s.CurrentEffect()
	if !ok {
		return
	}
	palette, ok := s.CurrentPalette()
	if !ok {
		return
	}
	effect.Render(palette, acc, now, s.LEDCount)
}
