// Package scenemanager implements the orchestration and speed model
// of §4.7: scene library ownership, parameter-only selection
// mutations, pattern activation through the dissolve engine, and the
// process-wide speed/brightness model, guarded by a single mutex per
// §5.
package scenemanager

import (
	"sort"
	"sync"
	"time"

	"github.com/lacylights-led/ledengine/internal/color"
	"github.com/lacylights-led/ledengine/internal/compositor"
	"github.com/lacylights-led/ledengine/internal/dissolve"
	"github.com/lacylights-led/ledengine/internal/errs"
	"github.com/lacylights-led/ledengine/internal/scene"
)

// speedKey identifies a Segment's entry in the original-speed map,
// keyed by (scene_id, effect_id, segment_id) per §4.7/§3.
type speedKey struct {
	SceneID, EffectID, SegmentID int
}

// Manager owns the scene library, current selection, dissolve engine
// and schedule registry, and the speed/brightness model. All mutable
// state is guarded by mu; callers never need their own locking.
type Manager struct {
	mu sync.Mutex

	scenes map[int]*scene.Scene

	currentSceneID   int
	currentEffectID  int
	currentPaletteID int
	hasSelection     bool

	activePattern    dissolve.PatternState
	hasActivated     bool

	originalSpeed map[speedKey]float64

	speedPercent     int // [0,1023]
	masterBrightness uint8

	dissolveEngine *dissolve.Engine
	schedules      *dissolve.ScheduleRegistry

	comp *compositor.Compositor
}

// New returns an empty Manager with default speed 100% and full
// master brightness.
func New() *Manager {
	return &Manager{
		scenes:           make(map[int]*scene.Scene),
		originalSpeed:    make(map[speedKey]float64),
		speedPercent:     100,
		masterBrightness: 255,
		dissolveEngine:   dissolve.NewEngine(),
		schedules:        dissolve.NewScheduleRegistry(),
		comp:             compositor.New(),
	}
}

// Schedules exposes the dissolve schedule registry for load/select
// commands (§4.8); it has its own internal locking and is independent
// of Manager's mutex.
func (m *Manager) Schedules() *dissolve.ScheduleRegistry {
	return m.schedules
}

// LoadScenes replaces the scene library, rebuilds the original-speed
// map from every loaded Segment's move_speed, resets every segment's
// dimmer timing anchor to now (the scene document format of §6.3
// carries no segment_start_time field), and — if nothing is currently
// selected — selects the lowest-id scene, its lowest-id effect and
// palette. Does not auto-activate a pattern.
func (m *Manager) LoadScenes(scenes []*scene.Scene, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scenes = make(map[int]*scene.Scene, len(scenes))
	m.originalSpeed = make(map[speedKey]float64)

	ids := make([]int, 0, len(scenes))
	for _, s := range scenes {
		m.scenes[s.ID] = s
		ids = append(ids, s.ID)
		for _, e := range s.Effects {
			for _, seg := range e.Segments {
				m.originalSpeed[speedKey{s.ID, e.ID, seg.ID}] = seg.MoveSpeed
				seg.ResetTiming(now)
			}
		}
	}
	sort.Ints(ids)

	if !m.hasSelection && len(ids) > 0 {
		s := m.scenes[ids[0]]
		m.currentSceneID = s.ID
		if len(s.Effects) > 0 {
			m.currentEffectID = minEffectID(s.Effects)
		}
		if len(s.Palettes) > 0 {
			m.currentPaletteID = 0
		}
		m.hasSelection = true
	}
}

func minEffectID(effects []*scene.Effect) int {
	min := effects[0].ID
	for _, e := range effects[1:] {
		if e.ID < min {
			min = e.ID
		}
	}
	return min
}

// OriginalSpeed returns the JSON-loaded move_speed for a segment,
// keyed by its owning scene and effect ids. Used by callers that need
// to restore a segment's speed without recomputing it (e.g. a future
// "reset to loaded speed" command); rebuilt only by LoadScenes, stable
// across every other mutation (invariant #8).
func (m *Manager) OriginalSpeed(sceneID, effectID, segmentID int) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.originalSpeed[speedKey{sceneID, effectID, segmentID}]
	return v, ok
}

// SetScene validates scene_id against the loaded library and updates
// the current-scene selection without triggering a dissolve.
func (m *Manager) SetScene(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scenes[id]; !ok {
		return &errs.ValidationError{Address: "/change_scene", Value: id, Reason: "unknown scene_id"}
	}
	m.currentSceneID = id
	m.hasSelection = true
	return nil
}

// SetEffect validates effect_id within the current scene and updates
// the current-effect selection without triggering a dissolve.
func (m *Manager) SetEffect(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scenes[m.currentSceneID]
	if !ok || !s.HasEffect(id) {
		return &errs.ValidationError{Address: "/change_effect", Value: id, Reason: "unknown effect_id in current scene"}
	}
	m.currentEffectID = id
	return nil
}

// SetPalette validates palette_id within the current scene and
// updates the current-palette selection without triggering a
// dissolve.
func (m *Manager) SetPalette(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scenes[m.currentSceneID]
	if !ok || !s.HasPalette(id) {
		return &errs.ValidationError{Address: "/change_palette", Value: id, Reason: "unknown palette_id in current scene"}
	}
	m.currentPaletteID = id
	return nil
}

// UpdatePaletteColor clamps r,g,b to [0,255] and writes palette p,
// color c of the current scene.
func (m *Manager) UpdatePaletteColor(paletteID, colorID, r, g, b int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scenes[m.currentSceneID]
	if !ok {
		return &errs.ValidationError{Address: "/palette", Value: paletteID, Reason: "no scene loaded"}
	}
	pal, ok := s.PaletteByID(paletteID)
	if !ok {
		return &errs.ValidationError{Address: "/palette", Value: paletteID, Reason: "unknown palette_id"}
	}
	if colorID < 0 || colorID > 5 {
		return &errs.ValidationError{Address: "/palette", Value: colorID, Reason: "color index out of [0,5]"}
	}
	pal[colorID] = color.RGB{R: clampByte(r), G: clampByte(g), B: clampByte(b)}
	return nil
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// SetSpeedPercent clamps percent to [0,1023] and updates the
// process-wide speed scalar, returning a ClampWarning (not a failure)
// when clamping occurred.
func (m *Manager) SetSpeedPercent(percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clamped := clampInt(percent, 0, 1023)
	m.speedPercent = clamped
	if clamped != percent {
		return &errs.ClampWarning{Address: "/set_speed_percent", Observed: percent, Clamped: clamped}
	}
	return nil
}

// SetMasterBrightness clamps brightness to [0,255].
func (m *Manager) SetMasterBrightness(brightness int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clamped := clampInt(brightness, 0, 255)
	m.masterBrightness = uint8(clamped)
	if clamped != brightness {
		return &errs.ClampWarning{Address: "/master_brightness", Observed: brightness, Clamped: clamped}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ChangePattern activates the current (scene, effect, palette)
// selection. The first activation since load fades in from black;
// every later call crossfades from the previously active pattern. The
// dissolve schedule used is the registry's current schedule, or an
// empty one (instantaneous) if none is selected.
func (m *Manager) ChangePattern(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.scenes[m.currentSceneID]
	if !ok {
		return &errs.ValidationError{Address: "/change_pattern", Value: m.currentSceneID, Reason: "no scene loaded"}
	}
	target := dissolve.PatternState{
		SceneID:   m.currentSceneID,
		EffectID:  m.currentEffectID,
		PaletteID: m.currentPaletteID,
	}

	var old dissolve.PatternState
	if m.hasActivated {
		old = m.activePattern
	} else {
		old = dissolve.PatternState{SceneID: -1}
	}

	sched, _ := m.schedules.Current()

	m.dissolveEngine.Start(old, target, sched, s.LEDCount, now)
	m.activePattern = target
	m.hasActivated = true
	return nil
}

// Advance steps the animation state by dt_wall seconds of wall-clock
// time, scaling position integration by speed_percent/100 (§4.7).
// Dimmer envelopes read segment_start_time directly and are
// unaffected. When a dissolve is active, both the old and new
// patterns' Effects are advanced, each distinct (scene_id, effect_id)
// pair at most once.
func (m *Manager) Advance(dtWall time.Duration, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked(dtWall, now)
}

// advanceLocked is Advance's body; callers must already hold m.mu.
func (m *Manager) advanceLocked(dtWall time.Duration, now time.Time) {
	dtScaled := dtWall.Seconds() * (float64(m.speedPercent) / 100.0)

	type pair struct{ sceneID, effectID int }
	seen := make(map[pair]bool, 2)

	advance := func(p dissolve.PatternState) {
		if p.SceneID < 0 {
			return
		}
		key := pair{p.SceneID, p.EffectID}
		if seen[key] {
			return
		}
		seen[key] = true
		s, ok := m.scenes[p.SceneID]
		if !ok {
			return
		}
		e, ok := s.EffectByID(p.EffectID)
		if !ok {
			return
		}
		e.Advance(dtScaled, now)
	}

	if m.dissolveEngine.IsActive() {
		old, newP := m.dissolveEngine.Patterns()
		advance(old)
		advance(newP)
	} else if m.hasActivated {
		advance(m.activePattern)
	}
}

// RenderFrame renders the active pattern (or the in-progress
// crossfade) at time now, applying master brightness last.
func (m *Manager) RenderFrame(now time.Time) []color.RGB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderFrameLocked(now)
}

// renderFrameLocked is RenderFrame's body; callers must already hold m.mu.
func (m *Manager) renderFrameLocked(now time.Time) []color.RGB {
	if m.dissolveEngine.IsActive() {
		fb := m.dissolveEngine.RenderFrame(m, now)
		for i, px := range fb {
			fb[i] = color.ApplyMasterBrightness(px, m.masterBrightness)
		}
		return fb
	}

	if !m.hasActivated {
		return nil
	}
	s, ok := m.scenes[m.activePattern.SceneID]
	if !ok {
		return nil
	}
	return m.comp.Render(bindSelection(s, m.activePattern), now, m.masterBrightness)
}

// Tick advances and renders one frame as a single critical section,
// per §5 ("the render thread acquires the lock for the duration of
// advance + render_frame"): a control command cannot land between the
// two halves and observe, e.g., a dissolve that was just started by
// /change_pattern but never advanced before its first render. The
// scheduler calls this instead of Advance/RenderFrame separately.
func (m *Manager) Tick(dtWall time.Duration, now time.Time) []color.RGB {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked(dtWall, now)
	return m.renderFrameLocked(now)
}

// RenderPattern implements dissolve.PatternRenderer: it temporarily
// binds the scene's current effect/palette selection to p, renders
// without master brightness, and restores the prior selection. Called
// by Engine.RenderFrame while m.mu is already held by RenderFrame, so
// it must not re-lock.
func (m *Manager) RenderPattern(p dissolve.PatternState, now time.Time) []color.RGB {
	s, ok := m.scenes[p.SceneID]
	if !ok {
		return nil
	}
	savedEffect, savedPalette := s.CurrentEffectID, s.CurrentPaletteID
	s.CurrentEffectID = p.EffectID
	s.CurrentPaletteID = p.PaletteID
	fb := m.comp.RenderRaw(s, now)
	s.CurrentEffectID, s.CurrentPaletteID = savedEffect, savedPalette
	return fb
}

func bindSelection(s *scene.Scene, p dissolve.PatternState) *scene.Scene {
	s.CurrentEffectID = p.EffectID
	s.CurrentPaletteID = p.PaletteID
	return s
}

// Selection returns the current (scene, effect, palette) selection.
func (m *Manager) Selection() (sceneID, effectID, paletteID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentSceneID, m.currentEffectID, m.currentPaletteID
}

// LEDCount returns the current scene's LED count, or 0 if none is
// selected.
func (m *Manager) LEDCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.scenes[m.currentSceneID]; ok {
		return s.LEDCount
	}
	return 0
}

// HasActivated reports whether /change_pattern has ever succeeded.
func (m *Manager) HasActivated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasActivated
}

// SpeedPercent returns the current process-wide speed scalar.
func (m *Manager) SpeedPercent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speedPercent
}

// MasterBrightness returns the current master brightness.
func (m *Manager) MasterBrightness() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.masterBrightness
}

// SceneIDs returns the sorted list of loaded scene ids, for status
// reporting.
func (m *Manager) SceneIDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.scenes))
	for id := range m.scenes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
