package dissolve

import (
	"fmt"
	"sort"
	"sync"
)

// ScheduleRegistry holds the library of named dissolve schedules and
// the currently selected one, independent of SceneManager state
// (§4.8). Grounded on the original implementation's
// DissolvePatternManager (original_source/src/utils/dissolve_pattern.py).
// Guarded by its own mutex since it is reached directly from
// control.Surface's worker pool (/load_dissolve_json,
// /set_dissolve_pattern) concurrently with scenemanager.Manager's own
// goroutine reading Current() during ChangePattern.
type ScheduleRegistry struct {
	mu        sync.RWMutex
	schedules map[int]Schedule
	currentID *int
}

// NewScheduleRegistry returns an empty registry with no current
// selection (activations are instantaneous until Load + SetCurrent).
func NewScheduleRegistry() *ScheduleRegistry {
	return &ScheduleRegistry{schedules: make(map[int]Schedule)}
}

// Load replaces the schedule library. Invalid entries within a pattern
// are dropped by the caller (sceneio) before this is called; a pattern
// left with zero valid entries is still retained and treated as an
// instantaneous transition, per §6.4.
func (r *ScheduleRegistry) Load(patterns map[int]Schedule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules = make(map[int]Schedule, len(patterns))
	for id, sched := range patterns {
		r.schedules[id] = sched
	}
	r.currentID = nil
}

// Get returns the schedule for pattern_id, or (nil, false) if unknown.
func (r *ScheduleRegistry) Get(patternID int) (Schedule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schedules[patternID]
	return s, ok
}

// SetCurrent selects pattern_id as current. Returns an error if the id
// is not loaded.
func (r *ScheduleRegistry) SetCurrent(patternID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedules[patternID]; !ok {
		return fmt.Errorf("dissolve pattern %d not found", patternID)
	}
	id := patternID
	r.currentID = &id
	return nil
}

// Current returns the currently selected schedule, or (nil, false) if
// none is selected (instantaneous activation applies).
func (r *ScheduleRegistry) Current() (Schedule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.currentID == nil {
		return nil, false
	}
	s, ok := r.schedules[*r.currentID]
	return s, ok
}

// CurrentID returns the currently selected pattern id, if any.
func (r *ScheduleRegistry) CurrentID() (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.currentID == nil {
		return 0, false
	}
	return *r.currentID, true
}

// Available returns the sorted list of loaded pattern ids.
func (r *ScheduleRegistry) Available() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.schedules))
	for id := range r.schedules {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Info describes a loaded schedule: transition count, total duration,
// and LED ranges covered, for status/introspection use.
type Info struct {
	PatternID       int
	TransitionCount int
	TotalDurationMs int
	LEDRanges       []string
}

// PatternInfo returns introspection data for pattern_id, or
// (Info{}, false) if unknown.
func (r *ScheduleRegistry) PatternInfo(patternID int) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sched, ok := r.schedules[patternID]
	if !ok {
		return Info{}, false
	}
	info := Info{PatternID: patternID, TransitionCount: len(sched)}
	for _, tr := range sched {
		total := tr.DelayMs + tr.DurationMs
		if total > info.TotalDurationMs {
			info.TotalDurationMs = total
		}
		info.LEDRanges = append(info.LEDRanges, fmt.Sprintf("%d-%d", tr.LEDStart, tr.LEDEnd))
	}
	return info, true
}
