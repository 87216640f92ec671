// Package sceneio loads scene and dissolve-pattern documents from JSON
// (§6.3, §6.4), normalizing legacy field names and shapes into the
// internal/scene and internal/dissolve data model.
package sceneio

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lacylights-led/ledengine/internal/color"
	"github.com/lacylights-led/ledengine/internal/dissolve"
	"github.com/lacylights-led/ledengine/internal/errs"
	"github.com/lacylights-led/ledengine/internal/scene"
)

// ConfigError is the load-boundary error kind of §7, re-exported here
// so callers can keep importing sceneio alone.
type ConfigError = errs.ConfigError

type sceneDoc struct {
	Scenes []sceneJSON `json:"scenes"`
}

type sceneJSON struct {
	SceneID  *int `json:"scene_id"`
	SceneIDLegacy *int `json:"scene_ID"`
	LEDCount int  `json:"led_count"`
	FPS      int  `json:"fps"`

	CurrentEffectID  int `json:"current_effect_id"`
	CurrentPaletteID int `json:"current_palette_id"`

	Palettes [][][3]int   `json:"palettes"`
	Effects  []effectJSON `json:"effects"`
}

type effectJSON struct {
	EffectID int                     `json:"effect_id"`
	Segments map[string]segmentJSON  `json:"segments"`
}

type segmentJSON struct {
	SegmentID       *int        `json:"segment_id"`
	SegmentIDLegacy *int        `json:"segment_ID"`
	Color           []int       `json:"color"`
	Transparency    []float64   `json:"transparency"`
	Length          []int       `json:"length"`
	MoveSpeed       float64     `json:"move_speed"`
	MoveRange       [2]int      `json:"move_range"`
	InitialPosition int         `json:"initial_position"`
	CurrentPosition int         `json:"current_position"`
	IsEdgeReflect   bool        `json:"is_edge_reflect"`
	DimmerTime      json.RawMessage `json:"dimmer_time"`
}

// LoadScenes parses a scene document, returning one scene.Scene per
// entry. Malformed documents return a *ConfigError and no scenes.
func LoadScenes(data []byte) ([]*scene.Scene, error) {
	var doc sceneDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("invalid scene document: %w", err)}
	}

	scenes := make([]*scene.Scene, 0, len(doc.Scenes))
	for _, sj := range doc.Scenes {
		s, err := buildScene(sj)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, s)
	}
	return scenes, nil
}

func buildScene(sj sceneJSON) (*scene.Scene, error) {
	id, err := requireID(sj.SceneID, sj.SceneIDLegacy, "scene_id")
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if sj.LEDCount <= 0 {
		return nil, &ConfigError{Err: fmt.Errorf("scene %d: led_count must be positive, got %d", id, sj.LEDCount)}
	}

	palettes := make([]*scene.Palette, 0, len(sj.Palettes))
	for i, p := range sj.Palettes {
		pal, err := buildPalette(p)
		if err != nil {
			return nil, &ConfigError{Err: fmt.Errorf("scene %d palette %d: %w", id, i, err)}
		}
		palettes = append(palettes, pal)
	}

	effects := make([]*scene.Effect, 0, len(sj.Effects))
	for _, ej := range sj.Effects {
		eff, err := buildEffect(id, ej)
		if err != nil {
			return nil, err
		}
		effects = append(effects, eff)
	}

	fps := sj.FPS
	if fps <= 0 {
		fps = 60
	}

	return &scene.Scene{
		ID:               id,
		LEDCount:         sj.LEDCount,
		FPS:              fps,
		Effects:          effects,
		Palettes:         palettes,
		CurrentEffectID:  sj.CurrentEffectID,
		CurrentPaletteID: sj.CurrentPaletteID,
	}, nil
}

func buildPalette(entries [][3]int) (*scene.Palette, error) {
	var pal scene.Palette
	for i := 0; i < 6 && i < len(entries); i++ {
		pal[i] = color.RGB{
			R: clampByte(entries[i][0]),
			G: clampByte(entries[i][1]),
			B: clampByte(entries[i][2]),
		}
	}
	return &pal, nil
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

func buildEffect(sceneID int, ej effectJSON) (*scene.Effect, error) {
	// Deterministic ordering: segments map key order is not stable, so
	// sort by the segment's own id.
	keys := make([]string, 0, len(ej.Segments))
	for k := range ej.Segments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	segs := make([]*scene.Segment, 0, len(keys))
	for _, k := range keys {
		sj := ej.Segments[k]
		seg, err := buildSegment(sceneID, ej.EffectID, sj)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].ID < segs[j].ID })

	return &scene.Effect{ID: ej.EffectID, Segments: segs}, nil
}

func buildSegment(sceneID, effectID int, sj segmentJSON) (*scene.Segment, error) {
	id, err := requireID(sj.SegmentID, sj.SegmentIDLegacy, "segment_id")
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("scene %d effect %d: %w", sceneID, effectID, err)}
	}

	dimmer, err := parseDimmerTime(sj.DimmerTime)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("scene %d effect %d segment %d: dimmer_time: %w", sceneID, effectID, id, err)}
	}

	return &scene.Segment{
		ID:              id,
		Color:           sj.Color,
		Transparency:    sj.Transparency,
		Length:          sj.Length,
		MoveSpeed:       sj.MoveSpeed,
		MoveRange:       sj.MoveRange,
		InitialPosition: sj.InitialPosition,
		CurrentPosition: sj.CurrentPosition,
		IsEdgeReflect:   sj.IsEdgeReflect,
		DimmerTime:      dimmer,
	}, nil
}

func requireID(primary, legacy *int, field string) (int, error) {
	if primary != nil {
		return *primary, nil
	}
	if legacy != nil {
		return *legacy, nil
	}
	return 0, fmt.Errorf("missing required field %q", field)
}

// parseDimmerTime accepts both the current 2-D triple form
// [[duration_ms, start_pct, end_pct], ...] and the legacy 1-D form
// [v0, v1, ..., vn], converted to pairwise transitions
// [[1000, v_i, v_{i+1}]]_i. A 1-D array with fewer than two values
// defaults to [[1000, 0, 100]] (§6.3).
func parseDimmerTime(raw json.RawMessage) ([]scene.DimmerStage, error) {
	if len(raw) == 0 {
		return []scene.DimmerStage{{DurationMs: 1000, StartBrightness: 100, EndBrightness: 100}}, nil
	}

	var triples [][3]float64
	if err := json.Unmarshal(raw, &triples); err == nil {
		stages := make([]scene.DimmerStage, 0, len(triples))
		for _, t := range triples {
			stages = append(stages, scene.DimmerStage{
				DurationMs:      int(t[0]),
				StartBrightness: t[1],
				EndBrightness:   t[2],
			})
		}
		if len(stages) == 0 {
			return []scene.DimmerStage{{DurationMs: 1000, StartBrightness: 0, EndBrightness: 100}}, nil
		}
		return stages, nil
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("unrecognized dimmer_time shape: %w", err)
	}
	if len(flat) < 2 {
		return []scene.DimmerStage{{DurationMs: 1000, StartBrightness: 0, EndBrightness: 100}}, nil
	}
	stages := make([]scene.DimmerStage, 0, len(flat)-1)
	for i := 0; i+1 < len(flat); i++ {
		stages = append(stages, scene.DimmerStage{
			DurationMs:      1000,
			StartBrightness: flat[i],
			EndBrightness:   flat[i+1],
		})
	}
	return stages, nil
}

// dissolveDoc is the top-level shape of a dissolve pattern document
// (§6.4), grounded on the original DissolvePatternManager's expected
// JSON.
type dissolveDoc struct {
	Patterns map[string][][4]float64 `json:"dissolve_patterns"`
}

// LoadDissolvePatterns parses a dissolve-pattern document into a map
// of pattern id to dissolve.Schedule, dropping individually invalid
// transitions with the same validation rules as the original
// DissolvePatternManager._validate_transition_data: duration_ms must
// be positive, delay_ms non-negative, start_led <= end_led, both
// non-negative. A pattern left with zero valid transitions is still
// retained (instantaneous transition), matching §6.4.
func LoadDissolvePatterns(data []byte) (map[int]dissolve.Schedule, error) {
	var doc dissolveDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("invalid dissolve pattern document: %w", err)}
	}

	out := make(map[int]dissolve.Schedule, len(doc.Patterns))
	for idStr, transitions := range doc.Patterns {
		var id int
		if _, err := fmt.Sscanf(idStr, "%d", &id); err != nil {
			continue
		}
		sched := make(dissolve.Schedule, 0, len(transitions))
		for _, tr := range transitions {
			delayMs, durationMs := tr[0], tr[1]
			startLED, endLED := int(tr[2]), int(tr[3])
			if delayMs < 0 || durationMs <= 0 || startLED < 0 || endLED < 0 || startLED > endLED {
				continue
			}
			sched = append(sched, dissolve.Transition{
				DelayMs:    int(delayMs),
				DurationMs: int(durationMs),
				LEDStart:   startLED,
				LEDEnd:     endLED,
			})
		}
		out[id] = sched
	}
	return out, nil
}
