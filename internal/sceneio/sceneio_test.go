package sceneio

import "testing"

const scenario1JSON = `
{ "scenes": [
  { "scene_id": 1, "led_count": 10, "fps": 60,
    "current_effect_id": 0, "current_palette_id": 0,
    "palettes": [[[255,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0]]],
    "effects": [
      { "effect_id": 0,
        "segments": { "0": {
          "segment_id": 0,
          "color": [0], "transparency": [0],
          "length": [5],
          "move_speed": 0, "move_range": [0,0],
          "initial_position": 2, "current_position": 2,
          "is_edge_reflect": false,
          "dimmer_time": [[1000,100,100]]
        }}}]}]}
`

func TestLoadScenesBasicShape(t *testing.T) {
	scenes, err := LoadScenes([]byte(scenario1JSON))
	if err != nil {
		t.Fatalf("LoadScenes returned error: %v", err)
	}
	if len(scenes) != 1 {
		t.Fatalf("len(scenes) = %d, want 1", len(scenes))
	}
	s := scenes[0]
	if s.ID != 1 || s.LEDCount != 10 || s.FPS != 60 {
		t.Errorf("scene = %+v, want id=1 led_count=10 fps=60", s)
	}
	if len(s.Effects) != 1 || len(s.Effects[0].Segments) != 1 {
		t.Fatalf("unexpected effect/segment shape: %+v", s.Effects)
	}
	seg := s.Effects[0].Segments[0]
	if seg.ID != 0 || seg.Length[0] != 5 || seg.CurrentPosition != 2 {
		t.Errorf("segment = %+v, want id=0 length=[5] current_position=2", seg)
	}
	if len(seg.DimmerTime) != 1 || seg.DimmerTime[0].StartBrightness != 100 {
		t.Errorf("dimmer_time = %+v, want single 100-100 stage", seg.DimmerTime)
	}
}

func TestLegacySceneAndSegmentIDFields(t *testing.T) {
	doc := `
	{ "scenes": [
	  { "scene_ID": 5, "led_count": 3, "fps": 30,
	    "effects": [
	      { "effect_id": 0,
	        "segments": { "0": {
	          "segment_ID": 7,
	          "color": [0], "transparency": [0], "length": [1],
	          "move_range": [0,0],
	          "dimmer_time": [[1000,100,100]]
	        }}}]}]}
	`
	scenes, err := LoadScenes([]byte(doc))
	if err != nil {
		t.Fatalf("LoadScenes returned error: %v", err)
	}
	if scenes[0].ID != 5 {
		t.Errorf("scene.ID = %d, want 5 (from legacy scene_ID)", scenes[0].ID)
	}
	if scenes[0].Effects[0].Segments[0].ID != 7 {
		t.Errorf("segment.ID = %d, want 7 (from legacy segment_ID)", scenes[0].Effects[0].Segments[0].ID)
	}
}

func TestLegacyFlatDimmerTimeConverts(t *testing.T) {
	doc := `
	{ "scenes": [
	  { "scene_id": 1, "led_count": 3, "fps": 30,
	    "effects": [
	      { "effect_id": 0,
	        "segments": { "0": {
	          "segment_id": 0,
	          "color": [0], "transparency": [0], "length": [1],
	          "move_range": [0,0],
	          "dimmer_time": [0, 50, 100]
	        }}}]}]}
	`
	scenes, err := LoadScenes([]byte(doc))
	if err != nil {
		t.Fatalf("LoadScenes returned error: %v", err)
	}
	stages := scenes[0].Effects[0].Segments[0].DimmerTime
	if len(stages) != 2 {
		t.Fatalf("len(stages) = %d, want 2 (pairwise from 3 flat values)", len(stages))
	}
	if stages[0].StartBrightness != 0 || stages[0].EndBrightness != 50 {
		t.Errorf("stages[0] = %+v, want 0->50", stages[0])
	}
	if stages[1].StartBrightness != 50 || stages[1].EndBrightness != 100 {
		t.Errorf("stages[1] = %+v, want 50->100", stages[1])
	}
	for _, s := range stages {
		if s.DurationMs != 1000 {
			t.Errorf("stage duration = %d, want 1000 for flat legacy form", s.DurationMs)
		}
	}
}

func TestLegacyFlatDimmerTimeTooShortDefaults(t *testing.T) {
	doc := `
	{ "scenes": [
	  { "scene_id": 1, "led_count": 3, "fps": 30,
	    "effects": [
	      { "effect_id": 0,
	        "segments": { "0": {
	          "segment_id": 0,
	          "color": [0], "transparency": [0], "length": [1],
	          "move_range": [0,0],
	          "dimmer_time": [42]
	        }}}]}]}
	`
	scenes, err := LoadScenes([]byte(doc))
	if err != nil {
		t.Fatalf("LoadScenes returned error: %v", err)
	}
	stages := scenes[0].Effects[0].Segments[0].DimmerTime
	if len(stages) != 1 || stages[0].StartBrightness != 0 || stages[0].EndBrightness != 100 {
		t.Errorf("stages = %+v, want default [[1000,0,100]]", stages)
	}
}

func TestLoadScenesMissingLEDCountIsConfigError(t *testing.T) {
	doc := `{ "scenes": [ { "scene_id": 1, "effects": [] } ] }`
	if _, err := LoadScenes([]byte(doc)); err == nil {
		t.Errorf("expected a ConfigError for missing led_count")
	}
}

func TestLoadDissolvePatternsDropsInvalidButKeepsPattern(t *testing.T) {
	doc := `
	{ "dissolve_patterns": {
	    "1": [[0,1000,0,9],[0,-5,0,9]],
	    "2": [[-1,500,0,9]]
	}}`
	patterns, err := LoadDissolvePatterns([]byte(doc))
	if err != nil {
		t.Fatalf("LoadDissolvePatterns returned error: %v", err)
	}
	p1, ok := patterns[1]
	if !ok || len(p1) != 1 {
		t.Fatalf("patterns[1] = %+v, want exactly the one valid transition", p1)
	}
	p2, ok := patterns[2]
	if !ok || len(p2) != 0 {
		t.Fatalf("patterns[2] = %+v, want retained with zero valid transitions", p2)
	}
}
