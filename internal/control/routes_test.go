package control

import (
	"testing"
	"time"

	"github.com/lacylights-led/ledengine/internal/scenemanager"
)

const testScene = `
{ "scenes": [
  { "scene_id": 1, "led_count": 10, "fps": 60,
    "palettes": [[[255,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0],[0,0,0]]],
    "effects": [
      { "effect_id": 0,
        "segments": { "0": {
          "segment_id": 0,
          "color": [0], "transparency": [0], "length": [5],
          "move_range": [0,0], "current_position": 2,
          "dimmer_time": [[1000,100,100]]
        }}}]}]}
`

func TestRoutesLoadAndActivateViaDispatch(t *testing.T) {
	mgr := scenemanager.New()
	s := New(2, 32)
	defer s.Close()

	t0 := time.Unix(0, 0)
	RegisterRoutes(s, mgr, func() time.Time { return t0 }, func(path string) ([]byte, error) {
		return []byte(testScene), nil
	})

	s.Dispatch(Command{Address: "/load_json", Args: []any{"scene.json"}})
	waitFor(t, func() bool { return mgr.LEDCount() == 10 })

	s.Dispatch(Command{Address: "/change_pattern"})
	waitFor(t, func() bool { return mgr.HasActivated() })

	fb := mgr.RenderFrame(t0)
	if fb[2].R != 255 {
		t.Errorf("fb[2].R = %d, want 255 after /load_json + /change_pattern", fb[2].R)
	}
}

func TestRoutesPaletteAddressUpdatesColor(t *testing.T) {
	mgr := scenemanager.New()
	s := New(2, 32)
	defer s.Close()

	t0 := time.Unix(0, 0)
	RegisterRoutes(s, mgr, func() time.Time { return t0 }, func(path string) ([]byte, error) {
		return []byte(testScene), nil
	})

	s.Dispatch(Command{Address: "/load_json", Args: []any{"scene.json"}})
	waitFor(t, func() bool { return mgr.LEDCount() == 10 })

	s.Dispatch(Command{Address: "/palette/0/0", Args: []any{10, 20, 30}})
	s.Dispatch(Command{Address: "/change_pattern"})
	waitFor(t, func() bool { return mgr.HasActivated() })

	fb := mgr.RenderFrame(t0)
	if fb[2].R != 10 || fb[2].G != 20 || fb[2].B != 30 {
		t.Errorf("fb[2] = %+v, want (10,20,30) after /palette/0/0 update", fb[2])
	}
}

func TestRoutesSpeedPercentClampedThroughDispatch(t *testing.T) {
	mgr := scenemanager.New()
	s := New(1, 32)
	defer s.Close()

	RegisterRoutes(s, mgr, time.Now, nil)
	s.Dispatch(Command{Address: "/set_speed_percent", Args: []any{5000}})
	waitFor(t, func() bool { return mgr.SpeedPercent() == 1023 })
}
