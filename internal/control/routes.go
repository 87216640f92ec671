package control

import (
	"fmt"
	"os"
	"time"

	"github.com/lacylights-led/ledengine/internal/errs"
	"github.com/lacylights-led/ledengine/internal/scenemanager"
	"github.com/lacylights-led/ledengine/internal/sceneio"
)

// paletteLetters maps the letter form of a palette address (§6.2:
// "p may be 0..4 or the letters A..E") to its numeric index.
var paletteLetters = map[string]int{"A": 0, "B": 1, "C": 2, "D": 3, "E": 4}

// RegisterRoutes binds every address of §6.2 to mgr, using now for the
// wall-clock passed to time-sensitive mutations. readFile lets tests
// substitute an in-memory loader instead of touching the filesystem.
func RegisterRoutes(s *Surface, mgr *scenemanager.Manager, now func() time.Time, readFile func(path string) ([]byte, error)) {
	if readFile == nil {
		readFile = os.ReadFile
	}

	s.Register("/load_json", func(cmd Command) error {
		path, err := stringArg(cmd, 0)
		if err != nil {
			return err
		}
		data, err := readFile(path)
		if err != nil {
			return &errs.ConfigError{Path: path, Err: err}
		}
		scenes, err := sceneio.LoadScenes(data)
		if err != nil {
			return err
		}
		mgr.LoadScenes(scenes, now())
		return nil
	})

	s.Register("/change_scene", func(cmd Command) error {
		id, err := intArg(cmd, 0)
		if err != nil {
			return err
		}
		return mgr.SetScene(id)
	})

	s.Register("/change_effect", func(cmd Command) error {
		id, err := intArg(cmd, 0)
		if err != nil {
			return err
		}
		return mgr.SetEffect(id)
	})

	s.Register("/change_palette", func(cmd Command) error {
		id, err := intArg(cmd, 0)
		if err != nil {
			return err
		}
		return mgr.SetPalette(id)
	})

	s.Register("/load_dissolve_json", func(cmd Command) error {
		path, err := stringArg(cmd, 0)
		if err != nil {
			return err
		}
		data, err := readFile(path)
		if err != nil {
			return &errs.ConfigError{Path: path, Err: err}
		}
		patterns, err := sceneio.LoadDissolvePatterns(data)
		if err != nil {
			return err
		}
		mgr.Schedules().Load(patterns)
		return nil
	})

	s.Register("/set_dissolve_pattern", func(cmd Command) error {
		id, err := intArg(cmd, 0)
		if err != nil {
			return err
		}
		return mgr.Schedules().SetCurrent(id)
	})

	s.Register("/change_pattern", func(cmd Command) error {
		return mgr.ChangePattern(now())
	})

	s.Register("/set_speed_percent", func(cmd Command) error {
		percent, err := intArg(cmd, 0)
		if err != nil {
			return err
		}
		return mgr.SetSpeedPercent(percent)
	})

	s.Register("/master_brightness", func(cmd Command) error {
		brightness, err := intArg(cmd, 0)
		if err != nil {
			return err
		}
		return mgr.SetMasterBrightness(brightness)
	})

	registerPaletteRoutes(s, mgr)
}

// registerPaletteRoutes pre-registers every /palette/{p}/{c} address
// for p in [0,4] and its letter aliases A..E, and c in [0,5], per §6.2.
func registerPaletteRoutes(s *Surface, mgr *scenemanager.Manager) {
	handler := func(paletteID int) Handler {
		return func(cmd Command) error {
			colorID, ok := paletteIDFromAddress(cmd.Address)
			if !ok {
				return &errs.ValidationError{Address: cmd.Address, Value: cmd.Address, Reason: "malformed palette address"}
			}
			r, err := intArg(cmd, 0)
			if err != nil {
				return err
			}
			g, err := intArg(cmd, 1)
			if err != nil {
				return err
			}
			b, err := intArg(cmd, 2)
			if err != nil {
				return err
			}
			return mgr.UpdatePaletteColor(paletteID, colorID, r, g, b)
		}
	}

	for p := 0; p < 5; p++ {
		for c := 0; c < 6; c++ {
			addr := fmt.Sprintf("/palette/%d/%d", p, c)
			s.Register(addr, handler(p))
		}
	}
	for letter, p := range paletteLetters {
		for c := 0; c < 6; c++ {
			addr := fmt.Sprintf("/palette/%s/%d", letter, c)
			s.Register(addr, handler(p))
		}
	}
}

// paletteIDFromAddress extracts the color index c from a registered
// /palette/{p}/{c} address; p itself is captured by closure at
// registration time, so only c needs parsing back out here.
func paletteIDFromAddress(addr string) (int, bool) {
	var p, c int
	var letter string
	if _, err := fmt.Sscanf(addr, "/palette/%d/%d", &p, &c); err == nil {
		return c, true
	}
	if _, err := fmt.Sscanf(addr, "/palette/%1s/%d", &letter, &c); err == nil {
		return c, true
	}
	return 0, false
}

func intArg(cmd Command, i int) (int, error) {
	if i >= len(cmd.Args) {
		return 0, &errs.ValidationError{Address: cmd.Address, Value: nil, Reason: "missing argument"}
	}
	switch v := cmd.Args[i].(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float32:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, &errs.ValidationError{Address: cmd.Address, Value: v, Reason: "argument is not numeric"}
	}
}

func stringArg(cmd Command, i int) (string, error) {
	if i >= len(cmd.Args) {
		return "", &errs.ValidationError{Address: cmd.Address, Value: nil, Reason: "missing argument"}
	}
	v, ok := cmd.Args[i].(string)
	if !ok {
		return "", &errs.ValidationError{Address: cmd.Address, Value: cmd.Args[i], Reason: "argument is not a string"}
	}
	return v, nil
}
