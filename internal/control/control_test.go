package control

import (
	"errors"
	"testing"
	"time"

	"github.com/lacylights-led/ledengine/internal/errs"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within timeout")
}

func TestDispatchUnknownAddressIsDroppedAndLogged(t *testing.T) {
	s := New(2, 16)
	defer s.Close()

	s.Dispatch(Command{Address: "/nope"})
	waitFor(t, func() bool { return len(s.RecentLog()) == 1 })

	entries := s.RecentLog()
	if entries[0].Resolution != "dropped: unknown address" {
		t.Errorf("Resolution = %q, want dropped: unknown address", entries[0].Resolution)
	}
}

func TestDispatchSuccessRecordsOkAndCounts(t *testing.T) {
	s := New(2, 16)
	defer s.Close()

	s.Register("/ping", func(cmd Command) error { return nil })
	s.Dispatch(Command{Address: "/ping"})
	waitFor(t, func() bool { return len(s.RecentLog()) == 1 })

	entries := s.RecentLog()
	if entries[0].Resolution != "ok" {
		t.Errorf("Resolution = %q, want ok", entries[0].Resolution)
	}
	counts := s.CommandCounts()
	if counts["/ping"] != 1 {
		t.Errorf("CommandCounts[/ping] = %d, want 1", counts["/ping"])
	}
}

func TestDispatchClampWarningIsNotAnErrorCount(t *testing.T) {
	s := New(1, 16)
	defer s.Close()

	s.Register("/set_speed_percent", func(cmd Command) error {
		return &errs.ClampWarning{Address: "/set_speed_percent", Observed: 2000, Clamped: 1023}
	})
	s.Dispatch(Command{Address: "/set_speed_percent", Args: []any{2000}})
	waitFor(t, func() bool { return len(s.RecentLog()) == 1 })

	entries := s.RecentLog()
	if entries[0].Resolution != "applied: clamped to range" {
		t.Errorf("Resolution = %q, want applied: clamped to range", entries[0].Resolution)
	}
	if n := s.ErrorCounts()["/set_speed_percent"]; n != 0 {
		t.Errorf("ErrorCounts[/set_speed_percent] = %d, want 0 for a clamp warning", n)
	}
}

func TestLogRingBufferBounded(t *testing.T) {
	s := New(1, 4)
	defer s.Close()
	s.Register("/tick", func(cmd Command) error { return nil })

	for i := 0; i < 10; i++ {
		s.Dispatch(Command{Address: "/tick"})
	}
	waitFor(t, func() bool { return len(s.RecentLog()) == 4 })
	if len(s.RecentLog()) != 4 {
		t.Errorf("RecentLog length = %d, want bounded to 4", len(s.RecentLog()))
	}
}

func TestClassifyValidationVsGenericError(t *testing.T) {
	if got := classify(&errs.ValidationError{}); got != "rejected: validation error" {
		t.Errorf("classify(ValidationError) = %q", got)
	}
	if got := classify(errors.New("boom")); got != "rejected: error" {
		t.Errorf("classify(generic error) = %q", got)
	}
}
