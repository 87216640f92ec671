package scheduler

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lacylights-led/ledengine/internal/color"
)

type fakeRenderer struct {
	activated atomic.Bool
	advances  atomic.Int64
	renders   atomic.Int64
}

func (r *fakeRenderer) Tick(dtWall time.Duration, now time.Time) []color.RGB {
	r.advances.Add(1)
	r.renders.Add(1)
	return []color.RGB{{R: 1}}
}
func (r *fakeRenderer) HasActivated() bool { return r.activated.Load() }

type fakeSink struct {
	mu      sync.Mutex
	emitted int
	failing bool
}

func (s *fakeSink) Emit(fb []color.RGB) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitted++
	if s.failing {
		return errors.New("simulated sink failure")
	}
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitted
}

func TestSchedulerSkipsUntilActivated(t *testing.T) {
	r := &fakeRenderer{}
	sink := &fakeSink{}
	sch := New(r, sink, 200)
	sch.Start()

	time.Sleep(30 * time.Millisecond)
	if r.renders.Load() != 0 {
		t.Errorf("Tick should not be called before HasActivated() is true")
	}

	r.activated.Store(true)
	time.Sleep(50 * time.Millisecond)
	sch.Stop()

	if r.renders.Load() == 0 {
		t.Errorf("expected at least one Tick call after activation")
	}
	if sink.count() == 0 {
		t.Errorf("expected the sink to receive at least one frame")
	}
}

func TestSchedulerCountsSinkErrors(t *testing.T) {
	r := &fakeRenderer{}
	r.activated.Store(true)
	sink := &fakeSink{failing: true}
	sch := New(r, sink, 200)
	sch.Start()
	time.Sleep(50 * time.Millisecond)
	sch.Stop()

	stats := sch.Stats()
	if stats.SinkErrors == 0 {
		t.Errorf("expected SinkErrors > 0 when the sink always fails")
	}
	if stats.FramesRendered == 0 {
		t.Errorf("sink failures must not stop frame production")
	}
}

func TestSchedulerStopReturnsWithinTimeout(t *testing.T) {
	r := &fakeRenderer{}
	sink := &fakeSink{}
	sch := New(r, sink, 200)
	sch.Start()
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		sch.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop() did not return within its bounded timeout")
	}
}
