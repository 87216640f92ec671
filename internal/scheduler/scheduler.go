// Package scheduler implements the FrameScheduler of §4.9: a
// cooperative fixed-interval render loop, grounded on the teacher's
// dmx.Service.transmitLoop ticker/stop-channel pattern, adapted from
// an adaptive multi-rate DMX transmitter to a single fixed target_fps
// render-and-emit loop.
package scheduler

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lacylights-led/ledengine/internal/color"
	"github.com/lacylights-led/ledengine/internal/errs"
)

// Renderer is the SceneManager surface the scheduler drives each
// tick. Tick must advance and render as a single critical section
// (§5 "the render thread acquires the lock for the duration of
// advance + render_frame") so a command arriving mid-tick is observed
// atomically at the next tick, never between the two halves.
type Renderer interface {
	Tick(dtWall time.Duration, now time.Time) []color.RGB
	HasActivated() bool
}

// Sink is the external collaborator that receives one framebuffer per
// tick (§6.1).
type Sink interface {
	Emit(fb []color.RGB) error
}

// Stats is a snapshot of the scheduler's running counters, for status
// reporting (§7 "aggregate counters").
type Stats struct {
	FramesRendered   uint64
	ObservedFPS      float64
	LargeFrameEvents uint64
	SinkErrors       uint64
}

// Scheduler runs Renderer.Tick at a fixed target rate and hands each
// frame to Sink.Emit.
type Scheduler struct {
	renderer  Renderer
	sink      Sink
	targetFPS int

	stopChan chan struct{}
	doneChan chan struct{}

	framesRendered   atomic.Uint64
	largeFrameEvents atomic.Uint64
	sinkErrors       atomic.Uint64

	statsMu     sync.Mutex
	observedFPS float64

	startOnce sync.Once
}

// New returns a Scheduler targeting targetFPS (default 60 if <= 0).
func New(renderer Renderer, sink Sink, targetFPS int) *Scheduler {
	if targetFPS <= 0 {
		targetFPS = 60
	}
	return &Scheduler{
		renderer:  renderer,
		sink:      sink,
		targetFPS: targetFPS,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start launches the render loop in its own goroutine. Calling Start
// more than once has no further effect.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *Scheduler) run() {
	defer close(s.doneChan)

	interval := time.Second / time.Duration(s.targetFPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tLast := time.Now()

	for {
		select {
		case <-s.stopChan:
			return
		case t0 := <-ticker.C:
			if !s.renderer.HasActivated() {
				tLast = t0
				continue
			}

			dt := t0.Sub(tLast)
			tLast = t0

			frameStart := time.Now()
			fb := s.renderer.Tick(dt, t0)

			if fb != nil {
				if err := s.sink.Emit(fb); err != nil {
					s.sinkErrors.Add(1)
					log.Printf("scheduler: sink emit failed: %v", &errs.TransientIOError{Err: err})
				}
			}

			elapsed := time.Since(frameStart)
			if elapsed > 2*interval {
				s.largeFrameEvents.Add(1)
				log.Printf("scheduler: frame took %v, more than twice the target interval %v", elapsed, interval)
			}

			s.framesRendered.Add(1)
			s.updateObservedFPS(dt)
		}
	}
}

func (s *Scheduler) updateObservedFPS(dt time.Duration) {
	if dt <= 0 {
		return
	}
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.observedFPS = 1.0 / dt.Seconds()
}

// Stop signals the render loop to stop and waits up to 2s for it to
// exit, logging if it did not (§5 "implementation: 2s").
func (s *Scheduler) Stop() {
	close(s.stopChan)
	select {
	case <-s.doneChan:
	case <-time.After(2 * time.Second):
		log.Printf("scheduler: render thread did not exit within 2s of Stop()")
	}
}

// Stats returns a snapshot of the scheduler's running counters.
func (s *Scheduler) Stats() Stats {
	s.statsMu.Lock()
	fps := s.observedFPS
	s.statsMu.Unlock()
	return Stats{
		FramesRendered:   s.framesRendered.Load(),
		ObservedFPS:      fps,
		LargeFrameEvents: s.largeFrameEvents.Load(),
		SinkErrors:       s.sinkErrors.Load(),
	}
}
