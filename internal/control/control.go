// Package control implements the ControlSurface of §4.10: a fixed
// address → handler table dispatched through a worker pool, so a slow
// or blocking handler never stalls command reception, plus a bounded
// command log for status reporting.
package control

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/lucsky/cuid"

	"github.com/lacylights-led/ledengine/internal/errs"
)

// Command is one external invocation: an address and its positional,
// already-typed argument list (§6.1: args are int, float or string).
type Command struct {
	Address string
	Args    []any
}

// Handler validates, mutates and returns a structured error (or nil).
// Handlers never hold the SceneManager lock across a sleep; the lock
// span lives entirely inside the handler's own call into SceneManager.
type Handler func(Command) error

// LogEntry records one dispatched command's outcome for status
// reporting (§7's "logged line per event with address, observed
// value, and resolution").
type LogEntry struct {
	ID         string
	Address    string
	Args       []any
	ReceivedAt time.Time
	Resolution string
	Err        error
}

// Surface dispatches commands to registered handlers on a worker pool
// and retains a bounded ring of recent outcomes.
type Surface struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	queue chan Command

	logMu   sync.Mutex
	log     []LogEntry
	logCap  int
	logHead int
	logLen  int

	wg sync.WaitGroup

	commandCounts map[string]uint64
	errorCounts   map[string]uint64
	countsMu      sync.Mutex
}

// New returns a Surface with workerCount concurrent handler goroutines
// (default 4 if <= 0) and a bounded command log of logCap entries
// (default 256 if <= 0).
func New(workerCount, logCap int) *Surface {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logCap <= 0 {
		logCap = 256
	}
	s := &Surface{
		handlers:      make(map[string]Handler),
		queue:         make(chan Command, 64),
		log:           make([]LogEntry, logCap),
		logCap:        logCap,
		commandCounts: make(map[string]uint64),
		errorCounts:   make(map[string]uint64),
	}
	for i := 0; i < workerCount; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Register binds address to handler. Registering the same address
// twice replaces the handler.
func (s *Surface) Register(address string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[address] = h
}

// Dispatch enqueues a command for asynchronous handling. It blocks
// only while the 64-command queue is full, until a worker takes the
// next queued command. Unknown addresses are
// logged and dropped (§9 "unknown addresses log and drop").
func (s *Surface) Dispatch(cmd Command) {
	s.queue <- cmd
}

func (s *Surface) worker() {
	defer s.wg.Done()
	for cmd := range s.queue {
		s.handle(cmd)
	}
}

func (s *Surface) handle(cmd Command) {
	s.mu.RLock()
	h, ok := s.handlers[cmd.Address]
	s.mu.RUnlock()

	entry := LogEntry{
		ID:         cuid.New(),
		Address:    cmd.Address,
		Args:       cmd.Args,
		ReceivedAt: time.Now(),
	}

	if !ok {
		entry.Resolution = "dropped: unknown address"
		log.Printf("control: unknown address %q, dropping", cmd.Address)
		s.appendLog(entry)
		return
	}

	err := h(cmd)
	s.countsMu.Lock()
	s.commandCounts[cmd.Address]++
	s.countsMu.Unlock()

	switch {
	case err == nil:
		entry.Resolution = "ok"
	default:
		entry.Err = err
		entry.Resolution = classify(err)
		var clamp *errs.ClampWarning
		if !errors.As(err, &clamp) {
			s.countsMu.Lock()
			s.errorCounts[cmd.Address]++
			s.countsMu.Unlock()
		}
		log.Printf("control: %s args=%v resolution=%s: %v", cmd.Address, cmd.Args, entry.Resolution, err)
	}
	s.appendLog(entry)
}

func classify(err error) string {
	var validation *errs.ValidationError
	var clamp *errs.ClampWarning
	switch {
	case errors.As(err, &validation):
		return "rejected: validation error"
	case errors.As(err, &clamp):
		return "applied: clamped to range"
	default:
		return "rejected: error"
	}
}

func (s *Surface) appendLog(e LogEntry) {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	idx := (s.logHead + s.logLen) % s.logCap
	s.log[idx] = e
	if s.logLen < s.logCap {
		s.logLen++
	} else {
		s.logHead = (s.logHead + 1) % s.logCap
	}
}

// RecentLog returns the retained log entries, oldest first.
func (s *Surface) RecentLog() []LogEntry {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	out := make([]LogEntry, s.logLen)
	for i := 0; i < s.logLen; i++ {
		out[i] = s.log[(s.logHead+i)%s.logCap]
	}
	return out
}

// CommandCounts returns a snapshot of per-address command counts.
func (s *Surface) CommandCounts() map[string]uint64 {
	s.countsMu.Lock()
	defer s.countsMu.Unlock()
	out := make(map[string]uint64, len(s.commandCounts))
	for k, v := range s.commandCounts {
		out[k] = v
	}
	return out
}

// ErrorCounts returns a snapshot of per-address error counts.
func (s *Surface) ErrorCounts() map[string]uint64 {
	s.countsMu.Lock()
	defer s.countsMu.Unlock()
	out := make(map[string]uint64, len(s.errorCounts))
	for k, v := range s.errorCounts {
		out[k] = v
	}
	return out
}

// Close stops accepting new commands and waits for in-flight handlers
// to drain.
func (s *Surface) Close() {
	close(s.queue)
	s.wg.Wait()
}
