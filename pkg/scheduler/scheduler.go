// Package scheduler runs actions against the robot at a fixed control rate.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gwillem/actuate/pkg/action"
	"github.com/gwillem/actuate/pkg/robot"
	"github.com/gwillem/actuate/pkg/telemetry"
)

// DefaultHz is the control rate used when none is configured.
const DefaultHz = 50

// Plant is the hardware driven by the scheduler. *robot.Robot implements it.
type Plant interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	// Step advances simulated hardware by one control period.
	Step(dt time.Duration)
	Positions() map[robot.MotorName]int
	Targets() map[robot.MotorName]int
	// ReadPositions returns calibrated positions in [-100, 100].
	ReadPositions(ctx context.Context) (map[robot.MotorName]float64, error)
	Report(p *telemetry.Packet)
}

var _ Plant = (*robot.Robot)(nil)

// State is a snapshot taken at the end of a control cycle.
type State struct {
	Cycle      int
	Positions  map[robot.MotorName]int
	Targets    map[robot.MotorName]int
	Normalized map[robot.MotorName]float64
	Telemetry  []string
	Running    int
	Timestamp  time.Time
}

// Idle reports whether no action was running at the end of the cycle.
func (s State) Idle() bool { return s.Running == 0 }

// Config holds configuration for the scheduler.
type Config struct {
	Hz     int
	Logger *log.Logger
	// Sink receives every cycle's telemetry packet in addition to State.
	Sink telemetry.Sink
}

type job struct {
	name   string
	action action.Action
	start  int
}

// Scheduler polls scheduled actions once per control cycle.
type Scheduler struct {
	plant  Plant
	hz     int
	logger *log.Logger
	sink   telemetry.Sink

	mu      sync.RWMutex
	running bool
	jobs    []job
	cycle   int
	packet  *telemetry.Packet
	stateCh chan State
	logCh   chan string
}

// New creates a scheduler for plant.
func New(plant Plant, cfg Config) *Scheduler {
	if cfg.Hz <= 0 {
		cfg.Hz = DefaultHz
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("scheduler")
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.Nop
	}
	return &Scheduler{
		plant:   plant,
		hz:      cfg.Hz,
		logger:  cfg.Logger,
		sink:    cfg.Sink,
		packet:  telemetry.NewPacket(),
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}
}

// States returns a channel that receives state updates.
func (s *Scheduler) States() <-chan State {
	return s.stateCh
}

// Logs returns a channel that receives log messages.
func (s *Scheduler) Logs() <-chan string {
	return s.logCh
}

// Hz returns the control frequency.
func (s *Scheduler) Hz() int {
	return s.hz
}

// Period returns the duration of one control cycle.
func (s *Scheduler) Period() time.Duration {
	return time.Second / time.Duration(s.hz)
}

func (s *Scheduler) log(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	s.logger.Info(text)

	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), text)
	select {
	case s.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Schedule adds a to the running set. It is first polled on the next cycle.
func (s *Scheduler) Schedule(name string, a action.Action) {
	s.mu.Lock()
	s.jobs = append(s.jobs, job{name: name, action: a, start: s.cycle})
	s.mu.Unlock()
	s.log("Scheduled %s", name)
}

// Running returns the number of unfinished actions.
func (s *Scheduler) Running() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Start begins the control loop. It returns when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.plant.Enable(ctx); err != nil {
		s.log("Warning: failed to enable torque: %v", err)
	} else {
		s.log("Torque enabled")
	}

	s.log("Scheduler started at %d Hz", s.hz)

	ticker := time.NewTicker(s.Period())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case <-ticker.C:
			s.step()
		}
	}
}

// RunUntilIdle drives the loop until every scheduled action is done or ctx
// is cancelled. Torque is left enabled.
func (s *Scheduler) RunUntilIdle(ctx context.Context) error {
	ticker := time.NewTicker(s.Period())
	defer ticker.Stop()

	for {
		if st := s.step(); st.Idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// step runs one control cycle: poll every action, advance the plant, publish.
func (s *Scheduler) step() State {
	s.mu.Lock()
	s.cycle++
	cycle := s.cycle
	jobs := s.jobs
	s.jobs = nil
	s.mu.Unlock()

	// Actions run unlocked so they may schedule further actions.
	p := s.packet
	p.Reset()
	remaining := jobs[:0]
	var finished []job
	for _, j := range jobs {
		if j.action.Run(p) {
			remaining = append(remaining, j)
		} else {
			finished = append(finished, j)
		}
	}

	s.mu.Lock()
	s.jobs = append(remaining, s.jobs...)
	running := len(s.jobs)
	s.mu.Unlock()

	for _, j := range finished {
		s.log("Finished %s after %d cycles", j.name, cycle-j.start)
	}

	s.plant.Step(s.Period())
	s.plant.Report(p)
	s.sink.Send(p)

	// Read calibrated positions
	ctx, cancel := context.WithTimeout(context.Background(), s.Period())
	normalized, err := s.plant.ReadPositions(ctx)
	cancel()
	if err != nil {
		s.logger.Debug("read positions", "err", err)
	}

	st := State{
		Cycle:      cycle,
		Positions:  s.plant.Positions(),
		Targets:    s.plant.Targets(),
		Normalized: normalized,
		Telemetry:  p.Lines(),
		Running:    running,
		Timestamp:  time.Now(),
	}
	s.sendState(st)
	return st
}

func (s *Scheduler) sendState(st State) {
	select {
	case s.stateCh <- st:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-s.stateCh:
		default:
		}
		s.stateCh <- st
	}
}

func (s *Scheduler) shutdown() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err := s.plant.Disable(context.Background()); err != nil {
		s.log("Warning: failed to disable torque: %v", err)
	} else {
		s.log("Torque disabled")
	}
	s.log("Scheduler stopped")
}
