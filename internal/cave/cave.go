// Package cave searches for a fresh layout of a cave area that keeps the
// structural inventory of the original: size, exits, stairs, walls, bridges,
// decorative tiles and, for river caves, the water and land topology.
//
// A Shuffler runs a bounded number of attempts. Each attempt picks grid
// dimensions, builds an empty maze and runs the phases of its strategy; any
// phase may reroll the attempt by returning false.
package cave

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/caveshuffle/internal/area"
	"github.com/cory-johannsen/caveshuffle/internal/config"
	"github.com/cory-johannsen/caveshuffle/internal/grid"
	"github.com/cory-johannsen/caveshuffle/internal/maze"
	"github.com/cory-johannsen/caveshuffle/internal/observability"
	"github.com/cory-johannsen/caveshuffle/internal/random"
	"github.com/cory-johannsen/caveshuffle/internal/spec"
	"github.com/cory-johannsen/caveshuffle/internal/writeback"
)

var (
	// ErrExhausted is returned when every attempt rerolled.
	ErrExhausted = errors.New("could not shuffle")
	// ErrInvariant is returned when a programming invariant is violated,
	// which points at bad survey or catalog data rather than bad luck.
	ErrInvariant = errors.New("invariant violation")
	// ErrUnknownKind is returned for an unrecognized strategy name.
	ErrUnknownKind = errors.New("unknown strategy")
)

// Surveyor extracts the structural inventory of an area.
type Surveyor func(*area.Area) (*spec.Survey, error)

// phases are the overridable steps of a strategy. Basic fills every field;
// the variants replace a few.
type phases struct {
	tryShuffle             func(m *maze.Maze) bool
	initializeFixedScreens func(m *maze.Maze) bool
	initialFillMaze        func(m *maze.Maze) bool
	refineMaze             func(m *maze.Maze) bool
	postRefine             func(m *maze.Maze, pos grid.Pos)
	removeTightCycles      func(m *maze.Maze) bool
	addFeatures            func(m *maze.Maze) bool
	check                  func(m *maze.Maze) bool
}

// Shuffler regenerates the layout of one area.
type Shuffler struct {
	area        *area.Area
	survey      *spec.Survey
	src         random.Source
	logger      *zap.Logger
	cfg         config.ShuffleConfig
	surveyor    Surveyor
	finisher    maze.Finisher
	finisherSet bool
	kind        Kind
	runID       uuid.UUID
	phases      phases

	attempts int
	maze     *maze.Maze

	// Per-attempt state.
	w, h    int
	allPos  []grid.Pos
	density float64
	walls   int
	bridges int
	fixed   *posSet

	// River caves only.
	river          *posSet
	landPartitions []*posSet
}

// Option configures a Shuffler.
type Option func(*Shuffler)

// WithConfig sets the attempt and dimension budgets.
func WithConfig(cfg config.ShuffleConfig) Option {
	return func(s *Shuffler) { s.cfg = cfg }
}

// WithLogger sets the base logger. Run fields are added on top.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Shuffler) { s.logger = logger }
}

// WithFinisher replaces the default write-back. A nil finisher only trims
// the maze.
func WithFinisher(f maze.Finisher) Option {
	return func(s *Shuffler) {
		s.finisher = f
		s.finisherSet = true
	}
}

// WithSurveyor replaces the default survey extraction.
func WithSurveyor(f Surveyor) Option {
	return func(s *Shuffler) { s.surveyor = f }
}

// WithRunID tags the run's log lines with id instead of a fresh one.
func WithRunID(id uuid.UUID) Option {
	return func(s *Shuffler) { s.runID = id }
}

// DefaultConfig returns the budgets used when no configuration is given.
func DefaultConfig() config.ShuffleConfig {
	return config.ShuffleConfig{Attempts: 100, StairRetries: 10, MaxWidth: 8, MaxHeight: 16}
}

// New surveys a and prepares a shuffler of the given kind.
//
// Precondition: a and src are non-nil.
// Postcondition: Returns a ready Shuffler or the survey error.
func New(a *area.Area, src random.Source, kind Kind, opts ...Option) (*Shuffler, error) {
	s := &Shuffler{
		area:     a,
		src:      src,
		kind:     kind,
		cfg:      DefaultConfig(),
		logger:   zap.NewNop(),
		surveyor: spec.Cave.Survey,
		runID:    uuid.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = observability.ForRun(s.logger, s.runID, a.ID, kind.String())
	if !s.finisherSet {
		s.finisher = writeback.New(s.logger)
	}
	survey, err := s.surveyor(a)
	if err != nil {
		return nil, fmt.Errorf("surveying %s: %w", a.Label(), err)
	}
	s.survey = survey
	s.phases = s.bind(kind)
	return s, nil
}

// RunID returns the id attached to this run's log lines.
func (s *Shuffler) RunID() uuid.UUID { return s.runID }

// Attempts returns the number of attempts made by the last Shuffle.
func (s *Shuffler) Attempts() int { return s.attempts }

// Kind returns the strategy in use.
func (s *Shuffler) Kind() Kind { return s.kind }

// Survey returns the inventory the layout must satisfy.
func (s *Shuffler) Survey() *spec.Survey { return s.survey }

// Maze returns the accepted maze after a successful Shuffle, or nil.
func (s *Shuffler) Maze() *maze.Maze { return s.maze }

// Shuffle searches for a layout and writes it back into the area.
//
// Postcondition: On nil error the area holds the new layout. Otherwise the
// error wraps ErrExhausted or ErrInvariant, or a finisher-independent
// failure, and the area is unchanged.
func (s *Shuffler) Shuffle() (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ie, ok := r.(*maze.InvariantError)
		if !ok {
			panic(r)
		}
		s.maze = nil
		s.logger.Error("invariant violated", zap.Error(ie), zap.Int("attempt", s.attempts))
		err = fmt.Errorf("%w shuffling %s: %w", ErrInvariant, s.area.Label(), ie)
	}()

	s.logger.Info("shuffle start",
		zap.Int("size", s.survey.Size),
		zap.Int("width", s.area.Width),
		zap.Int("height", s.area.Height),
	)
	s.maze = nil
	for s.attempts = 1; s.attempts <= s.cfg.Attempts; s.attempts++ {
		w := max(1, min(s.cfg.MaxWidth, s.area.Width+s.src.Intn(5)/3))
		h := max(1, min(s.cfg.MaxHeight, s.area.Height+s.src.Intn(5)/3))
		s.reset(w, h)
		m := maze.New(s.src, h, w, s.survey.Specs,
			maze.WithLogger(s.logger),
			maze.WithFinisher(s.finisher),
		)
		if s.phases.tryShuffle(m) {
			s.maze = m
			s.logger.Info("shuffle complete",
				zap.Int("attempts", s.attempts),
				zap.Int("width", m.Width()),
				zap.Int("height", m.Height()),
			)
			return nil
		}
	}
	s.attempts = s.cfg.Attempts
	return fmt.Errorf("%w %s after %d attempts", ErrExhausted, s.area.Label(), s.attempts)
}

func (s *Shuffler) reset(w, h int) {
	s.w, s.h = w, h
	s.allPos = make([]grid.Pos, 0, w*h)
	for y := range h {
		for x := range w {
			s.allPos = append(s.allPos, grid.PosOf(y, x))
		}
	}
	s.density = float64(s.survey.Size) / float64(w*h)
	s.walls = s.survey.Walls
	s.bridges = s.survey.Bridges
	s.fixed = newPosSet()
	s.river = newPosSet()
	s.landPartitions = nil
}

// fail logs why an attempt or step is abandoned and returns false.
func (s *Shuffler) fail(reason string) bool {
	s.logger.Debug("reroll", zap.String("reason", reason), zap.Int("attempt", s.attempts))
	return false
}

// trace logs the grid after a phase when debug logging is on.
func (s *Shuffler) trace(phase string, m *maze.Maze) {
	if ce := s.logger.Check(zapcore.DebugLevel, phase); ce != nil {
		ce.Write(zap.Int("attempt", s.attempts), zap.String("grid", m.Show(false)))
	}
}
