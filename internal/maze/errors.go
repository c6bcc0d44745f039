package maze

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/caveshuffle/internal/grid"
)

// ErrBorderDeclared is returned by SetBorder for a border edge that already
// has a type.
var ErrBorderDeclared = errors.New("border already declared")

// InvariantError reports a condition that valid catalog data and survey
// input can never produce. Maze operations panic with *InvariantError rather
// than returning it; the shuffle driver recovers it and aborts without
// retrying.
type InvariantError struct {
	Op  string
	Pos grid.Pos
	Msg string
}

// Error implements error.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("maze: %s at %s: %s", e.Op, e.Pos, e.Msg)
}

func invariantf(op string, pos grid.Pos, format string, args ...any) {
	panic(&InvariantError{Op: op, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}
