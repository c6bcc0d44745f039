package grid

import "iter"

// Turn is a path step: 0 straight ahead, -1 a left turn, +1 a right turn.
type Turn int

// Turns available to a path walker.
const (
	TurnLeft     Turn = -1
	TurnStraight Turn = 0
	TurnRight    Turn = 1
)

// Float64Source is the slice of a random source needed for path generation.
type Float64Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

// Paths returns an endless sequence of random paths, each leading a walker
// that starts facing its first step to the cell forward/right of it. Every
// path ends when the target is exactly one step ahead.
//
// Paths are lazy: random draws happen only as a consumer advances a path.
func Paths(src Float64Source, forward, right int) iter.Seq[iter.Seq[Turn]] {
	return func(yield func(iter.Seq[Turn]) bool) {
		for {
			if !yield(randomPath(src, forward, right)) {
				return
			}
		}
	}
}

func randomPath(src Float64Source, forward, right int) iter.Seq[Turn] {
	return func(yield func(Turn) bool) {
		fwd, rt := forward, right
		advance := func() Turn {
			fwd--
			return TurnStraight
		}
		turnLeft := func() Turn {
			fwd, rt = -rt, fwd-1
			return TurnLeft
		}
		turnRight := func() Turn {
			fwd, rt = rt, 1-fwd
			return TurnRight
		}
		for fwd != 1 || rt != 0 {
			if fwd > 0 && src.Float64() < 0.5 {
				if !yield(advance()) {
					return
				}
				// extra chance of going two
				if fwd > 2 && src.Float64() < 0.5 {
					if !yield(advance()) {
						return
					}
				}
				continue
			}
			threshold := 0.5
			if fwd < 0 {
				threshold = 0.1
			}
			var step Turn
			switch {
			case src.Float64() < threshold:
				step = advance()
			case rt > 0:
				step = turnRight()
			case rt < 0:
				step = turnLeft()
			case src.Float64() < 0.5:
				step = turnLeft()
			default:
				step = turnRight()
			}
			if !yield(step) {
				return
			}
		}
	}
}
