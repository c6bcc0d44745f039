package random

import "iter"

// Shuffle permutes s in place and returns it.
//
// Postcondition: the returned slice is s, holding the same multiset of elements.
func Shuffle[T any](src Source, s []T) []T {
	for i := len(s) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
	return s
}

// IShuffle lazily yields the elements of s in random order. The input is not
// modified, and no random draws are made beyond the elements consumed.
// Each call to the returned sequence starts a fresh permutation.
func IShuffle[T any](src Source, s []T) iter.Seq[T] {
	return func(yield func(T) bool) {
		work := make([]T, len(s))
		copy(work, s)
		for i := len(work) - 1; i >= 0; i-- {
			j := src.Intn(i + 1)
			work[i], work[j] = work[j], work[i]
			if !yield(work[i]) {
				return
			}
		}
	}
}

// Pick returns a uniformly chosen element of s.
//
// Precondition: len(s) > 0.
func Pick[T any](src Source, s []T) T {
	if len(s) == 0 {
		panic("random: Pick called with an empty slice")
	}
	return s[src.Intn(len(s))]
}

// Weighted pairs a value with its relative weight for PickWeighted.
type Weighted[T any] struct {
	Value  T
	Weight int
}

// PickWeighted returns an element of choices with probability proportional
// to its weight.
//
// Precondition: at least one choice has a positive weight; negative weights
// are treated as zero.
func PickWeighted[T any](src Source, choices []Weighted[T]) T {
	total := 0
	for _, c := range choices {
		if c.Weight > 0 {
			total += c.Weight
		}
	}
	if total == 0 {
		panic("random: PickWeighted called without positive weights")
	}
	n := src.Intn(total)
	for _, c := range choices {
		if c.Weight <= 0 {
			continue
		}
		if n < c.Weight {
			return c.Value
		}
		n -= c.Weight
	}
	panic("random: PickWeighted fell through")
}
