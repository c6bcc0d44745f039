package maze

// unionFind is a disjoint-set forest that remembers insertion order so that
// sets come out in a deterministic order.
type unionFind[T comparable] struct {
	parent map[T]T
	rank   map[T]int
	order  []T
}

func newUnionFind[T comparable]() *unionFind[T] {
	return &unionFind[T]{parent: make(map[T]T), rank: make(map[T]int)}
}

func (u *unionFind[T]) add(x T) {
	if _, ok := u.parent[x]; ok {
		return
	}
	u.parent[x] = x
	u.order = append(u.order, x)
}

// find returns the root of x, adding x as a singleton if unseen.
func (u *unionFind[T]) find(x T) T {
	u.add(x)
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		x, u.parent[x] = u.parent[x], root
	}
	return root
}

// union merges the sets of all xs. A single element is just added.
func (u *unionFind[T]) union(xs ...T) {
	if len(xs) == 0 {
		return
	}
	a := u.find(xs[0])
	for _, x := range xs[1:] {
		b := u.find(x)
		if a == b {
			continue
		}
		switch {
		case u.rank[a] < u.rank[b]:
			a, b = b, a
		case u.rank[a] == u.rank[b]:
			u.rank[a]++
		}
		u.parent[b] = a
	}
}

// sets returns every set, ordered by the first-added member, each listing
// members in insertion order.
func (u *unionFind[T]) sets() [][]T {
	index := make(map[T]int)
	var out [][]T
	for _, x := range u.order {
		root := u.find(x)
		i, ok := index[root]
		if !ok {
			i = len(out)
			index[root] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], x)
	}
	return out
}
