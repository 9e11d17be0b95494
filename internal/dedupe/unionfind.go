package dedupe

// unionFind is a standard disjoint-set over record indices with path
// compression and union by rank. One instance is owned by one build run;
// all unions happen on a single goroutine after parallel scoring.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// clusters materializes the transitively closed groups, each sorted by
// member index, the groups ordered by their smallest member. The ordering
// depends only on indices, which the builder derives from a canonical sort
// of the input, so cluster order is stable across runs.
func (uf *unionFind) clusters() [][]int {
	byRoot := make(map[int][]int)
	for i := range uf.parent {
		root := uf.find(i)
		byRoot[root] = append(byRoot[root], i)
	}

	out := make([][]int, 0, len(byRoot))
	for i := range uf.parent {
		if members := byRoot[uf.find(i)]; members[0] == i {
			out = append(out, members)
		}
	}
	return out
}
