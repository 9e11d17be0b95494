package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnionFind_Transitive(t *testing.T) {
	uf := newUnionFind(5)
	uf.union(0, 1)
	uf.union(1, 2)

	assert.Equal(t, uf.find(0), uf.find(2))
	assert.NotEqual(t, uf.find(0), uf.find(3))
}

func TestUnionFind_Clusters(t *testing.T) {
	uf := newUnionFind(6)
	uf.union(4, 1)
	uf.union(1, 0)
	uf.union(5, 3)

	clusters := uf.clusters()

	// Groups ordered by smallest member, members sorted ascending.
	assert.Equal(t, [][]int{{0, 1, 4}, {2}, {3, 5}}, clusters)
}

func TestUnionFind_AllSingletons(t *testing.T) {
	uf := newUnionFind(3)
	assert.Equal(t, [][]int{{0}, {1}, {2}}, uf.clusters())
}

func TestUnionFind_UnionIdempotent(t *testing.T) {
	uf := newUnionFind(2)
	uf.union(0, 1)
	uf.union(0, 1)
	uf.union(1, 0)

	assert.Len(t, uf.clusters(), 1)
}
