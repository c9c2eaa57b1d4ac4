package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnionFind_IdentityUntilUnioned(t *testing.T) {
	uf := newUnionFind(5)
	for i := uint32(0); i < 5; i++ {
		require.Equal(t, i, uf.find(i))
	}
}

func TestUnionFind_UnionKeepsSmallerRoot(t *testing.T) {
	uf := newUnionFind(5)
	r := uf.union(3, 1)
	require.Equal(t, uint32(1), r)
	require.Equal(t, uint32(1), uf.find(3))
	require.Equal(t, uint32(1), uf.find(1))
}

func TestUnionFind_PathCompressionMonotonic(t *testing.T) {
	uf := newUnionFind(6)
	uf.union(1, 0)
	uf.union(2, 1)
	uf.union(3, 2)

	root := uf.find(3)
	require.Equal(t, uint32(0), root)
	for _, i := range []uint32{0, 1, 2, 3} {
		require.LessOrEqual(t, uf.parent[i], i, "uf[i] <= i invariant")
	}
}

func TestUnionFind_ExtendAndReset(t *testing.T) {
	uf := newUnionFind(2)
	uf.extend(4)
	require.Equal(t, uint32(3), uf.find(3))

	uf.union(3, 2)
	uf.reset(4)
	require.Equal(t, uint32(3), uf.find(3))
}

func TestUnionFind_TruncatePreservesMappingsBelowN(t *testing.T) {
	uf := newUnionFind(6)
	uf.union(3, 1)
	uf.union(4, 2)

	uf.truncate(4)

	require.Equal(t, uint32(1), uf.find(3), "mapping below n must survive truncate")
	require.Equal(t, uint32(1), uf.find(1))
	require.Equal(t, 4, len(uf.parent))

	uf.extend(5)
	require.Equal(t, uint32(4), uf.find(4), "id reintroduced after truncate starts as its own root")
}
