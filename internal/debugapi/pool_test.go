package debugapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool_AllocateAcrossPages(t *testing.T) {
	pool := NewPool[int]()
	var ptrs []*int
	for i := 0; i < poolPageSize+5; i++ {
		p := pool.Allocate()
		*p = i
		ptrs = append(ptrs, p)
	}
	require.Equal(t, poolPageSize+5, pool.Allocated())
	for i, p := range ptrs {
		require.Equal(t, i, *p)
	}
}

func TestPool_View(t *testing.T) {
	pool := NewPool[int]()
	p := pool.Allocate()
	*p = 42
	require.Equal(t, 42, *pool.View(0))
}

func TestPool_Reset(t *testing.T) {
	pool := NewPool[int]()
	p := pool.Allocate()
	*p = 7
	pool.Reset()
	require.Equal(t, 0, pool.Allocated())
	p2 := pool.Allocate()
	require.Equal(t, 0, *p2)
}

func TestPool_MarkRelease(t *testing.T) {
	pool := NewPool[int]()
	p1 := pool.Allocate()
	*p1 = 1
	mark := pool.Mark()

	p2 := pool.Allocate()
	*p2 = 2
	require.Equal(t, 2, pool.Allocated())

	pool.Release(mark)
	require.Equal(t, 1, pool.Allocated())
	require.Equal(t, 1, *pool.View(0))

	p3 := pool.Allocate()
	require.Equal(t, 0, *p3, "storage reused by Release must be zeroed")
}
