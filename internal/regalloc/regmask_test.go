package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegMask_InsertHasRemove(t *testing.T) {
	var m RegMask
	require.True(t, m.Empty())
	m.Insert(5)
	require.True(t, m.Has(5))
	require.False(t, m.Has(6))
	require.Equal(t, 1, m.Size())
	m.Remove(5)
	require.False(t, m.Has(5))
}

func TestRegMask_AllStackNotCountedInSize(t *testing.T) {
	var m RegMask
	m.SetAllStack(true)
	require.True(t, m.IsAllStack())
	require.Equal(t, 0, m.Size())
	require.False(t, m.Empty())
}

func TestRegMask_Intersection(t *testing.T) {
	a := NewRegMask(1, 2, 3)
	b := NewRegMask(2, 3, 4)
	got := Intersection(a, b)
	require.True(t, got.Has(2))
	require.True(t, got.Has(3))
	require.False(t, got.Has(1))
	require.False(t, got.Has(4))
}

func TestRegMask_Union(t *testing.T) {
	a := NewRegMask(1)
	b := NewRegMask(2)
	got := Union(a, b)
	require.True(t, got.Has(1))
	require.True(t, got.Has(2))
}

func TestRegMask_Subtract(t *testing.T) {
	a := NewRegMask(1, 2, 3)
	b := NewRegMask(2)
	a.SUBTRACT(b)
	require.True(t, a.Has(1))
	require.False(t, a.Has(2))
	require.True(t, a.Has(3))
}

func TestRegMask_Intersects(t *testing.T) {
	a := NewRegMask(1, 2)
	b := NewRegMask(3, 4)
	require.False(t, Intersects(a, b))
	b.Insert(2)
	require.True(t, Intersects(a, b))
}

func TestRegMask_FirstLast(t *testing.T) {
	m := NewRegMask(5, 10, 70)
	first, ok := m.First()
	require.True(t, ok)
	require.Equal(t, RealReg(5), first)

	last, ok := m.Last()
	require.True(t, ok)
	require.Equal(t, RealReg(70), last)
}

func TestRegMask_IsBound(t *testing.T) {
	m := NewRegMask(5)
	require.True(t, m.IsBound())
	m.Insert(6)
	require.False(t, m.IsBound())
}

func TestRegMask_ClearToSets(t *testing.T) {
	// Registers 0,1 form an aligned pair; 4 alone does not (5 missing).
	m := NewRegMask(0, 1, 4)
	m.ClearToSets(2)
	require.True(t, m.Has(0))
	require.True(t, m.Has(1))
	require.False(t, m.Has(4))
}
