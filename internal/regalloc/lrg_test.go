package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRG_Score_PrefersCheapLowAreaCandidate(t *testing.T) {
	cheap := &LRG{Cost: 1, Area: 10}
	expensive := &LRG{Cost: 100, Area: 10}
	require.Less(t, cheap.Score(), expensive.Score())
}

func TestLRG_Score_ZeroAreaIsWorstCandidate(t *testing.T) {
	normal := &LRG{Cost: 5, Area: 5}
	zeroArea := &LRG{Cost: 5, Area: 0}
	require.Less(t, normal.Score(), zeroArea.Score())
}

func TestLRG_DegreesOfFreedomAndLoDegree(t *testing.T) {
	l := &LRG{Mask: NewRegMask(0, 1, 2), NumRegs: 1}
	require.Equal(t, 2, l.degreesOfFreedom())

	l.SetDegree(2)
	require.True(t, l.LoDegree())
	l.SetDegree(3)
	require.False(t, l.LoDegree())
}

func TestLRG_JustLoDegree(t *testing.T) {
	l := &LRG{Mask: NewRegMask(0, 1, 2), NumRegs: 1}
	l.SetDegree(2)
	require.True(t, l.JustLoDegree())
}

func TestLRG_IsBound(t *testing.T) {
	l := &LRG{Mask: NewRegMask(0)}
	require.True(t, l.IsBound())
}

func TestLRGTable_UnionMergesMaskAndCost(t *testing.T) {
	tbl := NewLRGTable()
	ida, la := tbl.New()
	la.Mask = NewRegMask(0, 1, 2)
	la.Cost = 1
	la.Area = 1

	idb, lb := tbl.New()
	lb.Mask = NewRegMask(1, 2, 3)
	lb.Cost = 2
	lb.Area = 5

	survivor := tbl.Union(ida, idb)
	require.Equal(t, survivor, tbl.Find(ida))
	require.Equal(t, survivor, tbl.Find(idb))

	merged := tbl.Get(survivor)
	require.True(t, merged.Mask.Has(1))
	require.True(t, merged.Mask.Has(2))
	require.False(t, merged.Mask.Has(0))
	require.False(t, merged.Mask.Has(3))
	require.Equal(t, 3.0, merged.Cost)
	require.Equal(t, 5.0, merged.Area)
}

func TestLRGTable_FindIsIdempotentAfterUnion(t *testing.T) {
	tbl := NewLRGTable()
	ida, _ := tbl.New()
	idb, _ := tbl.New()
	idc, _ := tbl.New()

	tbl.Union(ida, idb)
	tbl.Union(idb, idc)

	require.Equal(t, tbl.Find(ida), tbl.Find(idb))
	require.Equal(t, tbl.Find(idb), tbl.Find(idc))
}

func TestLRGTable_MarkReleaseRollsBackGrowthAndUnions(t *testing.T) {
	tbl := NewLRGTable()
	ida, la := tbl.New()
	la.Cost = 7
	idb, lb := tbl.New()
	lb.Cost = 9

	preMarkLen := tbl.Len()
	m := tbl.Mark()

	idc, _ := tbl.New()
	idd, _ := tbl.New()
	tbl.Union(ida, idb)
	tbl.Union(idc, idd)

	require.Equal(t, tbl.Find(ida), tbl.Find(idb))

	tbl.Release(m)

	require.Equal(t, preMarkLen, tbl.Len())
	require.Equal(t, ida, tbl.Find(ida))
	require.Equal(t, idb, tbl.Find(idb))
	require.Equal(t, 7.0, tbl.Get(ida).Cost)
	require.Equal(t, 9.0, tbl.Get(idb).Cost)

	ide, _ := tbl.New()
	require.Equal(t, idc, ide, "ids beyond the mark must be reusable after Release")
}

func TestLRGTable_ResetReusesPagesAndClearsUnions(t *testing.T) {
	tbl := NewLRGTable()
	ida, _ := tbl.New()
	idb, _ := tbl.New()
	tbl.Union(ida, idb)

	tbl.Reset()

	require.Equal(t, 1, tbl.Len())
	idc, _ := tbl.New()
	require.Equal(t, idc, tbl.Find(idc))
}
