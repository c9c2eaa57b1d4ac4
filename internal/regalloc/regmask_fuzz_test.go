package regalloc

import "testing"

// FuzzRegMask_AgreesWithBoolSliceModel checks RegMask's bit operations
// against a plain []bool reference model of the same 128 register numbers.
func FuzzRegMask_AgreesWithBoolSliceModel(f *testing.F) {
	f.Add(uint8(1), uint8(2), uint8(3), uint8(0))
	f.Add(uint8(0), uint8(127), uint8(64), uint8(1))
	f.Add(uint8(5), uint8(5), uint8(5), uint8(2))

	f.Fuzz(func(t *testing.T, ra, rb, rc uint8, op uint8) {
		var want [RealRegsNumMax]bool
		var m RegMask

		ra, rb, rc = ra%RealRegsNumMax, rb%RealRegsNumMax, rc%RealRegsNumMax

		insert := func(r RealReg) {
			want[r] = true
			m.Insert(r)
		}
		insert(RealReg(ra))
		insert(RealReg(rb))

		switch op % 3 {
		case 0:
			want[rc] = false
			m.Remove(RealReg(rc))
		case 1:
			other := NewRegMask(RealReg(rc))
			for i := range want {
				want[i] = want[i] && i == int(rc)
			}
			m.AND(other)
		case 2:
			m.SUBTRACT(NewRegMask(RealReg(rc)))
			want[rc] = false
		}

		for r := 0; r < RealRegsNumMax; r++ {
			if got, exp := m.Has(RealReg(r)), want[r]; got != exp {
				t.Fatalf("Has(%d) = %v, want %v (ra=%d rb=%d rc=%d op=%d)", r, got, exp, ra, rb, rc, op)
			}
		}

		size := 0
		for _, b := range want {
			if b {
				size++
			}
		}
		if got := m.Size(); got != size {
			t.Fatalf("Size() = %d, want %d", got, size)
		}
	})
}

// FuzzUnionFind_RootInvariant checks that after any sequence of unions the
// uf[i] <= i monotonicity invariant holds and find is idempotent.
func FuzzUnionFind_RootInvariant(f *testing.F) {
	f.Add(uint8(0), uint8(1), uint8(2), uint8(3), uint8(0), uint8(4))
	f.Add(uint8(3), uint8(3), uint8(1), uint8(1), uint8(2), uint8(0))

	f.Fuzz(func(t *testing.T, a1, b1, a2, b2, a3, b3 uint8) {
		const n = 16
		uf := newUnionFind(n)
		clamp := func(v uint8) uint32 { return uint32(v) % n }

		pairs := [][2]uint32{
			{clamp(a1), clamp(b1)},
			{clamp(a2), clamp(b2)},
			{clamp(a3), clamp(b3)},
		}
		for _, p := range pairs {
			uf.union(p[0], p[1])
		}

		for i := uint32(0); i < n; i++ {
			if uf.parent[i] > i {
				t.Fatalf("uf[%d] = %d violates uf[i] <= i", i, uf.parent[i])
			}
			root := uf.find(i)
			if uf.find(root) != root {
				t.Fatalf("find(%d) = %d is not its own root", i, root)
			}
		}

		for _, p := range pairs {
			if uf.find(p[0]) != uf.find(p[1]) {
				t.Fatalf("union(%d, %d) did not merge their roots", p[0], p[1])
			}
		}
	})
}
