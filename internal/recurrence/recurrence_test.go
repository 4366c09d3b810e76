package recurrence

import "testing"

func TestCeilFloorDiv(t *testing.T) {
	cases := []struct {
		a, b        int
		ceil, floor int
	}{
		{0, 3, 0, 0},
		{1, 3, 1, 0},
		{3, 3, 1, 1},
		{4, 3, 2, 1},
		{-1, 3, 0, -1},
		{-3, 3, -1, -1},
		{-4, 3, -1, -2},
	}
	for _, c := range cases {
		if got := CeilDiv(c.a, c.b); got != c.ceil {
			t.Fatalf("CeilDiv(%d,%d)=%d, want %d", c.a, c.b, got, c.ceil)
		}
		if got := FloorDiv(c.a, c.b); got != c.floor {
			t.Fatalf("FloorDiv(%d,%d)=%d, want %d", c.a, c.b, got, c.floor)
		}
	}
}

func TestSolveConverges(t *testing.T) {
	// x = 2 + ceil(x/10)*3 from 2 -> 5 -> 5
	r := Solve(2, 100, func(x int) Result {
		return Converged(2 + CeilDiv(x, 10)*3)
	})
	v, ok := r.Value()
	if !ok || v != 5 {
		t.Fatalf("expected converged 5, got %v", r)
	}
}

func TestSolveCutoff(t *testing.T) {
	r := Solve(1, 50, func(x int) Result { return Converged(x + 1) })
	if !r.IsDiverged() {
		t.Fatalf("expected divergence past the limit, got %v", r)
	}
}

func TestSolvePropagatesDivergence(t *testing.T) {
	calls := 0
	r := Solve(1, 0, func(x int) Result {
		calls++
		if calls == 3 {
			return Diverged
		}
		return Converged(x + 1)
	})
	if !r.IsDiverged() {
		t.Fatalf("expected diverged, got %v", r)
	}
}

func TestMinAndAdd(t *testing.T) {
	if got := Min(Diverged, Converged(4)); got != Converged(4) {
		t.Fatalf("Min(diverged, 4) = %v", got)
	}
	if got := Min(Converged(3), Converged(4)); got != Converged(3) {
		t.Fatalf("Min(3, 4) = %v", got)
	}
	if got := Min(Diverged, Diverged); !got.IsDiverged() {
		t.Fatalf("Min of diverged should diverge")
	}
	if got := Add(Converged(2), Diverged); !got.IsDiverged() {
		t.Fatalf("Add with diverged should diverge")
	}
	if got := Add(Converged(2), Converged(5)); got != Converged(7) {
		t.Fatalf("Add(2,5) = %v", got)
	}
	if got := MinStrict(Diverged, Converged(4)); !got.IsDiverged() {
		t.Fatalf("MinStrict(diverged, 4) = %v", got)
	}
	if got := MinStrict(Converged(4), Diverged); !got.IsDiverged() {
		t.Fatalf("MinStrict(4, diverged) = %v", got)
	}
	if got := MinStrict(Converged(6), Converged(4)); got != Converged(4) {
		t.Fatalf("MinStrict(6, 4) = %v", got)
	}
}
