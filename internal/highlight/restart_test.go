package highlight

import (
	"reflect"
	"testing"
)

func indexOf(offsets ...int) *RestartIndex {
	x := NewRestartIndex()
	for _, off := range offsets {
		x.Add(off)
	}
	return x
}

func TestRestartIndexBounds(t *testing.T) {
	x := indexOf(3, 10, 20)

	cases := []struct {
		off  int
		want int
	}{
		{0, 0}, {2, 0}, {3, 3}, {9, 3}, {10, 10}, {25, 20},
	}
	for _, tc := range cases {
		if got := x.LowerBound(tc.off); got != tc.want {
			t.Fatalf("LowerBound(%d) = %d, want %d", tc.off, got, tc.want)
		}
	}

	if got, ok := x.Ceiling(10); !ok || got != 10 {
		t.Fatalf("Ceiling(10) = %d, %v, want 10, true", got, ok)
	}
	if got, ok := x.Higher(10); !ok || got != 20 {
		t.Fatalf("Higher(10) = %d, %v, want 20, true", got, ok)
	}
	if _, ok := x.Higher(20); ok {
		t.Fatalf("Higher(20) ok = true, want false")
	}
}

func TestRestartIndexAddKeepsOrder(t *testing.T) {
	x := indexOf(9, 1, 5, 5, -1)
	want := []int{1, 5, 9}
	if got := x.Offsets(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Offsets = %v, want %v", got, want)
	}
	if !x.Contains(5) || x.Contains(4) {
		t.Fatalf("Contains(5), Contains(4) = %v, %v, want true, false", x.Contains(5), x.Contains(4))
	}
}

func TestRestartIndexInvalidateRange(t *testing.T) {
	x := indexOf(0, 3, 5, 8)
	x.InvalidateRange(3, 8)
	want := []int{0, 8}
	if got := x.Offsets(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Offsets = %v, want %v", got, want)
	}
	x.InvalidateRange(8, 8)
	if x.Len() != 2 {
		t.Fatalf("empty range removed entries: %v", x.Offsets())
	}
}

func TestRestartIndexReplaceRange(t *testing.T) {
	x := indexOf(0, 3, 5, 8)
	x.ReplaceRange(0, 5, []int{4, 0, 4})
	want := []int{0, 4, 5, 8}
	if got := x.Offsets(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Offsets = %v, want %v", got, want)
	}
}

func TestRestartIndexShift(t *testing.T) {
	x := indexOf(0, 3, 5)
	x.Shift(1, 1)
	want := []int{0, 4, 6}
	if got := x.Offsets(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Offsets = %v, want %v", got, want)
	}

	// collisions with earlier entries are dropped
	x = indexOf(2, 6, 7)
	x.Shift(6, -4)
	want = []int{2, 3}
	if got := x.Offsets(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Offsets = %v, want %v", got, want)
	}
}

func TestRestartIndexApply(t *testing.T) {
	x := indexOf(0, 3, 5, 9)
	x.Apply(3, -3) // drops 3 and 5, pulls 9 back
	want := []int{0, 6}
	if got := x.Offsets(); !reflect.DeepEqual(got, want) {
		t.Fatalf("after deletion Offsets = %v, want %v", got, want)
	}

	x.Apply(6, 2) // inserted text lands before the point
	want = []int{0, 8}
	if got := x.Offsets(); !reflect.DeepEqual(got, want) {
		t.Fatalf("after insertion Offsets = %v, want %v", got, want)
	}

	x.Apply(4, -4) // the point at the deletion end survives
	want = []int{0, 4}
	if got := x.Offsets(); !reflect.DeepEqual(got, want) {
		t.Fatalf("after second deletion Offsets = %v, want %v", got, want)
	}
}

func TestRestartIndexTrimToLength(t *testing.T) {
	x := indexOf(0, 3, 5)
	x.TrimToLength(5)
	want := []int{0, 3}
	if got := x.Offsets(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Offsets = %v, want %v", got, want)
	}
	x.TrimToLength(0)
	want = []int{0}
	if got := x.Offsets(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Offsets = %v, want %v", got, want)
	}
	x.Clear()
	if x.Len() != 0 {
		t.Fatalf("Len after Clear = %d", x.Len())
	}
}
