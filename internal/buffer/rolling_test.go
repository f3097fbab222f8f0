package buffer

import (
	"reflect"
	"sync"
	"testing"
)

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestAppendUnderCap(t *testing.T) {
	r := New[int](5)
	r.Append(1, 2, 3)
	if got := r.Snapshot(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("snapshot = %v", got)
	}
}

func TestCapEvictsOldest(t *testing.T) {
	tests := []struct {
		name    string
		cap     int
		batches [][]int
		want    []int
	}{
		{"exact fill", 3, [][]int{{1, 2, 3}}, []int{1, 2, 3}},
		{"single overflow", 3, [][]int{{1, 2, 3}, {4}}, []int{2, 3, 4}},
		{"batch larger than cap", 3, [][]int{{1}, seq(2, 10)}, []int{8, 9, 10}},
		{"many small batches", 4, [][]int{{1, 2}, {3, 4}, {5}, {6, 7}}, []int{4, 5, 6, 7}},
		{"cap one", 1, [][]int{{1, 2}, {3}}, []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New[int](tt.cap)
			for _, b := range tt.batches {
				r.Append(b...)
				if r.Len() > tt.cap {
					t.Fatalf("len %d exceeds cap %d", r.Len(), tt.cap)
				}
			}
			if got := r.Snapshot(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("snapshot = %v, want %v", got, tt.want)
			}
			last, ok := r.Last()
			if !ok || last != tt.want[len(tt.want)-1] {
				t.Fatalf("last = %v %v", last, ok)
			}
		})
	}
}

func TestLenIsMinOfTotalAndCap(t *testing.T) {
	const c = 8000
	r := New[int](c)
	total := 0
	for i := 0; i < 50; i++ {
		batch := seq(total, total+199)
		r.Append(batch...)
		total += len(batch)
		want := total
		if want > c {
			want = c
		}
		if r.Len() != want {
			t.Fatalf("after %d items len = %d, want %d", total, r.Len(), want)
		}
	}
	snap := r.Snapshot()
	if snap[0] != total-c || snap[len(snap)-1] != total-1 {
		t.Fatalf("unexpected window [%d..%d]", snap[0], snap[len(snap)-1])
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := New[int](2)
	r.Append(1, 2)
	s := r.Snapshot()
	s[0] = 99
	if got := r.Snapshot(); got[0] != 1 {
		t.Fatalf("snapshot aliased internal storage")
	}
}

func TestResetAndZeroCap(t *testing.T) {
	r := New[string](0)
	if r.Cap() != 1 {
		t.Fatalf("cap = %d", r.Cap())
	}
	r.Append("a", "b")
	r.Reset()
	if r.Len() != 0 || len(r.Snapshot()) != 0 {
		t.Fatalf("reset did not clear")
	}
	if _, ok := r.Last(); ok {
		t.Fatalf("last after reset")
	}
	r.Append("c")
	if got := r.Snapshot(); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("after reset = %v", got)
	}
}

func TestConcurrentReaders(t *testing.T) {
	r := New[int](64)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if n := len(r.Snapshot()); n > 64 {
					t.Errorf("snapshot len %d", n)
					return
				}
			}
		}()
	}
	for j := 0; j < 1000; j++ {
		r.Append(j)
	}
	wg.Wait()
}
