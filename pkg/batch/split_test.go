package batch

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	colors := []string{"blue", "green", "red", "yellow", "pink"}

	tests := []struct {
		name  string
		items []string
		size  int
		want  [][]string
	}{
		{"nil input", nil, 2, nil},
		{"empty input", []string{}, 2, [][]string{}},
		{"uneven", colors, 2, [][]string{{"blue", "green"}, {"red", "yellow"}, {"pink"}}},
		{"even", colors[:4], 2, [][]string{{"blue", "green"}, {"red", "yellow"}}},
		{"size one", colors[:3], 1, [][]string{{"blue"}, {"green"}, {"red"}}},
		{"size larger than input", colors, 10, [][]string{colors}},
		{"size equals input", colors, 5, [][]string{colors}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.items, tt.size)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Split() nil = %v, want nil = %v", got == nil, tt.want == nil)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplit_Properties(t *testing.T) {
	for n := 0; n <= 25; n++ {
		items := make([]int, n)
		for i := range items {
			items[i] = i
		}
		for size := 1; size <= 7; size++ {
			batches := Split(items, size)

			var flat []int
			for i, b := range batches {
				if len(b) == 0 || len(b) > size {
					t.Fatalf("n=%d size=%d: batch %d has %d elements", n, size, i, len(b))
				}
				if i < len(batches)-1 && len(b) != size {
					t.Fatalf("n=%d size=%d: non-final batch %d has %d elements", n, size, i, len(b))
				}
				flat = append(flat, b...)
			}
			if len(flat) != n {
				t.Fatalf("n=%d size=%d: %d elements after split", n, size, len(flat))
			}
			for i, v := range flat {
				if v != i {
					t.Fatalf("n=%d size=%d: element %d is %d", n, size, i, v)
				}
			}
		}
	}
}

func TestSplit_BatchesDoNotAlias(t *testing.T) {
	batches := Split([]int{1, 2, 3, 4}, 2)
	batches[0] = append(batches[0], 99)

	if batches[1][0] != 3 {
		t.Fatalf("appending to first batch changed second batch: %v", batches[1])
	}
}

func TestSplit_PanicsOnNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Split(size=%d) did not panic", size)
				}
			}()
			Split([]int{1}, size)
		}()
	}
}
