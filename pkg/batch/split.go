package batch

import "fmt"

// Split partitions items into consecutive batches of size elements. Every
// batch but the last holds exactly size elements; the last holds the rest.
// Order is preserved and nothing is dropped or duplicated.
//
// A nil slice yields nil and an empty slice yields an empty result. Split
// panics if size is not positive.
func Split[T any](items []T, size int) [][]T {
	if size <= 0 {
		panic(fmt.Sprintf("batch: size must be > 0, got %d", size))
	}
	if items == nil {
		return nil
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		// Full slice expression so appending to a batch cannot clobber the next.
		batches = append(batches, items[start:end:end])
	}
	return batches
}
