package gallery

// Distribute assigns items round-robin to columns for a masonry layout:
// item i lands in column i mod columns. The full distribution is recomputed
// on every call; within a column items keep their original order.
func Distribute[T any](items []T, columns int) [][]T {
	if columns < 1 {
		columns = 1
	}

	cols := make([][]T, columns)
	for i := range cols {
		cols[i] = []T{}
	}
	for i, item := range items {
		cols[i%columns] = append(cols[i%columns], item)
	}
	return cols
}
