// Package grid converts between linear cell indices and (column, row)
// coordinates of a row-major grid.
package grid

// GetGridCoords returns the column and row of a linear index.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// Index is the inverse of GetGridCoords.
func Index(x, y, cols int) int {
	return y*cols + x
}

// InBounds reports whether (x, y) lies inside a cols×rows grid.
func InBounds(x, y, cols, rows int) bool {
	return x >= 0 && x < cols && y >= 0 && y < rows
}
