package track

import "lapcompare/models"

// MapCornersToGrid annotates corners with the cumulative delta at their position
// on the alignment grid. scaleS stretches GPS path distance onto grid distance
// (the two are measured by different sensors); 0 means no scaling. The input
// corners are not modified.
func MapCornersToGrid(corners []models.Corner, grid, delta []float64, scaleS float64) []models.Corner {
	out := make([]models.Corner, len(corners))
	copy(out, corners)
	if len(grid) == 0 || len(grid) != len(delta) {
		return out
	}
	if scaleS == 0 {
		scaleS = 1
	}

	for i := range out {
		gi := NearestIndex(grid, out[i].Distance*scaleS)
		d := delta[gi]
		out[i].Delta = &d
	}
	return out
}

// NearestIndex returns the index of the grid value closest to s. grid must be ascending.
func NearestIndex(grid []float64, s float64) int {
	if len(grid) == 0 {
		return 0
	}
	j := 0
	for j+1 < len(grid) && grid[j+1] <= s {
		j++
	}
	closest := j
	if j+1 < len(grid) {
		if s-grid[j] > grid[j+1]-s {
			closest = j + 1
		}
	}
	return closest
}
