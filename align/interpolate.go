package align

import "sort"

// Interpolate resamples ys, sampled at ascending xs, onto grid. Targets before
// the first sample or beyond the last are clamped to the end values; equal
// bracketing distances return the left value. xs and ys must be the same length.
func Interpolate(xs, ys, grid []float64) []float64 {
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil
	}

	out := make([]float64, len(grid))
	last := len(xs) - 1

	j := 0
	for i, x := range grid {
		if x <= xs[0] {
			out[i] = ys[0]
			continue
		}
		if x >= xs[last] {
			out[i] = ys[last]
			continue
		}
		// Grid targets are usually ascending; restart the cursor when they are not.
		if xs[j] > x {
			j = 0
		}
		for j < last-1 && xs[j+1] <= x {
			j++
		}

		x1, x2 := xs[j], xs[j+1]
		y1, y2 := ys[j], ys[j+1]
		if x2 == x1 {
			out[i] = y1
			continue
		}
		out[i] = y1 + (y2-y1)*(x-x1)/(x2-x1)
	}
	return out
}

// monotonic returns xs/ys ordered by distance with repeated distances collapsed
// to their first sample. Already ascending input is returned as is.
func monotonic(xs, ys []float64) ([]float64, []float64) {
	ascending := true
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			ascending = false
			break
		}
	}
	if ascending {
		return xs, ys
	}

	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return xs[order[a]] < xs[order[b]] })

	outX := make([]float64, 0, len(xs))
	outY := make([]float64, 0, len(ys))
	for _, k := range order {
		if n := len(outX); n > 0 && outX[n-1] == xs[k] {
			continue
		}
		outX = append(outX, xs[k])
		outY = append(outY, ys[k])
	}
	return outX, outY
}
