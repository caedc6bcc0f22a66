// core/reduce/elbow.go
package reduce

// Elbow returns the number of leading components to keep according to the
// largest relative drop in explained variance. It is a secondary check on
// the resampling procedure, not the primary selector.
func Elbow(explained []float64) int {
	if len(explained) < 2 {
		return len(explained)
	}
	best, at := 0.0, 1
	for i := 0; i+1 < len(explained); i++ {
		if explained[i] <= 0 {
			break
		}
		drop := (explained[i] - explained[i+1]) / explained[i]
		if drop > best {
			best, at = drop, i+1
		}
	}
	return at
}
