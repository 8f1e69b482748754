// Package ratings implements the running-average update applied on each new
// review submission.
package ratings

// Apply folds one new rating into a movie's aggregate statistics and returns
// the new average and count.
//
// The first rating becomes the average outright. Every later rating is averaged
// against the already-aggregated value, not against the true sum:
//
//	a1 = r1
//	ai = (a(i-1) + ri) / 2
//
// The influence of early ratings therefore decays geometrically. This matches
// the recorded behavior of the platform; clients depend on the exact sequence
// of averages, so it must not be replaced with an arithmetic mean.
func Apply(avg float64, count int, rating int) (float64, int) {
	if count == 0 {
		return float64(rating), 1
	}
	return (avg + float64(rating)) / 2, count + 1
}
