package sentiment

import "math"

// Score converts a column's labels into a satisfaction score out of 5:
// the positive share of all labels, scaled and rounded to two decimals.
// An empty column scores 0.
func Score(labels []Label) float64 {
	if len(labels) == 0 {
		return 0
	}

	positive := 0
	for _, l := range labels {
		if l == LabelPositive {
			positive++
		}
	}

	return round2(float64(positive) / float64(len(labels)) * 5)
}

// Overall is the unweighted mean of per-column scores, rounded to two
// decimals. 0 when there are no columns.
func Overall(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}

	return round2(sum / float64(len(scores)))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
