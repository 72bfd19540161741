package cluster

import "github.com/pkg/errors"

// AdjustedRandScore is the Rand index between two labelings, adjusted for
// chance: 1 for identical partitions (up to renaming), about 0 for random
// ones. truth and pred must have the same length.
func AdjustedRandScore(truth, pred []int) (float64, error) {
	if len(truth) != len(pred) {
		return 0, errors.Wrapf(ErrInvalidInput, "label lengths differ: %d vs %d", len(truth), len(pred))
	}
	n := len(truth)

	contingency := make(map[[2]int]int)
	rows := make(map[int]int)
	cols := make(map[int]int)
	for i := range truth {
		contingency[[2]int{truth[i], pred[i]}]++
		rows[truth[i]]++
		cols[pred[i]]++
	}

	// A single cluster on both sides, or every sample on its own on both
	// sides, is a perfect match.
	if len(rows) == len(cols) && (len(rows) <= 1 || len(rows) == n) {
		return 1, nil
	}

	var index, sumRows, sumCols float64
	for _, c := range contingency {
		index += comb2(c)
	}
	for _, c := range rows {
		sumRows += comb2(c)
	}
	for _, c := range cols {
		sumCols += comb2(c)
	}

	expected := sumRows * sumCols / comb2(n)
	maxIndex := (sumRows + sumCols) / 2
	if maxIndex == expected {
		return 1, nil
	}
	return (index - expected) / (maxIndex - expected), nil
}

func comb2(x int) float64 {
	return float64(x) * float64(x-1) / 2
}
