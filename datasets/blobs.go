// Package datasets generates small synthetic data sets for examples and
// tests.
package datasets

import (
	"math/rand"

	"github.com/pkg/errors"
)

// BlobsConfig describes isotropic Gaussian blobs.
type BlobsConfig struct {
	// NSamples is the total number of points, split as evenly as possible
	// between centers (earlier centers get the remainder).
	NSamples int

	// NFeatures is the dimension of random centers. Ignored when Centers is
	// set.
	NFeatures int

	// Centers fixes the blob centers. When nil, NCenters centers are drawn
	// uniformly from CenterBox.
	Centers  [][]float64
	NCenters int

	// ClusterStd is the standard deviation of every blob. Default: 1.
	ClusterStd float64

	// CenterBox bounds random centers. Default: [-10, 10].
	CenterBox [2]float64

	// Shuffle permutes the samples; otherwise they are grouped by blob.
	Shuffle bool

	RandomState int64
}

// MakeBlobs returns the points and the index of the blob each came from.
func MakeBlobs(cfg BlobsConfig) ([][]float64, []int, error) {
	if cfg.NSamples < 1 {
		return nil, nil, errors.Errorf("datasets: NSamples must be >= 1, got %d", cfg.NSamples)
	}
	if cfg.ClusterStd == 0 {
		cfg.ClusterStd = 1
	}
	if cfg.CenterBox == [2]float64{} {
		cfg.CenterBox = [2]float64{-10, 10}
	}
	rng := rand.New(rand.NewSource(cfg.RandomState))

	centers := cfg.Centers
	if centers == nil {
		if cfg.NCenters < 1 || cfg.NFeatures < 1 {
			return nil, nil, errors.Errorf("datasets: need NCenters >= 1 and NFeatures >= 1, got %d and %d", cfg.NCenters, cfg.NFeatures)
		}
		lo, hi := cfg.CenterBox[0], cfg.CenterBox[1]
		centers = make([][]float64, cfg.NCenters)
		for c := range centers {
			centers[c] = make([]float64, cfg.NFeatures)
			for j := range centers[c] {
				centers[c][j] = lo + rng.Float64()*(hi-lo)
			}
		}
	}
	dims := len(centers[0])
	for c, center := range centers {
		if len(center) != dims || dims == 0 {
			return nil, nil, errors.Errorf("datasets: center %d has %d features, expected %d", c, len(center), dims)
		}
	}

	k := len(centers)
	X := make([][]float64, 0, cfg.NSamples)
	y := make([]int, 0, cfg.NSamples)
	for c, center := range centers {
		count := cfg.NSamples / k
		if c < cfg.NSamples%k {
			count++
		}
		for i := 0; i < count; i++ {
			row := make([]float64, dims)
			for j := range row {
				row[j] = center[j] + rng.NormFloat64()*cfg.ClusterStd
			}
			X = append(X, row)
			y = append(y, c)
		}
	}

	if cfg.Shuffle {
		rng.Shuffle(len(X), func(i, j int) {
			X[i], X[j] = X[j], X[i]
			y[i], y[j] = y[j], y[i]
		})
	}
	return X, y, nil
}
