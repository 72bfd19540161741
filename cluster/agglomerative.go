package cluster

import (
	"math"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

var log = logrus.WithField("component", "cluster")

// ErrInvalidInput is returned for empty, non-square (precomputed) or otherwise
// unusable inputs and parameters.
var ErrInvalidInput = errors.New("cluster: invalid input")

// Linkage selects how the distance between two clusters is derived from the
// distances between their members.
type Linkage string

const (
	// LinkageWard merges the pair that least increases total within-cluster
	// variance. Requires Euclidean distances.
	LinkageWard     Linkage = "ward"
	LinkageComplete Linkage = "complete"
	LinkageAverage  Linkage = "average"
	LinkageSingle   Linkage = "single"
)

// Agglomerative is bottom-up hierarchical clustering cut at NClusters.
// The zero value is usable and behaves like NewAgglomerative(2).
type Agglomerative struct {
	// NClusters is the number of flat clusters to return. Default: 2.
	NClusters int

	// Linkage criterion. Default: LinkageWard.
	Linkage Linkage

	// Metric between rows of X. Ignored when Precomputed is set.
	// Default: EuclideanMetric.
	Metric DistanceMetric

	// Precomputed treats X as a square distance matrix. Not valid with Ward.
	Precomputed bool

	// Workers for the pairwise distance stage. 0 means runtime.NumCPU().
	Workers int
}

// NewAgglomerative returns Ward clustering with Euclidean distances cut into
// nClusters groups.
func NewAgglomerative(nClusters int) *Agglomerative {
	return &Agglomerative{
		NClusters: nClusters,
		Linkage:   LinkageWard,
		Metric:    EuclideanMetric{},
	}
}

func (a *Agglomerative) params() (Agglomerative, error) {
	p := *a
	if p.NClusters == 0 {
		p.NClusters = 2
	}
	if p.Linkage == "" {
		p.Linkage = LinkageWard
	}
	if p.Metric == nil {
		p.Metric = EuclideanMetric{}
	}
	if p.Workers == 0 {
		p.Workers = runtime.NumCPU()
	}

	if p.NClusters < 1 {
		return p, errors.Wrapf(ErrInvalidInput, "NClusters must be >= 1, got %d", p.NClusters)
	}
	switch p.Linkage {
	case LinkageWard:
		if p.Precomputed {
			return p, errors.Wrap(ErrInvalidInput, "ward linkage cannot use a precomputed matrix")
		}
		if _, ok := p.Metric.(EuclideanMetric); !ok {
			return p, errors.Wrap(ErrInvalidInput, "ward linkage requires EuclideanMetric")
		}
	case LinkageComplete, LinkageAverage, LinkageSingle:
	default:
		return p, errors.Wrapf(ErrInvalidInput, "unknown linkage %q", p.Linkage)
	}
	return p, nil
}

// FitPredict clusters the rows of X and returns one label per row.
func (a *Agglomerative) FitPredict(X mat.Matrix) ([]int, error) {
	p, err := a.params()
	if err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	if p.NClusters > n {
		return nil, errors.Wrapf(ErrInvalidInput, "NClusters=%d exceeds the number of samples %d", p.NClusters, n)
	}

	dendrogram, err := p.dendrogram(X)
	if err != nil {
		return nil, err
	}
	labels := CutTree(dendrogram, n, p.NClusters)

	log.WithFields(logrus.Fields{
		"samples":  n,
		"clusters": p.NClusters,
		"linkage":  p.Linkage,
	}).Debug("agglomerative clustering done")
	return labels, nil
}

// Dendrogram returns the full merge hierarchy of the rows of X in scipy
// linkage format.
func (a *Agglomerative) Dendrogram(X mat.Matrix) ([][4]float64, error) {
	p, err := a.params()
	if err != nil {
		return nil, err
	}
	return p.dendrogram(X)
}

func (a *Agglomerative) dendrogram(X mat.Matrix) ([][4]float64, error) {
	dist, n, err := a.distances(X)
	if err != nil {
		return nil, err
	}

	var edges [][3]float64
	if a.Linkage == LinkageSingle {
		edges = PrimMST(dist, n)
	} else {
		edges = nnChain(dist, n, a.Linkage)
	}
	return Label(edges, n), nil
}

// distances returns a flat n*n distance matrix for X.
func (a *Agglomerative) distances(X mat.Matrix) ([]float64, int, error) {
	n, dims := X.Dims()
	if n == 0 || dims == 0 {
		return nil, 0, errors.Wrap(ErrInvalidInput, "empty matrix")
	}

	flat := make([]float64, n*dims)
	for i := 0; i < n; i++ {
		mat.Row(flat[i*dims:(i+1)*dims], i, X)
	}

	if !a.Precomputed {
		return ComputePairwiseDistancesParallel(flat, n, dims, a.Metric, a.Workers), n, nil
	}

	if n != dims {
		return nil, 0, errors.Wrapf(ErrInvalidInput, "precomputed matrix must be square, got %dx%d", n, dims)
	}
	for i, d := range flat {
		if d < 0 || math.IsNaN(d) {
			return nil, 0, errors.Wrapf(ErrInvalidInput, "precomputed distance (%d,%d) = %v", i/n, i%n, d)
		}
	}
	return flat, n, nil
}

// nnChain runs the nearest-neighbor chain algorithm on a dense distance
// matrix, which it overwrites with Lance-Williams updates. Each returned edge
// is [a, b, distance] where a and b are point IDs that were slots of the two
// merged clusters; the cluster formed by a merge keeps slot b.
func nnChain(dist []float64, n int, linkage Linkage) [][3]float64 {
	if n <= 1 {
		return nil
	}

	active := make([]bool, n)
	size := make([]float64, n)
	for i := range active {
		active[i] = true
		size[i] = 1
	}

	edges := make([][3]float64, 0, n-1)
	chain := make([]int, 0, n)

	for len(edges) < n-1 {
		if len(chain) == 0 {
			for i := range active {
				if active[i] {
					chain = append(chain, i)
					break
				}
			}
		}

		var a, b int
		var d float64
		for {
			a = chain[len(chain)-1]
			b = -1
			d = math.Inf(1)
			// Prefer the previous chain element on ties so the chain terminates.
			if len(chain) > 1 {
				b = chain[len(chain)-2]
				d = dist[a*n+b]
			}
			for k := 0; k < n; k++ {
				if !active[k] || k == a {
					continue
				}
				if dist[a*n+k] < d {
					d = dist[a*n+k]
					b = k
				}
			}
			if b == -1 {
				for k := 0; k < n; k++ {
					if active[k] && k != a {
						b = k
						d = dist[a*n+k]
						break
					}
				}
			}
			if len(chain) > 1 && b == chain[len(chain)-2] {
				break
			}
			chain = append(chain, b)
		}
		chain = chain[:len(chain)-2]

		edges = append(edges, [3]float64{float64(a), float64(b), d})

		na, nb := size[a], size[b]
		for k := 0; k < n; k++ {
			if !active[k] || k == a || k == b {
				continue
			}
			nd := lanceWilliams(linkage, dist[a*n+k], dist[b*n+k], d, na, nb, size[k])
			dist[b*n+k] = nd
			dist[k*n+b] = nd
		}
		active[a] = false
		size[b] = na + nb
	}

	return edges
}

// lanceWilliams returns the distance from cluster k to the union of a and b.
func lanceWilliams(linkage Linkage, dak, dbk, dab, na, nb, nk float64) float64 {
	switch linkage {
	case LinkageComplete:
		return math.Max(dak, dbk)
	case LinkageAverage:
		return (na*dak + nb*dbk) / (na + nb)
	case LinkageWard:
		t := na + nb + nk
		return math.Sqrt(((na+nk)*dak*dak + (nb+nk)*dbk*dbk - nk*dab*dab) / t)
	default:
		return math.Min(dak, dbk)
	}
}
