package sktree

import "sort"

// valueSorter co-sorts feature values with the sample indices they belong to.
type valueSorter struct {
	xf      []float64
	samples []int
}

func (v valueSorter) Len() int           { return len(v.xf) }
func (v valueSorter) Less(i, j int) bool { return v.xf[i] < v.xf[j] }
func (v valueSorter) Swap(i, j int) {
	v.xf[i], v.xf[j] = v.xf[j], v.xf[i]
	v.samples[i], v.samples[j] = v.samples[j], v.samples[i]
}

// sortSamples sorts xf ascending and applies the same permutation to samples.
func sortSamples(xf []float64, samples []int) {
	sort.Sort(valueSorter{xf: xf, samples: samples})
}
