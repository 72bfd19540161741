package sktree

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// model is the on-disk form of one tree or a forest.
type model struct {
	Trees []*Tree `json:"trees"`
}

// SaveTrees writes trees as JSON.
func SaveTrees(w io.Writer, trees []*Tree) error {
	return errors.Wrap(json.NewEncoder(w).Encode(model{Trees: trees}), "encoding trees")
}

// LoadTrees reads trees written by SaveTrees and checks that every node
// reference stays inside its tree.
func LoadTrees(r io.Reader) ([]*Tree, error) {
	var m model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decoding trees")
	}
	if len(m.Trees) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "model contains no trees")
	}
	for i, t := range m.Trees {
		if err := t.validate(); err != nil {
			return nil, errors.WithMessagef(err, "tree %d", i)
		}
	}
	return m.Trees, nil
}

// validate checks the structural invariants Apply relies on.
func (t *Tree) validate() error {
	if t == nil || len(t.Nodes) == 0 {
		return errors.Wrap(ErrInvalidInput, "tree has no nodes")
	}
	if t.NFeatures < 1 {
		return errors.Wrapf(ErrInvalidInput, "tree has %d features", t.NFeatures)
	}
	count := len(t.Nodes)
	for id := range t.Nodes {
		n := &t.Nodes[id]
		if n.ID != id {
			return errors.Wrapf(ErrInvalidInput, "node %d has ID %d", id, n.ID)
		}
		if n.IsLeaf {
			continue
		}
		// Children always come after their parent, which rules out cycles.
		if n.Left <= id || n.Left >= count || n.Right <= id || n.Right >= count {
			return errors.Wrapf(ErrInvalidInput, "node %d has children %d, %d outside the tree", id, n.Left, n.Right)
		}
		if n.Feature == TreeUndefined {
			if n.Projection.Empty() || len(n.Projection.Features) != len(n.Projection.Weights) {
				return errors.Wrapf(ErrInvalidInput, "node %d has no split", id)
			}
			for _, f := range n.Projection.Features {
				if f < 0 || f >= t.NFeatures {
					return errors.Wrapf(ErrInvalidInput, "node %d projects feature %d", id, f)
				}
			}
		} else if n.Feature < 0 || n.Feature >= t.NFeatures {
			return errors.Wrapf(ErrInvalidInput, "node %d splits on feature %d", id, n.Feature)
		}
	}
	return nil
}
