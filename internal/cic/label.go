package cic

import (
	"sort"

	"cic2nf/internal/core/model"
)

// LabelSet assigns label indices for one input file. The benign sentinel
// always holds index 1; every other name gets the next free index in the
// order it is first seen.
type LabelSet struct {
	byName map[string]model.Label
	next   uint8
}

// NewLabelSet returns a set with benign pre-registered.
func NewLabelSet(benign model.Label) *LabelSet {
	return &LabelSet{
		byName: map[string]model.Label{benign.Name: benign},
		next:   model.LabelIndexBenign + 1,
	}
}

// Assign returns the label for name, registering it on first sight. Indices
// saturate at 255; later names share it.
func (s *LabelSet) Assign(name string) model.Label {
	if l, ok := s.byName[name]; ok {
		return l
	}
	l := model.Label{Name: name, Index: s.next}
	if s.next < 255 {
		s.next++
	}
	s.byName[name] = l
	return l
}

// Labels returns every registered label ordered by index.
func (s *LabelSet) Labels() []model.Label {
	out := make([]model.Label, 0, len(s.byName))
	for _, l := range s.byName {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].Name < out[j].Name
	})
	return out
}
