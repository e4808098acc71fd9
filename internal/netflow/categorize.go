package netflow

import (
	"sort"

	"cic2nf/internal/core/model"
)

// Categorize groups flows by label name. Within a group the input order is
// preserved, so a sorted batch yields sorted groups.
func Categorize(flows []*model.NetFlow) map[string][]*model.NetFlow {
	groups := make(map[string][]*model.NetFlow)
	for _, nf := range flows {
		groups[nf.Label.Name] = append(groups[nf.Label.Name], nf)
	}
	return groups
}

// SortedLabels returns the group keys in ascending order.
func SortedLabels(groups map[string][]*model.NetFlow) []string {
	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
