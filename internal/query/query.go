// Package query filters and orders the record list for display. Every
// function here is pure: the input slice is never modified.
package query

import (
	"fmt"
	"sort"
	"strings"

	"tinbox/internal/model"
)

type StatusFilter string

const (
	StatusAll StatusFilter = "all"
	StatusYes StatusFilter = "yes"
	StatusNo  StatusFilter = "no"
)

type SortOrder string

const (
	SortNone       SortOrder = "none"
	SortAscending  SortOrder = "ascending"
	SortDescending SortOrder = "descending"
)

// NoMatchingData is shown in place of an empty table.
const NoMatchingData = "no matching data"

type Params struct {
	Search string       `json:"search"`
	Status StatusFilter `json:"status"`
	Sort   SortOrder    `json:"sort"`
}

// ParseStatusFilter accepts all/yes/no or the form's localized options.
// Empty means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "all", "الكل":
		return StatusAll, nil
	case "yes", model.CollectedYesLabel:
		return StatusYes, nil
	case "no", model.CollectedNoLabel:
		return StatusNo, nil
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

// ParseSortOrder accepts none/ascending/descending, asc/desc, or the
// form's localized options. Empty means none.
func ParseSortOrder(s string) (SortOrder, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "none", "بدون ترتيب":
		return SortNone, nil
	case "ascending", "asc", "تصاعدي":
		return SortAscending, nil
	case "descending", "desc", "تنازلي":
		return SortDescending, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// Apply returns the records matching p in display order.
func Apply(records []model.Donation, p Params) []model.Donation {
	needle := strings.ToLower(p.Search)

	out := make([]model.Donation, 0, len(records))
	for _, d := range records {
		if needle != "" && !strings.Contains(strings.ToLower(d.StoreName), needle) {
			continue
		}
		if !matchesStatus(d, p.Status) {
			continue
		}
		out = append(out, d)
	}

	switch p.Sort {
	case SortAscending:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	case SortDescending:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	}
	return out
}

func matchesStatus(d model.Donation, f StatusFilter) bool {
	switch f {
	case StatusYes:
		return d.Collected.Normalize() == model.CollectedYes
	case StatusNo:
		return d.Collected.Normalize() == model.CollectedNo
	}
	return true
}
