package domain

import "sort"

// SentinelOrder marks rows that sit outside the ordered subset.
const SentinelOrder = 0

// Membership describes a boolean column that gates participation in the
// ordered subset. Rows whose Column equals In are ordered; rows whose Column
// equals Out carry SentinelOrder.
type Membership struct {
	Column string
	In     any
	Out    any
}

// Collection describes one ordered resource table.
type Collection struct {
	Resource   string
	Membership *Membership
}

// Gated reports whether only part of the table participates in the ordering.
func (c Collection) Gated() bool {
	return c.Membership != nil
}

// SubsetFilter returns the gorm-compatible condition selecting the ordered subset.
func (c Collection) SubsetFilter() map[string]any {
	if c.Membership == nil {
		return nil
	}
	return map[string]any{c.Membership.Column: c.Membership.In}
}

// IsContiguous reports whether orders is exactly {1..len(orders)}.
func IsContiguous(orders []int) bool {
	sorted := append([]int(nil), orders...)
	sort.Ints(sorted)
	for i, o := range sorted {
		if o != i+1 {
			return false
		}
	}
	return true
}
