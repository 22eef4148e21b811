package verify

import "basketScope/internal/model"

// ChooseCommonMode intersects the per-token supported-mode sets and walks
// the fixed priority order, returning the first mode present in every set.
// The second return is false when the intersection is empty. With no sets
// at all (a basket whose only component is the deposit token) the
// highest-priority mode wins.
func ChooseCommonMode(sets []model.ModeSet) (model.PricingMode, bool) {
	var intersection model.ModeSet
	for _, mode := range model.ModePriority {
		intersection = intersection.Add(mode)
	}
	for _, set := range sets {
		intersection = intersection.Intersect(set)
	}
	for _, mode := range model.ModePriority {
		if intersection.Contains(mode) {
			return mode, true
		}
	}
	return 0, false
}
