package tours

// AssignSequence stamps each leg with its 1-based position in the slice.
// It does not sort: callers pass legs already ordered by flight date then id.
func AssignSequence(legs []EnrichedLeg) []EnrichedLeg {
	for i := range legs {
		legs[i].Sequence = i + 1
	}
	return legs
}
