package tours

import "testing"

func TestAssignSequence(t *testing.T) {
	legs := []EnrichedLeg{
		testLeg("KSEA", "KPDX", nil),
		testLeg("KPDX", "KSFO", nil),
		testLeg("KSFO", "KLAX", nil),
	}
	got := AssignSequence(legs)
	for i, l := range got {
		if l.Sequence != i+1 {
			t.Errorf("legs[%d].Sequence = %d, want %d", i, l.Sequence, i+1)
		}
	}
	if got := AssignSequence(nil); len(got) != 0 {
		t.Errorf("AssignSequence(nil) = %v", got)
	}
}
