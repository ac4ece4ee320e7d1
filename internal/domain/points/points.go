// Package points defines the placement-to-points scale.
//
// The table is a design constant: changing it changes the competitive
// meaning of every ledger, so it lives in one declarative place and is
// passed into the extractor rather than consulted globally.
package points

// Table maps a final placement to the points it awards. Placements
// absent from the table are not scored at all; the participant is
// excluded from the scoring set rather than awarded zero.
type Table map[int]int

// Default returns the standard scale. Note that 6th place is
// deliberately absent while 7th scores: brackets report tied 5th/7th
// finishes, never a lone 6th.
func Default() Table {
	return Table{
		1: 10,
		2: 8,
		3: 6,
		4: 4,
		5: 2,
		7: 1,
	}
}

// Score returns the points awarded for placement and whether the
// placement is scorable. Unranked (placement <= 0) is never scorable.
func (t Table) Score(placement int) (int, bool) {
	if placement <= 0 {
		return 0, false
	}
	pts, ok := t[placement]
	return pts, ok
}
