package engine

// WellKnownBoxes is the number of checkboxes per well-known side.
const WellKnownBoxes = 3

// PrefixCount is the stored value of a well-known row: the length of the leading run
// of checked boxes, capped at WellKnownBoxes.
func PrefixCount(boxes []bool) int {
	n := 0
	for _, b := range boxes {
		if !b {
			break
		}
		n++
	}
	return min(n, WellKnownBoxes)
}

// ToggleWellKnown applies a click on box i: checking fills every box up to i,
// unchecking clears i and everything after it. The input is not modified.
func ToggleWellKnown(boxes []bool, i int, checked bool) []bool {
	out := make([]bool, len(boxes))
	copy(out, boxes)
	if i < 0 || i >= len(out) {
		return out
	}
	for j := range out {
		if checked && j <= i {
			out[j] = true
		}
		if !checked && j >= i {
			out[j] = false
		}
	}
	return out
}

// WellKnownRow expands a stored value into its checkbox row.
func WellKnownRow(v int) []bool {
	v = clamp(v, 0, WellKnownBoxes)
	row := make([]bool, WellKnownBoxes)
	for i := 0; i < v; i++ {
		row[i] = true
	}
	return row
}
