package stabilization

import (
	"cmp"
	"slices"
)

// compareObjects orders objects by identifier when both have one. Otherwise objects on about the same
// row (vertical distance below half widths sum) go left to right, the rest top to bottom.
func compareObjects(a, b ObjectData) int {
	if a.ID != 0 && b.ID != 0 {
		return cmp.Compare(a.ID, b.ID)
	}
	posA, posB := a.Position(), b.Position()
	rowSize := int64(a.Size().Data0)/2 + int64(b.Size().Data0)/2
	if absInt64(int64(posA.Data1)-int64(posB.Data1)) < rowSize {
		return cmp.Compare(posA.Data0, posB.Data0)
	}
	if c := cmp.Compare(posA.Data1, posB.Data1); c != 0 {
		return c
	}
	return cmp.Compare(posA.Data0, posB.Data0)
}

// sortObjects sorts objects in place keeping order of equal ones
func sortObjects(objects []ObjectData) {
	if len(objects) < 2 {
		return
	}
	slices.SortStableFunc(objects, compareObjects)
}
