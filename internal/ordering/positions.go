// Package ordering keeps sibling collections (columns of a board, tasks of a column)
// densely numbered from zero.
package ordering

import (
	"cmp"
	"slices"
)

type Positioned interface {
	GetPosition() int
	SetPosition(int)
}

// Append returns the position of a new item added after count siblings.
func Append(count int) int {
	return count
}

// Sort orders items by position, keeping the current order for ties.
func Sort[T Positioned](items []T) {
	slices.SortStableFunc(items, func(a, b T) int {
		return cmp.Compare(a.GetPosition(), b.GetPosition())
	})
}

// Clamp bounds a destination index to the last slot of a collection of n items.
func Clamp(pos, n int) int {
	if n <= 0 || pos < 0 {
		return 0
	}
	return min(pos, n-1)
}

// Repack sorts items and renumbers them 0..n-1. It returns the items whose position
// changed, which are the ones that need to be written back.
func Repack[T Positioned](items []T) []T {
	Sort(items)
	return renumber(items)
}

// Move relocates the item at index from to index to. to is clamped to the collection.
func Move[T Positioned](items []T, from, to int) (reordered, changed []T) {
	if from < 0 || from >= len(items) {
		return items, nil
	}
	to = Clamp(to, len(items))

	item := items[from]
	rest := slices.Delete(slices.Clone(items), from, from+1)
	reordered = slices.Insert(rest, to, item)
	return reordered, renumber(reordered)
}

// Insert places item at index at, shifting the following items down. at may equal
// len(items) to append.
func Insert[T Positioned](items []T, item T, at int) (reordered, changed []T) {
	at = max(0, min(at, len(items)))
	reordered = slices.Insert(slices.Clone(items), at, item)
	return reordered, renumber(reordered)
}

// Remove drops the item at index idx and closes the gap.
func Remove[T Positioned](items []T, idx int) (rest, changed []T) {
	if idx < 0 || idx >= len(items) {
		return items, nil
	}
	rest = slices.Delete(slices.Clone(items), idx, idx+1)
	return rest, renumber(rest)
}

func renumber[T Positioned](items []T) []T {
	var changed []T
	for i, it := range items {
		if it.GetPosition() != i {
			it.SetPosition(i)
			changed = append(changed, it)
		}
	}
	return changed
}
