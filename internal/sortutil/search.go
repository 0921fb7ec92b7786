package sortutil

import "fmt"

// BinarySearch searches s, which must already be ordered by cmp, for target.
// It returns the index of an element comparing equal to target, or the
// complement of the insertion point when there is none. An empty slice yields ^0.
func BinarySearch[T any](s []T, target T, cmp Compare[T]) int {
	return BinarySearchRange(s, target, cmp, 0, len(s))
}

// BinarySearchRange is BinarySearch restricted to s[offset:offset+count].
// Returned indices are indices into s.
func BinarySearchRange[T any](s []T, target T, cmp Compare[T], offset, count int) int {
	checkRange(len(s), offset, count)

	lo, hi := offset, offset+count-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		c := cmp(s[mid], target)
		switch {
		case c == 0:
			return mid
		case c < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return ^lo
}

// BinarySearchWithDuplicates returns the index of the element of s that is
// identical (==) to item, not merely equal under cmp. Several elements may
// compare equal to item; the run around the binary search hit is scanned
// linearly, first below and then above.
//
// item must be a member of s. Otherwise the function panics with an error
// wrapping ErrDuplicateNotFound. Long runs of equal elements make this O(n).
func BinarySearchWithDuplicates[T comparable](s []T, item T, cmp Compare[T]) int {
	idx := BinarySearch(s, item, cmp)
	if idx < 0 {
		panic(fmt.Errorf("%w: no element compares equal", ErrDuplicateNotFound))
	}
	if s[idx] == item {
		return idx
	}

	for i := idx - 1; i >= 0 && cmp(s[i], item) == 0; i-- {
		if s[i] == item {
			return i
		}
	}
	for i := idx + 1; i < len(s) && cmp(s[i], item) == 0; i++ {
		if s[i] == item {
			return i
		}
	}

	panic(fmt.Errorf("%w: searched around index %d", ErrDuplicateNotFound, idx))
}

// BinarySearchWithSkip searches s as BinarySearch does but never compares
// against s[skipIndex], an element whose ordering key is stale. Probes that
// land on skipIndex move to the adjacent index inside the search range. When
// the skipped slot is the only one left, its complement is returned: the item
// belongs where the stale element currently sits.
//
// Returned indices count the stale element. A caller that removes it before
// inserting at an index greater than skipIndex must subtract one.
func BinarySearchWithSkip[T any](s []T, item T, skipIndex int, cmp Compare[T]) int {
	return BinarySearchWithSkipRange(s, item, skipIndex, cmp, 0, len(s))
}

// BinarySearchWithSkipRange is BinarySearchWithSkip restricted to
// s[offset:offset+count].
func BinarySearchWithSkipRange[T any](s []T, item T, skipIndex int, cmp Compare[T], offset, count int) int {
	checkRange(len(s), offset, count)

	lo, hi := offset, offset+count-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if mid == skipIndex {
			switch {
			case lo == hi:
				return ^mid
			case mid > lo:
				mid--
			default:
				mid++
			}
		}

		c := cmp(s[mid], item)
		switch {
		case c == 0:
			return mid
		case c < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return ^lo
}
