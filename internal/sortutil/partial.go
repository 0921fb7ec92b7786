package sortutil

import "fmt"

// PartialSort rearranges s[offset:offset+count] so that the window
// s[sortOffset:sortOffset+sortCount] holds exactly the elements that a full
// sort of the domain would place there, in sorted order. Elements before the
// window are not greater than any window element and elements after it are not
// less; neither side is sorted.
//
// Two selection passes fix the window boundaries, then only the window is
// sorted. This is how a view orders the visible page of a large record set.
func PartialSort[T any](s []T, offset, count, sortOffset, sortCount int, cmp Compare[T]) {
	checkRange(len(s), offset, count)
	end := offset + count
	if sortOffset < offset || sortCount < 0 || sortOffset+sortCount > end {
		panic(fmt.Errorf("%w: window %d+%d outside domain %d+%d",
			ErrRangeOutOfBounds, sortOffset, sortCount, offset, count))
	}
	if sortCount == 0 {
		return
	}

	// Everything before the window must not be greater than it.
	if sortOffset > offset {
		selectNth(s, offset, end-1, sortOffset, cmp)
	}

	// Everything after the window must not be less than it.
	windowEnd := sortOffset + sortCount
	if windowEnd < end {
		selectNth(s, sortOffset, end-1, windowEnd, cmp)
	}

	SortRange(s, cmp, sortOffset, sortCount)
}

// selectNth moves the element of rank k (within s[lo..hi]) to index k with
// nothing greater before it and nothing less after it.
func selectNth[T any](s []T, lo, hi, k int, cmp Compare[T]) {
	for lo < hi {
		i, j := partition(s, lo, hi, cmp)
		switch {
		case k <= j:
			hi = j
		case k >= i:
			lo = i
		default:
			return
		}
	}
}
