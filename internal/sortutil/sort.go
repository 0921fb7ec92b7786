// Package sortutil provides comparator-based ordering primitives for slices:
// an in-place quicksort, binary searches that follow the complement-of-insertion
// convention, and a windowed partial sort.
//
// Every function takes a caller-supplied total order. The package never defines
// comparison semantics for domain values itself.
//
// # Search results
//
// Searches return the index of a matching element when one is found. When no
// element matches they return the bitwise complement of the insertion point, so
// the insertion index is recovered with ^result:
//
//	i := sortutil.BinarySearch(s, x, cmp)
//	if i < 0 {
//	    s = slices.Insert(s, ^i, x)
//	}
//
// # Invariant violations
//
// Range arguments outside the slice and a duplicate-aware search that cannot
// find its item are programming errors. They panic with an error wrapping
// [ErrRangeOutOfBounds] or [ErrDuplicateNotFound].
package sortutil

import (
	"errors"
	"fmt"
)

// Compare returns a negative number when a orders before b, zero when they are
// equal and a positive number when a orders after b.
type Compare[T any] func(a, b T) int

var (
	// ErrRangeOutOfBounds reports an offset/count pair outside the slice.
	ErrRangeOutOfBounds = errors.New("sortutil: range out of bounds")

	// ErrDuplicateNotFound reports that an item known to be a member of the
	// slice was not found among the elements comparing equal to it.
	ErrDuplicateNotFound = errors.New("sortutil: item not found among duplicates")
)

// Sort orders s in place. The sort is not stable.
func Sort[T any](s []T, cmp Compare[T]) {
	SortRange(s, cmp, 0, len(s))
}

// SortRange orders s[offset:offset+count] in place and leaves the rest of s
// untouched. It is a recursive Hoare quicksort with a middle-element pivot, so
// it is deterministic but O(n²) on adversarial input.
func SortRange[T any](s []T, cmp Compare[T], offset, count int) {
	checkRange(len(s), offset, count)
	if count > 1 {
		quickSort(s, offset, offset+count-1, cmp)
	}
}

// quickSort sorts s[lo..hi] inclusive. It recurses into the smaller partition
// and loops on the larger one to bound stack depth.
func quickSort[T any](s []T, lo, hi int, cmp Compare[T]) {
	for lo < hi {
		i, j := partition(s, lo, hi, cmp)
		if j-lo < hi-i {
			quickSort(s, lo, j, cmp)
			lo = i
		} else {
			quickSort(s, i, hi, cmp)
			hi = j
		}
	}
}

// partition splits s[lo..hi] around its middle element. On return
// s[lo..j] <= pivot, s[i..hi] >= pivot and everything strictly between j and i
// equals the pivot.
func partition[T any](s []T, lo, hi int, cmp Compare[T]) (i, j int) {
	pivot := s[lo+(hi-lo)/2]
	i, j = lo, hi
	for i <= j {
		for cmp(s[i], pivot) < 0 {
			i++
		}
		for cmp(s[j], pivot) > 0 {
			j--
		}
		if i <= j {
			s[i], s[j] = s[j], s[i]
			i++
			j--
		}
	}
	return i, j
}

func checkRange(length, offset, count int) {
	if offset < 0 || count < 0 || offset+count > length {
		panic(fmt.Errorf("%w: offset %d count %d length %d", ErrRangeOutOfBounds, offset, count, length))
	}
}
