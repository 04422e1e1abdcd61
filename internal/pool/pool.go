// Package pool provides bucketed sync.Pool instances for reducing allocations
// in hot paths. Slices are organized by length class to minimize waste.
package pool

import "sync"

// Length classes for bucketed pools. A 1080p frame has 8160 macroblocks.
const (
	Len64  = 64
	Len256 = 256
	Len1K  = 1024
	Len4K  = 4096
	Len16K = 16384
	Len64K = 65536
)

const numBuckets = 6

var lengths = [numBuckets]int{Len64, Len256, Len1K, Len4K, Len16K, Len64K}

// bucketIndex returns the pool index for a given length, or -1 when the
// length is too large to pool.
func bucketIndex(n int) int {
	switch {
	case n <= Len64:
		return 0
	case n <= Len256:
		return 1
	case n <= Len1K:
		return 2
	case n <= Len4K:
		return 3
	case n <= Len16K:
		return 4
	case n <= Len64K:
		return 5
	default:
		return -1
	}
}

// Slab hands out slices of T in length classes. The zero value is ready
// to use.
type Slab[T any] struct {
	pools [numBuckets]sync.Pool
}

// Get returns a slice of length n. Its contents are unspecified; callers
// overwrite every element they read. The caller should call Put when done.
func (s *Slab[T]) Get(n int) []T {
	idx := bucketIndex(n)
	if idx < 0 {
		return make([]T, n)
	}
	if v := s.pools[idx].Get(); v != nil {
		bp := v.(*[]T)
		if cap(*bp) >= n {
			return (*bp)[:n]
		}
	}
	return make([]T, n, lengths[idx])
}

// Put returns a slice to the pool. Slices shorter than the smallest class
// or longer than the largest are dropped.
func (s *Slab[T]) Put(b []T) {
	c := cap(b)
	if c < Len64 {
		return
	}
	idx := bucketIndex(c)
	if idx < 0 {
		return
	}
	// A slice only serves requests up to its capacity; file it under the
	// largest class it fully covers.
	if lengths[idx] > c {
		idx--
	}
	b = b[:c]
	s.pools[idx].Put(&b)
}
