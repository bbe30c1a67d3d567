package store

import (
	"github.com/google/btree"
)

// IntervalSet is a set of int64s kept as merged intervals in a B-tree, so
// Add, Remove and NextMissing all run in O(log n). NextMissing(x) returns the
// smallest value >= x that is not in the set, which is what the amount
// allocator needs to find the first free slot.

type span struct {
	lo, hi int64
}

func (a span) Less(b btree.Item) bool {
	return a.lo < b.(span).lo
}

type IntervalSet struct {
	tree *btree.BTree
}

func NewIntervalSet() *IntervalSet {
	return &IntervalSet{tree: btree.New(2)}
}

// floorSpan returns the span with the largest lo <= x, if any.
func (s *IntervalSet) floorSpan(x int64) (span, bool) {
	var out span
	found := false
	s.tree.DescendLessOrEqual(span{x, x}, func(it btree.Item) bool {
		out = it.(span)
		found = true
		return false
	})
	return out, found
}

// ceilSpan returns the span with the smallest lo >= x, if any.
func (s *IntervalSet) ceilSpan(x int64) (span, bool) {
	var out span
	found := false
	s.tree.AscendGreaterOrEqual(span{x, x}, func(it btree.Item) bool {
		out = it.(span)
		found = true
		return false
	})
	return out, found
}

// Add inserts x, merging with adjacent spans.
func (s *IntervalSet) Add(x int64) {
	merged := span{x, x}

	if prev, ok := s.floorSpan(x); ok {
		if x <= prev.hi {
			return // already present
		}
		if prev.hi+1 == x {
			s.tree.Delete(prev)
			merged.lo = prev.lo
		}
	}
	if next, ok := s.ceilSpan(x + 1); ok && next.lo == x+1 {
		s.tree.Delete(next)
		merged.hi = next.hi
	}
	s.tree.ReplaceOrInsert(merged)
}

// Remove deletes x, splitting its span if needed.
func (s *IntervalSet) Remove(x int64) {
	cur, ok := s.floorSpan(x)
	if !ok || x > cur.hi {
		return // not present
	}
	s.tree.Delete(cur)
	if cur.lo < x {
		s.tree.ReplaceOrInsert(span{cur.lo, x - 1})
	}
	if x < cur.hi {
		s.tree.ReplaceOrInsert(span{x + 1, cur.hi})
	}
}

// Contains reports whether x is in the set.
func (s *IntervalSet) Contains(x int64) bool {
	cur, ok := s.floorSpan(x)
	return ok && x <= cur.hi
}

// NextMissing returns the smallest value >= x not in the set.
func (s *IntervalSet) NextMissing(x int64) int64 {
	if cur, ok := s.floorSpan(x); ok && x <= cur.hi {
		return cur.hi + 1
	}
	return x
}
