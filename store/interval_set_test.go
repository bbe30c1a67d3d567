package store

import "testing"

func TestIntervalSetNextMissing(t *testing.T) {
	s := NewIntervalSet()

	s.Add(1)
	s.Add(2)
	s.Add(3)
	s.Add(5)
	s.Add(6)
	s.Add(9)

	if got := s.NextMissing(1); got != 4 {
		t.Errorf("expected next missing 4, got %d", got)
	}
	if got := s.NextMissing(4); got != 4 {
		t.Errorf("expected next missing 4, got %d", got)
	}
	if got := s.NextMissing(5); got != 7 {
		t.Errorf("expected next missing 7, got %d", got)
	}
	if got := s.NextMissing(9); got != 10 {
		t.Errorf("expected next missing 10, got %d", got)
	}
	if got := s.NextMissing(11); got != 11 {
		t.Errorf("expected next missing 11, got %d", got)
	}
}

func TestIntervalSetAddMerges(t *testing.T) {
	s := NewIntervalSet()

	s.Add(10)
	s.Add(12)
	s.Add(11) // bridges the two spans

	if got := s.NextMissing(10); got != 13 {
		t.Errorf("expected next missing 13, got %d", got)
	}

	s.Add(11) // re-adding is a no-op
	if got := s.NextMissing(10); got != 13 {
		t.Errorf("expected next missing 13 after duplicate add, got %d", got)
	}
}

func TestIntervalSetRemoveSplits(t *testing.T) {
	s := NewIntervalSet()

	for i := int64(20); i <= 25; i++ {
		s.Add(i)
	}

	s.Remove(22)
	if got := s.NextMissing(20); got != 22 {
		t.Errorf("expected next missing 22, got %d", got)
	}
	if got := s.NextMissing(23); got != 26 {
		t.Errorf("expected next missing 26, got %d", got)
	}

	s.Remove(22) // removing a missing value is a no-op
	if s.Contains(22) {
		t.Error("22 should not be in the set")
	}
	if !s.Contains(23) || !s.Contains(25) {
		t.Error("23 and 25 should still be in the set")
	}

	s.Add(22)
	if got := s.NextMissing(20); got != 26 {
		t.Errorf("expected next missing 26, got %d", got)
	}
}
