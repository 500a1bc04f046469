package core

// Counted reports whether the entry contributes to its tracker's statistics.
// An in-progress timer session (start == end, or no end yet) is not counted;
// counter/amount entries count only once they carry a value; occurrence and
// custom entries always count.
func (e Entry) Counted(t TrackerType) bool {
	switch t {
	case TypeTimer:
		return e.Completed()
	case TypeCounter, TypeAmount:
		return e.Value != nil
	default:
		return true
	}
}

// AddEntry applies the create-time accumulation rules for one new entry.
// TotalCustom is never derived from entries and is left untouched.
func (s *Statistics) AddEntry(t TrackerType, e Entry) {
	if !e.Counted(t) {
		return
	}
	s.TotalEntries++
	switch t {
	case TypeTimer:
		s.TotalTime += e.DurationSeconds()
	case TypeCounter, TypeAmount:
		s.TotalValue += *e.Value
	}
}

// RemoveEntry reverses AddEntry for a deleted entry. Every total is floored
// at zero so rounding or race artifacts can never drive the rollup negative;
// RecomputeStatistics remains the ground truth if a clamp ever fires.
func (s *Statistics) RemoveEntry(t TrackerType, e Entry) {
	if !e.Counted(t) {
		return
	}
	s.TotalEntries--
	if s.TotalEntries < 0 {
		s.TotalEntries = 0
	}
	switch t {
	case TypeTimer:
		s.TotalTime -= e.DurationSeconds()
		if s.TotalTime < 0 {
			s.TotalTime = 0
		}
	case TypeCounter, TypeAmount:
		s.TotalValue -= *e.Value
		if s.TotalValue < 0 {
			s.TotalValue = 0
		}
	}
}
