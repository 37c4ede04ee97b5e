package transport

// Stats accumulates the per-session packet counters spec.md §3 and §8
// reference (slow_start_count + cong_avoid_count == total segments sent,
// retransmit_count separately).
type Stats struct {
	SlowStartCount int
	CongAvoidCount int
	RetransmitCount int
}

// SegmentsSent returns the total number of distinct window-fill sends
// (excludes retransmits, which are counted separately).
func (s Stats) SegmentsSent() int {
	return s.SlowStartCount + s.CongAvoidCount
}
