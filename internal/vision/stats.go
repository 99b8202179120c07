package vision

import (
	"fmt"
	"time"
)

// LatencyStats keeps a rolling {high, low, avg, count} of elapsed
// microseconds for one tracker phase, sampled via Begin/End pairs. The
// counters are advisory: they are written by the tracker's own worker
// and read only after it leaves Running.
type LatencyStats struct {
	High  int64 // microseconds
	Low   int64
	Avg   int64
	Count int64

	begin time.Time
}

// Begin marks the start of one sample.
func (s *LatencyStats) Begin() {
	s.begin = time.Now()
}

// End closes the sample opened by Begin and folds it into the rolling
// statistics.
func (s *LatencyStats) End() {
	us := time.Since(s.begin).Microseconds()
	if s.Count == 0 || us > s.High {
		s.High = us
	}
	if s.Count == 0 || us < s.Low {
		s.Low = us
	}
	s.Avg = (s.Avg*s.Count + us) / (s.Count + 1)
	s.Count++
}

func (s *LatencyStats) String() string {
	return fmt.Sprintf("high:%d avg:%d low:%d cnt:%d", s.High, s.Avg, s.Low, s.Count)
}
