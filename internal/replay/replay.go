// Package replay feeds recorded detection frames into the pipeline in
// place of the live capture and inference stages. Each line of a replay
// log is one frame: a JSON array of labelled boxes. The source pushes
// frames to the tracker through the same AddMessage contract the
// inference stage would use, at a configurable frame rate.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/banshee-data/sightline/internal/monitoring"
	"github.com/banshee-data/sightline/internal/stage"
	"github.com/banshee-data/sightline/internal/vision"
)

// frameBox is the on-disk shape of one detection.
type frameBox struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

// LoadFrames parses a JSON-lines replay log. Blank lines are skipped;
// an empty array is a legal frame with no detections.
func LoadFrames(path string) ([][]vision.Box, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay log: %w", err)
	}
	defer f.Close()

	var frames [][]vision.Box
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var parsed []frameBox
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("replay log line %d: %w", line, err)
		}
		frame := make([]vision.Box, 0, len(parsed))
		for _, b := range parsed {
			frame = append(frame, vision.Box{
				Category: vision.CategoryFromLabel(b.Label),
				X:        b.X,
				Y:        b.Y,
				W:        b.W,
				H:        b.H,
			})
		}
		frames = append(frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read replay log: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("replay log %s holds no frames", path)
	}
	return frames, nil
}

// Source is the pipeline stage replaying loaded frames into a sink.
type Source struct {
	frames   [][]vision.Box
	sink     vision.BoxListener
	interval time.Duration
	loop     bool

	idx     int
	next    time.Time
	done    bool
	sent    int64
	dropped int64

	now func() time.Time
}

// NewSource replays frames into sink at fps frames per second. With
// loop set the source restarts from the first frame after the last.
func NewSource(frames [][]vision.Box, fps float64, sink vision.BoxListener, loop bool) (*Source, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("replay fps must be > 0, got %v", fps)
	}
	return &Source{
		frames:   frames,
		sink:     sink,
		interval: time.Duration(float64(time.Second) / fps),
		loop:     loop,
		now:      time.Now,
	}, nil
}

// Done reports whether a non-looping source has replayed every frame.
func (s *Source) Done() bool {
	return s.done
}

// WaitingToRun arms the frame clock.
func (s *Source) WaitingToRun() bool {
	s.next = s.now()
	return true
}

// Running pushes the next frame once its due time arrives. A busy
// tracker inbox costs the frame, matching what a live inference stage
// would do.
func (s *Source) Running() bool {
	if s.done || s.now().Before(s.next) {
		return true
	}

	if s.sink.AddMessage(s.frames[s.idx]) {
		s.sent++
	} else {
		s.dropped++
	}

	s.idx++
	if s.idx >= len(s.frames) {
		if s.loop {
			s.idx = 0
		} else {
			s.done = true
		}
	}
	s.next = s.next.Add(s.interval)
	return true
}

// Paused idles.
func (s *Source) Paused() bool { return true }

// WaitingToHalt reports delivery counts and rewinds.
func (s *Source) WaitingToHalt() bool {
	if s.sent > 0 || s.dropped > 0 {
		monitoring.Logf("replay: %d frames delivered, %d dropped on busy inbox", s.sent, s.dropped)
		s.sent = 0
		s.dropped = 0
	}
	s.idx = 0
	s.done = false
	return true
}

var _ stage.Callbacks = (*Source)(nil)
