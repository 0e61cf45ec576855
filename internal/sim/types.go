package sim

import (
	"time"

	"github.com/san-kum/ionmd/internal/trajectory"
)

// Progress is reported at every decile of a run and once at the end.
type Progress struct {
	Step    int
	Steps   int
	Percent int
	Time    float64
	Done    bool
}

// Observer is notified from the run goroutine. The frame passed to
// OnFrame is only valid for the duration of the call.
type Observer interface {
	OnProgress(p Progress)
	OnFrame(step int, t float64, frame trajectory.Frame)
}

type Result struct {
	Steps int
	// Frames is the number of frames handed to the sink.
	Frames         int
	Elapsed        time.Duration
	FinalPositions trajectory.Frame
}
