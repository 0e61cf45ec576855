package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/ionmd/internal/sim"
	"github.com/san-kum/ionmd/internal/trajectory"
)

type ProgressMsg sim.Progress

// FrameMsg carries a copy of the ensemble positions.
type FrameMsg struct {
	Step  int
	Time  float64
	Frame trajectory.Frame
}

type DoneMsg struct {
	Result *sim.Result
	Err    error
}

// Observer forwards engine callbacks to a bubbletea program. Frames are
// throttled to frameRate per second; progress is always forwarded.
type Observer struct {
	send      func(tea.Msg)
	frameRate int
	lastFrame time.Time
}

// NewObserver takes the program's Send method, or any function that
// delivers messages to the model.
func NewObserver(send func(tea.Msg), frameRate int) *Observer {
	if frameRate < 1 {
		frameRate = 30
	}
	return &Observer{send: send, frameRate: frameRate}
}

func (o *Observer) OnProgress(p sim.Progress) {
	o.send(ProgressMsg(p))
}

func (o *Observer) OnFrame(step int, t float64, f trajectory.Frame) {
	if time.Since(o.lastFrame) < time.Second/time.Duration(o.frameRate) {
		return
	}
	o.lastFrame = time.Now()
	o.send(FrameMsg{Step: step, Time: t, Frame: f.Clone()})
}
