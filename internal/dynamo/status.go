package dynamo

// Status is the run state of an engine.
//
// An engine starts Idle, is Running for the duration of the stepping
// loop and ends Finished on normal completion. Aborted and Failed mark
// runs stopped by cancellation or by an I/O or numerical error.
type Status int

const (
	Idle Status = iota
	Running
	Finished
	Aborted
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// CanMutate reports whether params, trap or ions may be replaced.
func (s Status) CanMutate() bool { return s != Running }

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	return s == Finished || s == Aborted || s == Failed
}
