package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/ionmd/internal/dynamo"
	"github.com/san-kum/ionmd/internal/logging"
	"github.com/san-kum/ionmd/internal/physics"
	"github.com/san-kum/ionmd/internal/trajectory"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
)

// ionChunk is the smallest ion range worth handing to its own goroutine.
const ionChunk = 16

// Engine owns a trap, a parameter set and an ensemble of ions, and
// advances them through a run. Configuration may be replaced between
// runs but not during one.
type Engine struct {
	mu     sync.Mutex
	status dynamo.Status

	params dynamo.Params
	trap   physics.Trap
	ions   []*physics.Ion

	logger     *log.Logger
	sink       trajectory.Sink
	observers  []Observer
	evaluator  physics.CoulombEvaluator
	customEval bool
	rng        *rand.Rand
}

type Option func(*Engine)

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSink replaces the default file sink. The engine closes the sink at
// the end of every run.
func WithSink(s trajectory.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithEvaluator fixes the Coulomb evaluator instead of deriving it from
// Params.CoulombMethod.
func WithEvaluator(ev physics.CoulombEvaluator) Option {
	return func(e *Engine) {
		e.evaluator = ev
		e.customEval = ev != nil
	}
}

// WithRand sets the master random stream that seeds every ion.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

func New(params dynamo.Params, trap physics.Trap, ions []*physics.Ion, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := trap.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{params: params, trap: trap}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Discard()
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(params.Seed))
	}
	if !e.customEval {
		ev, err := physics.NewCoulombEvaluator(params)
		if err != nil {
			return nil, err
		}
		e.evaluator = ev
	}

	e.bind(ions)
	return e, nil
}

func (e *Engine) Status() dynamo.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) Params() dynamo.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

func (e *Engine) Trap() physics.Trap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trap
}

// Ions returns the engine's ensemble. The ions are live; read them only
// while the engine is not running.
func (e *Engine) Ions() []*physics.Ion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*physics.Ion(nil), e.ions...)
}

// mutable must be called with e.mu held.
func (e *Engine) mutable(what string) error {
	if e.status.CanMutate() {
		return nil
	}
	err := fmt.Errorf("set %s: %w", what, dynamo.ErrRunning)
	e.logger.Error("mutation rejected", "err", err)
	return err
}

func (e *Engine) SetParams(p dynamo.Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutable("params"); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	if !e.customEval {
		ev, err := physics.NewCoulombEvaluator(p)
		if err != nil {
			return err
		}
		e.evaluator = ev
	}
	e.params = p
	return nil
}

func (e *Engine) SetTrap(t physics.Trap) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutable("trap"); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	e.trap = t
	return nil
}

// SetIons replaces the ensemble. Each ion is rebound to the engine's trap
// and parameters and given its own random stream.
func (e *Engine) SetIons(ions []*physics.Ion) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutable("ions"); err != nil {
		return err
	}
	e.bind(ions)
	return nil
}

func (e *Engine) bind(ions []*physics.Ion) {
	e.ions = append([]*physics.Ion(nil), ions...)
	for i, ion := range e.ions {
		ion.Bind(&e.params, &e.trap, i)
		ion.SetRand(rand.New(rand.NewSource(e.rng.Uint64())))
		e.logger.Debug("ion bound", "index", i, "mass", ion.Mass, "charge", ion.Charge, "x", ion.Position)
	}
}

// MakeIon builds an ion against the engine's trap and parameters. It is
// not part of the ensemble until passed to SetIons.
func (e *Engine) MakeIon(mass, charge float64, x0 r3.Vec, lasers ...physics.Laser) *physics.Ion {
	e.mu.Lock()
	defer e.mu.Unlock()

	ion := physics.NewIon(&e.params, &e.trap, mass, charge, x0,
		physics.WithLasers(lasers...),
		physics.WithRand(rand.New(rand.NewSource(e.rng.Uint64()))),
	)
	ion.Bind(&e.params, &e.trap, -1)
	e.logger.Debug("ion created", "mass", mass, "charge", charge, "x", x0, "lasers", len(lasers))
	return ion
}

// Run advances the ensemble from t = 0 to t_max. The returned result is
// non-nil whenever the run started, including aborted and failed runs.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.status == dynamo.Running {
		e.mu.Unlock()
		err := fmt.Errorf("run: %w", dynamo.ErrRunning)
		e.logger.Error("run rejected", "err", err)
		return nil, err
	}
	e.status = dynamo.Running
	e.mu.Unlock()

	res, err := e.run(ctx)

	final := dynamo.Finished
	switch {
	case err == nil:
	case errors.Is(err, dynamo.ErrCanceled):
		final = dynamo.Aborted
	default:
		final = dynamo.Failed
	}

	e.mu.Lock()
	e.status = final
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("run ended", "status", final, "err", err)
	} else {
		e.logger.Info("run finished", "steps", res.Steps, "frames", res.Frames, "elapsed", res.Elapsed)
	}
	return res, err
}

// run executes the loop. Mutations are rejected while it runs, so the
// configuration fields are read without the lock.
func (e *Engine) run(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	p := e.params
	ions := e.ions
	n := len(ions)
	steps := p.Steps()

	res = &Result{}
	defer func() { res.Elapsed = time.Since(start) }()

	sink, err := e.openSink(n)
	if err != nil {
		return res, err
	}

	buf := trajectory.NewBuffer(p.BufferSize)
	pool := NewFramePool(n)

	flush := func() error {
		if buf.Len() == 0 {
			return nil
		}
		frames := buf.Frames()
		var werr error
		if sink != nil {
			if werr = sink.WriteFrames(frames); werr == nil {
				res.Frames += len(frames)
				e.logger.Debug("flush", "frames", len(frames))
			}
		}
		for _, f := range frames {
			pool.Put(f)
		}
		buf.Reset()
		if werr != nil {
			return fmt.Errorf("persist frames: %w", werr)
		}
		return nil
	}

	// finish flushes what is buffered and closes the sink; the first error
	// wins.
	finish := func(runErr error) error {
		if ferr := flush(); runErr == nil {
			runErr = ferr
		}
		if sink != nil {
			if cerr := sink.Close(); runErr == nil && cerr != nil {
				runErr = fmt.Errorf("close sink: %w", cerr)
			}
		}
		res.FinalPositions = currentPositions(ions)
		return runErr
	}

	e.logger.Info("run start", "ions", n, "steps", steps, "coulomb", p.Coulomb, "method", e.evaluator.Name())

	decile := steps / 10
	if decile < 1 {
		decile = 1
	}

	var table physics.CoulombTable
	for k := 0; k < steps; k++ {
		t := float64(k) * p.Dt

		if cerr := ctx.Err(); cerr != nil {
			wrapped := &dynamo.SimulationError{Step: k, Time: t, Wrapped: fmt.Errorf("%w: %w", dynamo.ErrCanceled, cerr)}
			return res, finish(wrapped)
		}

		if p.Coulomb && n > 1 {
			table, err = e.evaluator.Forces(ions)
			if err != nil {
				return res, finish(&dynamo.SimulationError{Step: k, Time: t, Wrapped: err})
			}
		}

		if k%decile == 0 {
			e.progress(p, Progress{Step: k, Steps: steps, Percent: 100 * k / steps, Time: t})
		}

		frame := pool.Get()
		dynamo.ParallelFor(p.Workers, n, ionChunk, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				frame[i] = ions[i].Update(t, table)
			}
		})
		res.Steps++

		if p.ValidateState && !finite(frame) {
			buf.Append(frame)
			return res, finish(&dynamo.SimulationError{Step: k, Time: t, Wrapped: dynamo.ErrUnstable})
		}

		for _, o := range e.observers {
			o.OnFrame(k, t+p.Dt, frame)
		}

		if buf.Append(frame) {
			if err := flush(); err != nil {
				return res, finish(&dynamo.SimulationError{Step: k, Time: t, Wrapped: err})
			}
		}
	}

	if err := finish(nil); err != nil {
		return res, err
	}
	e.progress(p, Progress{Step: steps, Steps: steps, Percent: 100, Time: float64(steps) * p.Dt, Done: true})
	return res, nil
}

func (e *Engine) progress(p dynamo.Params, pr Progress) {
	if p.Verbosity >= 1 && !pr.Done {
		e.logger.Info("progress", "percent", pr.Percent, "t", pr.Time)
	}
	for _, o := range e.observers {
		o.OnProgress(pr)
	}
}

func (e *Engine) openSink(n int) (trajectory.Sink, error) {
	if e.sink != nil {
		return e.sink, nil
	}
	if e.params.Filename == "" {
		return nil, nil
	}
	h := trajectory.NewHeader(n, e.params.Dt, e.params.TMax)
	fw, err := trajectory.Create(e.params.Filename, h)
	if err != nil {
		return nil, err
	}
	return fw, nil
}

func currentPositions(ions []*physics.Ion) trajectory.Frame {
	f := make(trajectory.Frame, len(ions))
	for i, ion := range ions {
		f[i] = ion.Position
	}
	return f
}

func finite(f trajectory.Frame) bool {
	for _, x := range f {
		for _, c := range [3]float64{x.X, x.Y, x.Z} {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return false
			}
		}
	}
	return true
}
