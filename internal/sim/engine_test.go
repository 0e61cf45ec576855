package sim_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ionmd/internal/dynamo"
	"github.com/san-kum/ionmd/internal/logging"
	"github.com/san-kum/ionmd/internal/physics"
	"github.com/san-kum/ionmd/internal/sim"
	"github.com/san-kum/ionmd/internal/trajectory"
)

type recorder struct {
	progress []sim.Progress
	frames   []trajectory.Frame
	times    []float64
	onFrame  func(step int)
}

func (r *recorder) OnProgress(p sim.Progress) { r.progress = append(r.progress, p) }

func (r *recorder) OnFrame(step int, t float64, f trajectory.Frame) {
	r.frames = append(r.frames, f.Clone())
	r.times = append(r.times, t)
	if r.onFrame != nil {
		r.onFrame(step)
	}
}

func quietParams() dynamo.Params {
	p := dynamo.DefaultParams()
	p.Coulomb = false
	p.Filename = ""
	p.Verbosity = 0
	return p
}

func twoIons() []*physics.Ion {
	return []*physics.Ion{
		physics.NewIon(nil, nil, 40, 1, r3.Vec{Z: -20e-6}),
		physics.NewIon(nil, nil, 40, 1, r3.Vec{Z: 20e-6}),
	}
}

var _ = Describe("Engine", func() {
	var (
		params dynamo.Params
		trap   physics.Trap
		rec    *recorder
		sink   *trajectory.MemorySink
	)

	BeforeEach(func() {
		params = quietParams()
		trap = physics.DefaultTrap()
		rec = &recorder{}
		sink = &trajectory.MemorySink{}
	})

	newEngine := func(ions []*physics.Ion, opts ...sim.Option) *sim.Engine {
		opts = append([]sim.Option{sim.WithObserver(rec), sim.WithSink(sink)}, opts...)
		eng, err := sim.New(params, trap, ions, opts...)
		Expect(err).NotTo(HaveOccurred())
		return eng
	}

	Describe("construction", func() {
		It("starts idle", func() {
			eng := newEngine(twoIons())
			Expect(eng.Status()).To(Equal(dynamo.Idle))
			Expect(eng.Params()).To(Equal(params))
			Expect(eng.Trap()).To(Equal(trap))
			Expect(eng.Ions()).To(HaveLen(2))
		})

		It("rejects invalid parameters", func() {
			params.Dt = 0
			_, err := sim.New(params, trap, twoIons())
			Expect(errors.Is(err, dynamo.ErrInvalidParams)).To(BeTrue())
		})

		It("rejects an invalid trap", func() {
			trap.R0 = 0
			_, err := sim.New(params, trap, twoIons())
			Expect(errors.Is(err, physics.ErrInvalidTrap)).To(BeTrue())
		})

		It("indexes ions in ensemble order", func() {
			eng := newEngine(twoIons())
			for i, ion := range eng.Ions() {
				Expect(ion.Index()).To(Equal(i))
			}
		})
	})

	Describe("the two-ion scenario", func() {
		var (
			eng *sim.Engine
			res *sim.Result
		)

		BeforeEach(func() {
			eng = newEngine(twoIons())
			var err error
			res, err = eng.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
		})

		It("finishes after exactly t_max/dt steps", func() {
			Expect(eng.Status()).To(Equal(dynamo.Finished))
			Expect(res.Steps).To(Equal(1000))
			Expect(rec.frames).To(HaveLen(1000))
			Expect(res.Frames).To(Equal(1000))
			Expect(sink.Frames).To(HaveLen(1000))
		})

		It("keeps the ions mirrored about the origin", func() {
			for _, f := range rec.frames {
				Expect(f[0].Z).To(Equal(-f[1].Z))
				Expect(f[0].X).To(BeZero())
				Expect(f[1].Y).To(BeZero())
			}
		})

		It("pulls both ions toward the trap centre", func() {
			Expect(res.FinalPositions[1].Z).To(BeNumerically("<", 20e-6))
			Expect(res.FinalPositions[1].Z).To(BeNumerically(">", 0))
			Expect(res.FinalPositions[0].Z).To(Equal(-res.FinalPositions[1].Z))
		})

		It("reports step-end times", func() {
			Expect(rec.times[0]).To(BeNumerically("~", 1e-9, 1e-20))
			Expect(rec.times[999]).To(BeNumerically("~", 1e-6, 1e-18))
		})

		It("reports progress at every decile and on completion", func() {
			Expect(rec.progress).To(HaveLen(11))
			for i := 0; i < 10; i++ {
				Expect(rec.progress[i].Step).To(Equal(100 * i))
				Expect(rec.progress[i].Percent).To(Equal(10 * i))
				Expect(rec.progress[i].Done).To(BeFalse())
			}
			Expect(rec.progress[10].Done).To(BeTrue())
			Expect(rec.progress[10].Percent).To(Equal(100))
		})

		It("closes the sink", func() {
			Expect(sink.Closed).To(Equal(1))
		})

		It("can run again from the finished state", func() {
			before := res.FinalPositions.Clone()
			again, err := eng.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.Status()).To(Equal(dynamo.Finished))
			Expect(again.FinalPositions[1].Z).To(BeNumerically("<", before[1].Z))
			Expect(sink.Closed).To(Equal(2))
		})
	})

	Describe("buffering", func() {
		It("persists full buffers and flushes the remainder", func() {
			params.BufferSize = 64
			eng := newEngine(twoIons())
			res, err := eng.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(sink.Batches).To(HaveLen(16))
			for _, b := range sink.Batches[:15] {
				Expect(b).To(Equal(64))
			}
			Expect(sink.Batches[15]).To(Equal(1000 - 15*64))
			Expect(res.Frames).To(Equal(1000))
		})

		It("has persisted k buffers at every flush boundary", func() {
			params.BufferSize = 100
			eng := newEngine(twoIons())
			rec.onFrame = func(step int) {
				full := step / 100
				Expect(len(sink.Frames)).To(Equal(full * 100))
			}
			_, err := eng.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
		})

		It("writes a readable trajectory file when no sink is given", func() {
			params.Filename = filepath.Join(GinkgoT().TempDir(), "traj.bin")
			params.BufferSize = 128
			eng, err := sim.New(params, trap, twoIons(), sim.WithObserver(rec))
			Expect(err).NotTo(HaveOccurred())
			_, err = eng.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			rd, err := trajectory.Open(params.Filename)
			Expect(err).NotTo(HaveOccurred())
			defer rd.Close()
			Expect(rd.Header().NumIons).To(BeEquivalentTo(2))

			times, frames, err := rd.ReadAll()
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(HaveLen(1000))
			Expect(frames).To(Equal(rec.frames))
			Expect(times[999]).To(BeNumerically("~", 1e-6, 1e-18))
		})

		It("discards frames when there is nowhere to write", func() {
			eng, err := sim.New(params, trap, twoIons(), sim.WithObserver(rec))
			Expect(err).NotTo(HaveOccurred())
			res, err := eng.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Frames).To(BeZero())
			Expect(res.Steps).To(Equal(1000))
		})
	})

	Describe("while running", func() {
		It("rejects every mutation and nested runs", func() {
			var logs bytes.Buffer
			var eng *sim.Engine
			var errs []error
			var status dynamo.Status

			rec.onFrame = func(step int) {
				if step != 0 {
					return
				}
				status = eng.Status()
				p := params
				p.Dt = 2e-9
				errs = append(errs, eng.SetParams(p))
				errs = append(errs, eng.SetTrap(physics.DefaultTrap()))
				errs = append(errs, eng.SetIons(nil))
				_, err := eng.Run(context.Background())
				errs = append(errs, err)
			}

			eng = newEngine(twoIons(), sim.WithLogger(logging.New(&logs, 0)))
			_, err := eng.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(status).To(Equal(dynamo.Running))
			Expect(errs).To(HaveLen(4))
			for _, e := range errs {
				Expect(errors.Is(e, dynamo.ErrRunning)).To(BeTrue())
			}
			Expect(eng.Params().Dt).To(Equal(1e-9))
			Expect(eng.Ions()).To(HaveLen(2))
			Expect(logs.String()).To(ContainSubstring("mutation rejected"))
		})
	})

	Describe("mutation between runs", func() {
		It("replaces parameters and rebinds ions", func() {
			eng := newEngine(twoIons())
			p := params
			p.TMax = 5e-7
			Expect(eng.SetParams(p)).To(Succeed())

			res, err := eng.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(500))
		})

		It("leaves parameters untouched when the new set is invalid", func() {
			eng := newEngine(twoIons())
			p := params
			p.BufferSize = 0
			err := eng.SetParams(p)
			Expect(errors.Is(err, dynamo.ErrInvalidParams)).To(BeTrue())
			Expect(eng.Params()).To(Equal(params))
		})

		It("builds ions against the engine trap", func() {
			eng := newEngine(nil)
			a := eng.MakeIon(40, 1, r3.Vec{Z: -20e-6})
			b := eng.MakeIon(40, 1, r3.Vec{Z: 20e-6})
			Expect(eng.SetIons([]*physics.Ion{a, b})).To(Succeed())
			Expect(a.Index()).To(Equal(0))
			Expect(b.Index()).To(Equal(1))

			res, err := eng.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.FinalPositions[0].Z).To(Equal(-res.FinalPositions[1].Z))
		})

		It("applies a new trap to bound ions", func() {
			eng := newEngine(twoIons())
			soft := trap
			soft.UEC /= 4
			Expect(eng.SetTrap(soft)).To(Succeed())
			softRes, err := eng.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			stiffRes, err := newEngine(twoIons()).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(softRes.FinalPositions[1].Z).To(BeNumerically(">", stiffRes.FinalPositions[1].Z))
		})
	})

	Describe("termination", func() {
		It("aborts on cancellation and flushes what it has", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			rec.onFrame = func(step int) {
				if step == 10 {
					cancel()
				}
			}

			eng := newEngine(twoIons())
			res, err := eng.Run(ctx)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(errors.Is(err, dynamo.ErrCanceled)).To(BeTrue())

			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Step).To(Equal(11))

			Expect(eng.Status()).To(Equal(dynamo.Aborted))
			Expect(res.Steps).To(Equal(11))
			Expect(sink.Frames).To(HaveLen(11))
			Expect(sink.Closed).To(Equal(1))
		})

		It("fails when the sink fails", func() {
			params.BufferSize = 10
			sinkErr := errors.New("disk full")
			sink.Err = sinkErr

			eng := newEngine(twoIons())
			res, err := eng.Run(context.Background())
			Expect(errors.Is(err, sinkErr)).To(BeTrue())
			Expect(eng.Status()).To(Equal(dynamo.Failed))
			Expect(res.Steps).To(Equal(10))
			Expect(res.Frames).To(BeZero())
		})

		It("fails on a diverging state when validation is on", func() {
			// Radial secular motion with ω·dt far beyond the leapfrog
			// stability limit grows without bound.
			params.Dt = 1e-5
			params.TMax = 1e-2
			params.ValidateState = true
			ions := []*physics.Ion{physics.NewIon(nil, nil, 40, 1, r3.Vec{X: 1e-6})}

			eng := newEngine(ions)
			res, err := eng.Run(context.Background())
			Expect(errors.Is(err, dynamo.ErrUnstable)).To(BeTrue())
			Expect(eng.Status()).To(Equal(dynamo.Failed))
			Expect(res.Steps).To(BeNumerically("<", 1000))
			last := sink.Frames[len(sink.Frames)-1][0]
			Expect(math.IsInf(last.X, 0) || math.IsNaN(last.X)).To(BeTrue())
		})

		It("fails on coincident ions without softening", func() {
			params.Coulomb = true
			ions := []*physics.Ion{
				physics.NewIon(nil, nil, 40, 1, r3.Vec{Z: 1e-6}),
				physics.NewIon(nil, nil, 40, 1, r3.Vec{Z: 1e-6}),
			}
			eng := newEngine(ions)
			_, err := eng.Run(context.Background())
			Expect(errors.Is(err, dynamo.ErrCoincident)).To(BeTrue())
			Expect(eng.Status()).To(Equal(dynamo.Failed))
		})

		It("can run again after failing", func() {
			params.BufferSize = 10
			sink.Err = errors.New("disk full")
			eng := newEngine(twoIons())
			_, err := eng.Run(context.Background())
			Expect(err).To(HaveOccurred())

			sink.Err = nil
			_, err = eng.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.Status()).To(Equal(dynamo.Finished))
		})
	})

	Describe("coulomb coupling", func() {
		It("pushes like charges apart", func() {
			params.Coulomb = true
			coupled, err := newEngine(twoIons()).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			params.Coulomb = false
			free, err := newEngine(twoIons()).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(coupled.FinalPositions[1].Z).To(BeNumerically(">", free.FinalPositions[1].Z))
			Expect(coupled.FinalPositions[0].Z).To(BeNumerically("~", -coupled.FinalPositions[1].Z, 1e-18))
		})

		It("agrees between direct and tree evaluation at theta zero", func() {
			params.Coulomb = true
			direct, err := newEngine(twoIons()).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			params.CoulombMethod = dynamo.CoulombBarnesHut
			params.Theta = 0
			tree, err := newEngine(twoIons()).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(tree.FinalPositions[1].Z).To(BeNumerically("~", direct.FinalPositions[1].Z, 1e-15))
		})

		It("agrees between direct and tree evaluation at the default theta", func() {
			params.Coulomb = true
			direct, err := newEngine(twoIons()).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			params.CoulombMethod = dynamo.CoulombBarnesHut
			tree, err := newEngine(twoIons()).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(tree.FinalPositions[1].Z).To(BeNumerically("~", direct.FinalPositions[1].Z, 1e-15))
		})
	})

	Describe("stochastic heating", func() {
		run := func(seed uint64) trajectory.Frame {
			params.Stochastic = true
			params.GammaCollision = 1
			params.Seed = seed
			res, err := newEngine(twoIons()).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			return res.FinalPositions
		}

		It("is reproducible for a seed", func() {
			Expect(run(7)).To(Equal(run(7)))
		})

		It("differs between seeds", func() {
			Expect(run(7)).NotTo(Equal(run(8)))
		})

		It("runs independent ensemble members", func() {
			params.Stochastic = true
			params.GammaCollision = 1
			ens := sim.NewEnsemble(func(seed uint64) (*sim.Engine, error) {
				p := params
				p.Seed = seed
				return sim.New(p, trap, twoIons())
			}, 3, 100)

			results, err := ens.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			for _, r := range results {
				Expect(r).NotTo(BeNil())
				Expect(r.Steps).To(Equal(1000))
			}
			Expect(results[0].FinalPositions).NotTo(Equal(results[1].FinalPositions))
		})

		It("joins member errors", func() {
			ens := sim.NewEnsemble(func(seed uint64) (*sim.Engine, error) {
				p := params
				p.Dt = -1
				return sim.New(p, trap, twoIons())
			}, 2, 0)
			results, err := ens.Run(context.Background())
			Expect(errors.Is(err, dynamo.ErrInvalidParams)).To(BeTrue())
			Expect(results[0]).To(BeNil())
		})
	})
})
