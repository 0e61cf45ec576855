package physics

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/san-kum/ionmd/internal/dynamo"
	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r3"
)

// CoulombTable holds the net Coulomb force on each ion, indexed by
// ensemble order.
type CoulombTable []r3.Vec

// CoulombEvaluator computes the Coulomb table for one instant. The
// returned error wraps dynamo.ErrCoincident when two ions overlap and
// no softening is configured; the table is still complete in that case,
// with the singular pairs left out.
type CoulombEvaluator interface {
	Name() string
	Forces(ions []*Ion) (CoulombTable, error)
}

// NewCoulombEvaluator returns the evaluator for a dynamo.Params method name.
func NewCoulombEvaluator(p dynamo.Params) (CoulombEvaluator, error) {
	switch p.CoulombMethod {
	case "", dynamo.CoulombDirect:
		return NewDirectCoulomb(p.Softening, p.Workers), nil
	case dynamo.CoulombBarnesHut:
		return NewBarnesHutCoulomb(p.Theta, p.Softening, p.Workers), nil
	default:
		return nil, fmt.Errorf("unknown coulomb method: %s", p.CoulombMethod)
	}
}

// DirectCoulomb sums every pair exactly. Rows are computed in parallel;
// each worker writes only its own rows.
type DirectCoulomb struct {
	Softening float64
	workers   int
}

func NewDirectCoulomb(softening float64, workers int) *DirectCoulomb {
	return &DirectCoulomb{Softening: softening, workers: workers}
}

func (d *DirectCoulomb) Name() string { return dynamo.CoulombDirect }

func (d *DirectCoulomb) Forces(ions []*Ion) (CoulombTable, error) {
	n := len(ions)
	table := make(CoulombTable, n)
	eps2 := d.Softening * d.Softening
	var coincident atomic.Int64

	dynamo.ParallelFor(d.workers, n, 8, func(start, end int) {
		for i := start; i < end; i++ {
			xi := ions[i].Position
			qi := ions[i].ChargeC()

			var f r3.Vec
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}

				r := r3.Sub(xi, ions[j].Position)
				r2 := r3.Norm2(r) + eps2
				if r2 == 0 {
					coincident.Add(1)
					continue
				}

				rInv := 1.0 / math.Sqrt(r2)
				s := CoulombConstant * qi * ions[j].ChargeC() * rInv * rInv * rInv
				f = r3.Add(f, r3.Scale(s, r))
			}
			table[i] = f
		}
	})

	if c := coincident.Load(); c > 0 {
		return table, fmt.Errorf("%w: %d singular pair evaluations", dynamo.ErrCoincident, c)
	}
	return table, nil
}

// BarnesHutCoulomb approximates the table with an octree. Aggregated
// cells use the charge magnitude as their weight, which is exact in the
// multipole sense only for like-signed ensembles; mixed-sign or neutral
// ensembles are handed to direct summation. Theta = 0 opens every cell;
// theta is capped at dynamo.MaxTheta so that no cell holding the ion
// itself is ever accepted as an aggregate.
type BarnesHutCoulomb struct {
	Theta     float64
	Softening float64
	workers   int
	direct    *DirectCoulomb
}

func NewBarnesHutCoulomb(theta, softening float64, workers int) *BarnesHutCoulomb {
	return &BarnesHutCoulomb{
		Theta:     min(theta, dynamo.MaxTheta),
		Softening: softening,
		workers:   workers,
		direct:    NewDirectCoulomb(softening, workers),
	}
}

func (b *BarnesHutCoulomb) Name() string { return dynamo.CoulombBarnesHut }

type chargePoint struct {
	pos r3.Vec
	q   float64
}

func (c *chargePoint) Coord3() r3.Vec { return c.pos }
func (c *chargePoint) Mass() float64  { return c.q }

func (b *BarnesHutCoulomb) Forces(ions []*Ion) (CoulombTable, error) {
	if !likeSigned(ions) || hasDuplicates(ions) {
		return b.direct.Forces(ions)
	}

	n := len(ions)
	points := make([]*chargePoint, n)
	particles := make([]barneshut.Particle3, n)
	for i, ion := range ions {
		points[i] = &chargePoint{pos: ion.Position, q: math.Abs(ion.ChargeC())}
		particles[i] = points[i]
	}

	vol, err := barneshut.NewVolume(particles)
	if err != nil {
		return b.direct.Forces(ions)
	}

	eps2 := b.Softening * b.Softening
	var coincident atomic.Int64
	repulsion := func(p1, p2 barneshut.Particle3, m1, m2 float64, v r3.Vec) r3.Vec {
		// Both the tree walk and the theta = 0 scan visit the ion itself.
		if p1 == p2 {
			return r3.Vec{}
		}
		// The tree keeps a leaf's centre divided by its mass, so leaf
		// pairs are rebuilt from the particles. Aggregates (p2 == nil)
		// carry a true centre of charge.
		if p2 != nil {
			v = r3.Sub(p2.Coord3(), p1.Coord3())
			m1, m2 = p1.Mass(), p2.Mass()
		}
		r2 := r3.Norm2(v) + eps2
		if r2 == 0 {
			coincident.Add(1)
			return r3.Vec{}
		}
		rInv := 1.0 / math.Sqrt(r2)
		return r3.Scale(-CoulombConstant*m1*m2*rInv*rInv*rInv, v)
	}

	table := make(CoulombTable, n)
	dynamo.ParallelFor(b.workers, n, 8, func(start, end int) {
		for i := start; i < end; i++ {
			table[i] = vol.ForceOn(points[i], b.Theta, repulsion)
		}
	})

	if c := coincident.Load(); c > 0 {
		return table, fmt.Errorf("%w: %d singular pair evaluations", dynamo.ErrCoincident, c)
	}
	return table, nil
}

// likeSigned reports whether every ion carries charge of the same
// non-zero sign.
func likeSigned(ions []*Ion) bool {
	pos, neg := 0, 0
	for _, ion := range ions {
		switch {
		case ion.Charge > 0:
			pos++
		case ion.Charge < 0:
			neg++
		default:
			return false
		}
	}
	return pos == 0 || neg == 0
}

// hasDuplicates reports whether two ions share an exact position, which
// an octree cannot separate.
func hasDuplicates(ions []*Ion) bool {
	seen := make(map[r3.Vec]struct{}, len(ions))
	for _, ion := range ions {
		if _, ok := seen[ion.Position]; ok {
			return true
		}
		seen[ion.Position] = struct{}{}
	}
	return false
}
