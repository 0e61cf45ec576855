// Package optim sweeps run settings over a grid and ranks the outcomes.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Trial runs one grid point and returns its metrics.
type Trial func(ctx context.Context, params map[string]float64) (map[string]float64, error)

// Point is the outcome of one trial.
type Point struct {
	Params  map[string]float64
	Metrics map[string]float64
	Err     error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: parameter %q has no values", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// ParseAxis reads a "name=v1,v2,..." sweep definition.
func ParseAxis(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("optim: want name=v1,v2,... got %q", s)
	}
	var vals []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("optim: %s: %w", name, err)
		}
		vals = append(vals, v)
	}
	return name, vals, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Run evaluates every grid point in order, last parameter varying
// fastest. A failing trial is recorded and the sweep continues; a
// canceled context stops it.
func (g *GridSearch) Run(ctx context.Context, trial Trial) ([]Point, error) {
	points := make([]Point, 0, g.Size())
	err := g.searchRecursive(ctx, 0, make(map[string]float64), trial, &points)
	return points, err
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	trial Trial,
	points *[]Point,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		ms, err := trial(ctx, current)
		*points = append(*points, Point{Params: current, Metrics: ms, Err: err})
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, trial, points); err != nil {
			return err
		}
	}
	return nil
}

// Best returns the point with the smallest value of metric among the
// trials that succeeded and reported it.
func Best(points []Point, metric string) (Point, float64, bool) {
	best := math.Inf(1)
	var bestPoint Point
	found := false
	for _, p := range points {
		if p.Err != nil {
			continue
		}
		v, ok := p.Metrics[metric]
		if !ok || math.IsNaN(v) {
			continue
		}
		if !found || v < best {
			best, bestPoint, found = v, p, true
		}
	}
	return bestPoint, best, found
}

// Names returns the swept parameter names in sweep order.
func (g *GridSearch) Names() []string {
	return append([]string(nil), g.paramNames...)
}

// MetricNames lists every metric any point reported, sorted.
func MetricNames(points []Point) []string {
	seen := map[string]bool{}
	for _, p := range points {
		for k := range p.Metrics {
			seen[k] = true
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
