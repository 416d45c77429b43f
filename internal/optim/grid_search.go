// Package optim sweeps scene parameters over a grid and ranks the runs by a
// metric.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/demsim/internal/config"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/experiment"
)

// Point is one evaluated parameter combination. Err is set when the run
// could not be built or failed; Value is then NaN.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64

	// Maximize ranks the largest metric value first.
	Maximize bool
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(params), len(ranges))
	}
	for i, name := range params {
		if _, ok := setters[name]; !ok {
			return nil, dynamo.InvalidField(dynamo.ErrInvalidConfig, "parameter", name)
		}
		if len(ranges[i]) == 0 {
			return nil, dynamo.InvalidField(dynamo.ErrInvalidConfig, name, "empty range")
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of combinations in the grid.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs one experiment per combination, each built from a copy of
// base. Points come back ranked, failed runs last. It stops early only when
// ctx is cancelled.
func (g *GridSearch) Search(
	ctx context.Context,
	base *config.Config,
	build func(cfg *config.Config) (*experiment.Experiment, error),
	metricName string,
) ([]Point, error) {
	points := make([]Point, 0, g.Size())
	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, build, metricName, &points)
	g.rank(points)
	return points, err
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	build func(*config.Config) (*experiment.Experiment, error),
	metricName string,
	points *[]Point,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		params := make(map[string]float64, len(current))
		for k, v := range current {
			params[k] = v
		}
		*points = append(*points, g.evaluate(ctx, params, base, build, metricName))
		return nil
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		if err := g.searchRecursive(ctx, depth+1, current, base, build, metricName, points); err != nil {
			return err
		}
	}
	delete(current, name)
	return nil
}

func (g *GridSearch) evaluate(
	ctx context.Context,
	params map[string]float64,
	base *config.Config,
	build func(*config.Config) (*experiment.Experiment, error),
	metricName string,
) Point {
	p := Point{Params: params, Value: math.NaN()}

	cfg, err := base.Clone()
	if err != nil {
		p.Err = err
		return p
	}
	for name, v := range params {
		if err := Apply(cfg, name, v); err != nil {
			p.Err = err
			return p
		}
	}

	exp, err := build(cfg)
	if err != nil {
		p.Err = err
		return p
	}
	result, err := exp.Run(ctx)
	if err != nil {
		p.Err = err
		return p
	}

	val, ok := result.Metrics[metricName]
	if !ok {
		p.Err = fmt.Errorf("metric %q not recorded", metricName)
		return p
	}
	p.Value = val
	return p
}

func (g *GridSearch) rank(points []Point) {
	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		if a.Err != nil {
			return false
		}
		if g.Maximize {
			return a.Value > b.Value
		}
		return a.Value < b.Value
	})
}
