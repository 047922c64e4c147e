package optim

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/ctrlenv/internal/config"
	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/env"
)

// Axis is one searched dimension. Target names what it sets:
// controller.kp, controller.ki, controller.kd, physics.<name> or
// task.<name>.
type Axis struct {
	Target string
	Values []float64
}

// Runner executes the episodes of one config.
type Runner func(ctx context.Context, cfg *config.Config) ([]*env.Result, error)

type GridSearch struct {
	axes     []Axis
	metric   string
	maximize bool
}

func NewGridSearch(axes []Axis, metric string, maximize bool) *GridSearch {
	return &GridSearch{axes: axes, metric: metric, maximize: maximize}
}

// Point is one evaluated grid point with the metric averaged over episodes.
type Point struct {
	Values map[string]float64
	Score  float64
}

// Search evaluates every grid point on a copy of base and returns the best
// point plus all evaluated ones in grid order. Points whose score is NaN
// never win.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, run Runner) (Point, []Point, error) {
	for _, a := range g.axes {
		if len(a.Values) == 0 {
			return Point{}, nil, fmt.Errorf("%w: axis %s has no values", dynamo.ErrConfiguration, a.Target)
		}
	}

	best := Point{Score: math.Inf(1)}
	if g.maximize {
		best.Score = math.Inf(-1)
	}
	var points []Point

	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(current map[string]float64) error {
		cfg := base.Clone()
		for target, v := range current {
			if err := Apply(cfg, target, v); err != nil {
				return err
			}
		}
		results, err := run(ctx, cfg)
		if err != nil {
			return err
		}

		p := Point{Values: current, Score: mean(results, g.metric)}
		points = append(points, p)
		if g.better(p.Score, best.Score) {
			best = p
		}
		return nil
	})
	if err != nil {
		return Point{}, points, err
	}
	if best.Values == nil {
		return Point{}, points, fmt.Errorf("metric %s was not finite at any grid point", g.metric)
	}
	return best, points, nil
}

func (g *GridSearch) better(score, best float64) bool {
	if math.IsNaN(score) {
		return false
	}
	if g.maximize {
		return score > best
	}
	return score < best
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	evaluate func(map[string]float64) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.axes) {
		return evaluate(current)
	}

	axis := g.axes[depth]
	for _, val := range axis.Values {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[axis.Target] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, evaluate); err != nil {
			return err
		}
	}
	return nil
}

// ReturnMetric scores the undiscounted episode return, Result.Return.
const ReturnMetric = "return"

func mean(results []*env.Result, metric string) float64 {
	if len(results) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, r := range results {
		if metric == ReturnMetric {
			sum += r.Return
			continue
		}
		v, ok := r.Metrics[metric]
		if !ok {
			return math.NaN()
		}
		sum += v
	}
	return sum / float64(len(results))
}

// Apply sets one searched value on cfg.
func Apply(cfg *config.Config, target string, v float64) error {
	scope, name, ok := strings.Cut(target, ".")
	if !ok || name == "" {
		return fmt.Errorf("%w: search target %q is not scope.name", dynamo.ErrConfiguration, target)
	}
	switch scope {
	case "controller":
		switch name {
		case "kp":
			cfg.Controller.Kp = v
		case "ki":
			cfg.Controller.Ki = v
		case "kd":
			cfg.Controller.Kd = v
		default:
			return fmt.Errorf("%w: unknown controller gain %q", dynamo.ErrConfiguration, name)
		}
	case "physics":
		if cfg.Physics == nil {
			cfg.Physics = make(map[string]any)
		}
		cfg.Physics[name] = v
	case "task":
		if cfg.TaskParams == nil {
			cfg.TaskParams = make(map[string]any)
		}
		cfg.TaskParams[name] = v
	default:
		return fmt.Errorf("%w: unknown search scope %q", dynamo.ErrConfiguration, scope)
	}
	return nil
}
