package mesh

import (
	"fmt"

	"go.uber.org/zap"
)

// NeighborMode selects which grid cells the spatial merge searches.
type NeighborMode int

const (
	// NeighborPositive searches the vertex's own cell plus the three cells at
	// +1 on x, y and z. Pairs straddling a negative-side cell boundary are
	// not merged.
	NeighborPositive NeighborMode = iota
	// NeighborFull searches all 27 cells around the vertex's cell.
	NeighborFull
)

// String returns the config name of the mode.
func (m NeighborMode) String() string {
	switch m {
	case NeighborPositive:
		return "positive"
	case NeighborFull:
		return "full"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseNeighborMode parses a config value. Empty selects NeighborPositive.
func ParseNeighborMode(s string) (NeighborMode, error) {
	switch s {
	case "", "positive":
		return NeighborPositive, nil
	case "full":
		return NeighborFull, nil
	default:
		return 0, fmt.Errorf("unknown neighbor mode %q", s)
	}
}

// Strategy selects the simplification algorithm run after merging.
type Strategy int

const (
	// StrategyQEM is single-pass quadric error metric edge collapse.
	StrategyQEM Strategy = iota
	// StrategyCluster is iterative uniform-grid vertex clustering.
	StrategyCluster
)

// String returns the config name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyQEM:
		return "qem"
	case StrategyCluster:
		return "cluster"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ParseStrategy parses a config value. Empty selects StrategyQEM.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "qem":
		return StrategyQEM, nil
	case "cluster":
		return StrategyCluster, nil
	default:
		return 0, fmt.Errorf("unknown simplify strategy %q", s)
	}
}

type options struct {
	log       *zap.Logger
	neighbors NeighborMode
}

// Option configures the pipeline functions.
type Option func(*options)

// WithLogger routes diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithNeighborMode sets the grid search used by Merge.
func WithNeighborMode(m NeighborMode) Option {
	return func(o *options) {
		o.neighbors = m
	}
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop(), neighbors: NeighborPositive}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
