package operations

import (
	"context"
	"fmt"

	"github.com/rmannibucau/therian/config"
	"github.com/rmannibucau/therian/pkg/logger"
	"github.com/rmannibucau/therian/resolve"
	"github.com/rmannibucau/therian/typeexpr"
)

// Engine matches operations to operators and executes them. The registry and
// its precedence order are immutable after New; evaluations on separate
// goroutines may share one Engine.
type Engine struct {
	lggr     logger.Logger
	resolver *resolve.Resolver
	reporter Reporter
	ordered  []entry
}

type engineOptions struct {
	lggr     logger.Logger
	resolver *resolve.Resolver
	reporter Reporter
	cfg      *config.Config
}

// EngineOption configures New.
type EngineOption func(*engineOptions)

// WithLogger sets the engine logger.
func WithLogger(lggr logger.Logger) EngineOption {
	return func(o *engineOptions) { o.lggr = lggr }
}

// WithResolver sets the generic signature resolver, sharing its caches with
// other engine instances.
func WithResolver(r *resolve.Resolver) EngineOption {
	return func(o *engineOptions) { o.resolver = r }
}

// WithReporter sets the sink that receives one report per evaluation.
func WithReporter(r Reporter) EngineOption {
	return func(o *engineOptions) { o.reporter = r }
}

// WithConfig applies an assembly configuration: disabled operators are
// skipped, configured depends-on edges merge into the precedence relation.
func WithConfig(cfg config.Config) EngineOption {
	return func(o *engineOptions) { o.cfg = &cfg }
}

// New assembles an engine from the registry. It fails with
// ErrPrecedenceCycle when the depends-on relation (including configured
// edges) contains a cycle, and with ErrUnknownDependency when an edge
// references an ID that was never registered.
func New(registry *Registry, opts ...EngineOption) (*Engine, error) {
	if registry == nil {
		registry = NewRegistry()
	}
	o := &engineOptions{lggr: logger.Nop(), resolver: resolve.New()}
	for _, opt := range opts {
		opt(o)
	}

	disabled := map[string]bool{}
	var extra map[string][]string
	if o.cfg != nil {
		for _, id := range o.cfg.Operators.Disabled {
			disabled[id] = true
		}
		extra = o.cfg.Operators.DependsOn
	}

	ordered, err := registry.sorted(disabled, extra)
	if err != nil {
		return nil, fmt.Errorf("assemble engine: %w", err)
	}

	e := &Engine{
		lggr:     o.lggr,
		resolver: o.resolver,
		reporter: o.reporter,
		ordered:  ordered,
	}
	for _, en := range ordered {
		e.lggr.Debugw("Operator registered", "id", en.def.ID, "version", en.def.Version, "entity", en.op.Entity().Name())
	}

	return e, nil
}

// Resolver returns the engine's generic signature resolver.
func (e *Engine) Resolver() *resolve.Resolver { return e.resolver }

// Operators returns the assembled operator definitions in execution order.
func (e *Engine) Operators() []Definition {
	out := make([]Definition, len(e.ordered))
	for i, en := range e.ordered {
		out[i] = en.def
	}

	return out
}

// Evaluate runs one operation to completion on the caller's goroutine,
// including any operations its operators forward. hints seed the
// evaluation's typed side-channel; operators read them with HintValue or
// HintOr and may push narrower-scoped values of their own. The returned
// report is also delivered to the configured Reporter, together with the
// reports of forwarded operations.
func (e *Engine) Evaluate(ctx context.Context, op Operation, hints ...any) (Report, error) {
	c := newContext(ctx, e)
	c.hints = append(c.hints, hints...)
	_, reportID, err := c.eval(op)

	if e.reporter != nil {
		for _, r := range c.reports {
			if addErr := e.reporter.AddReport(r); addErr != nil {
				e.lggr.Errorw("Failed to store report", "reportId", r.ID, "error", addErr)
			}
		}
	}

	var report Report
	for _, r := range c.reports {
		if r.ID == reportID {
			report = r

			break
		}
	}
	if err != nil {
		return report, err
	}

	e.lggr.Infow("Operation evaluated", "shape", op.Shape().String(), "evalId", c.evalID, "state", op.base().state.String())

	return report, nil
}

// declaredShape resolves the operation shape an operator accepts: the type
// its entity binds to the base operator entity's OPERATION parameter, for
// this operator instance. An unresolved binding returns nil: the shape is
// unknown and the signature check treats it as the unbounded root.
func (e *Engine) declaredShape(op Operator) (typeexpr.Type, error) {
	return e.resolver.Resolve(op, OperationParam())
}
