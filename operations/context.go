package operations

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/rmannibucau/therian/pkg/logger"
	"github.com/rmannibucau/therian/resolve"
)

// Context is the per-evaluation state handed to operators: the engine, the
// caller's context.Context, the hint stack, and the call stack of in-flight
// operation fingerprints guarding against mutual recursion. A Context lives
// on a single goroutine for the duration of one Engine.Evaluate call.
type Context struct {
	engine   *Engine
	ctx      context.Context
	evalID   string
	hints    []any
	inFlight []fingerprint
	frames   []*evalFrame
	reports  []Report
}

// evalFrame collects the report IDs of operations forwarded while one
// operation executes.
type evalFrame struct {
	childIDs []string
}

func newContext(ctx context.Context, e *Engine) *Context {
	return &Context{
		engine: e,
		ctx:    ctx,
		evalID: ksuid.New().String(),
	}
}

// Context returns the caller's context.Context.
func (c *Context) Context() context.Context { return c.ctx }

// Logger returns the engine logger.
func (c *Context) Logger() logger.Logger { return c.engine.lggr }

// Resolver returns the engine's generic signature resolver, for operators
// whose Supports predicate inspects types itself.
func (c *Context) Resolver() *resolve.Resolver { return c.engine.resolver }

// Eval submits a nested operation from inside an operator ("forwarding").
// The operation executes synchronously before Eval returns. It fails with
// ErrReentrantOperation if the operation is structurally identical to one
// already in flight, and with ErrAlreadyEvaluated if the operation value
// already reached a terminal state.
func (c *Context) Eval(op Operation) (bool, error) {
	ok, _, err := c.eval(op)

	return ok, err
}

// TryEval is the safe variant of Eval: an operation that already succeeded
// reports true, and dispatch, re-entrancy and re-evaluation failures report
// false instead of an error. Operator errors are logged and report false.
func (c *Context) TryEval(op Operation) bool {
	if op.base().state.Terminal() {
		return op.base().state == StateSucceeded
	}
	ok, _, err := c.eval(op)
	if err != nil {
		c.engine.lggr.Debugw("TryEval failed", "shape", op.Shape().String(), "error", err)

		return false
	}

	return ok
}

// Supported reports whether at least one operator would accept the operation,
// without executing anything or changing the operation's state. An operation
// structurally identical to one already in flight reports false.
func (c *Context) Supported(op Operation) bool {
	fp := fingerprintOf(op)
	if c.isInFlight(fp) {
		return false
	}
	c.inFlight = append(c.inFlight, fp)
	defer func() { c.inFlight = c.inFlight[:len(c.inFlight)-1] }()

	return len(c.match(op)) > 0
}

// PushHint pushes an ambient, typed configuration value. Operators read the
// nearest enclosing value of a type with HintValue; the last pushed value of
// a type wins. The returned function pops the hint (and any hints pushed
// above it) and must be called when the pushing scope exits.
func (c *Context) PushHint(v any) (pop func()) {
	c.hints = append(c.hints, v)
	depth := len(c.hints) - 1

	return func() {
		if len(c.hints) > depth {
			c.hints = c.hints[:depth]
		}
	}
}

// HintValue returns the nearest enclosing hint assignable to H.
func HintValue[H any](c *Context) (H, bool) {
	for i := len(c.hints) - 1; i >= 0; i-- {
		if h, ok := c.hints[i].(H); ok {
			return h, true
		}
	}
	var zero H

	return zero, false
}

// HintOr returns the nearest enclosing hint assignable to H, or the given
// default when none was pushed.
func HintOr[H any](c *Context, fallback H) H {
	if h, ok := HintValue[H](c); ok {
		return h
	}

	return fallback
}

func (c *Context) isInFlight(fp fingerprint) bool {
	for _, f := range c.inFlight {
		if f.equal(fp) {
			return true
		}
	}

	return false
}

// eval runs the full lifecycle of one operation: guard checks, matching,
// execution under the operation's aggregation policy, and report creation.
func (c *Context) eval(op Operation) (bool, string, error) {
	b := op.base()
	shape := op.Shape().String()

	if b.state.Terminal() {
		return false, "", fmt.Errorf("%s: %w", shape, ErrAlreadyEvaluated)
	}
	fp := fingerprintOf(op)
	if c.isInFlight(fp) {
		return false, "", fmt.Errorf("%s: %w", shape, ErrReentrantOperation)
	}
	c.inFlight = append(c.inFlight, fp)
	frame := &evalFrame{}
	c.frames = append(c.frames, frame)
	defer func() {
		c.inFlight = c.inFlight[:len(c.inFlight)-1]
		c.frames = c.frames[:len(c.frames)-1]
	}()

	start := time.Now()

	b.state = StateMatching
	candidates := c.match(op)
	defs := make([]Definition, len(candidates))
	for i, cand := range candidates {
		defs[i] = cand.def
	}
	c.engine.lggr.Debugw("Operation matched", "shape", shape, "candidates", len(candidates))

	b.state = StateExecuting
	success, execErr := c.execute(op, candidates)

	if success {
		b.state = StateSucceeded
	} else {
		b.state = StateFailed
	}

	err := execErr
	if err == nil && !success {
		err = fmt.Errorf("%s: %w", shape, ErrNoCandidates)
	}

	report := NewReport(c.evalID, shape, defs, success, err, frame.childIDs...)
	report.Duration = time.Since(start)
	c.reports = append(c.reports, report)
	if parent := c.parentFrame(); parent != nil {
		parent.childIDs = append(parent.childIDs, report.ID)
	}

	return success, report.ID, err
}

// parentFrame returns the frame of the operation that forwarded the current
// one, or nil at the root. It is called inside eval's defer window, when the
// current frame is still on the stack.
func (c *Context) parentFrame() *evalFrame {
	if len(c.frames) < 2 {
		return nil
	}

	return c.frames[len(c.frames)-2]
}

// match computes the ordered candidate list: operators whose declared
// generic signature accepts the operation's shape and whose Supports
// predicate passes. It never mutates the operation.
func (c *Context) match(op Operation) []entry {
	var candidates []entry
	for _, en := range c.engine.ordered {
		declared, err := c.engine.declaredShape(en.op)
		if err != nil {
			c.engine.lggr.Warnw("Skipping operator with unresolvable signature",
				"id", en.def.ID, "error", err)

			continue
		}
		// an unresolved declaration is an unknown shape: only the custom
		// predicate can decide
		if declared != nil && !resolve.Assignable(op.Shape(), declared) {
			continue
		}
		if !en.op.Supports(c, op) {
			continue
		}
		candidates = append(candidates, en)
	}

	return candidates
}

// execute applies the operation's aggregation policy over the candidates. A
// candidate returning an error aborts the evaluation; a candidate returning
// false merely declined.
func (c *Context) execute(op Operation, candidates []entry) (bool, error) {
	success := false
	for _, cand := range candidates {
		ok, err := cand.op.Perform(c, op)
		if err != nil {
			return false, &OperatorError{Def: cand.def, Shape: op.Shape().String(), Err: err}
		}
		if !ok {
			continue
		}
		success = true
		if op.Aggregation() == FirstSuccess {
			break
		}
	}

	return success, nil
}
