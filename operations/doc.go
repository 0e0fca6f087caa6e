/*
Package operations matches operations to registered operators and executes
them in a structured, deterministic, and traceable manner.

# Dispatch

An Operation carries a shape: its operation entity parameterized with the
actual type arguments observed at construction. Each Operator declares, via
the type-expression model, the one operation shape it accepts. At evaluation
time the engine resolves every operator's declared shape (honoring explicit
per-instance bindings), checks it against the operation's shape, and consults
the operator's Supports predicate; operators passing both are candidates,
ordered by the depends-on relation resolved at assembly.

# Core Components

Registry:
  - Stores operators under a Definition (ID, semver version, description)
  - Carries the partial depends-on precedence relation

Engine:
  - Assembled once from a Registry; a precedence cycle fails assembly
  - Evaluates operations on the caller's goroutine, synchronously
  - Safe for concurrent evaluations from separate goroutines

Context:
  - Per-evaluation state passed to every operator
  - Forwarding: operators submit nested operations through Context.Eval
  - Guards against structural re-entrancy with an in-flight stack
  - Carries scoped, typed hints (PushHint / HintValue)

Reporter:
  - Receives one Report per evaluation, nested evaluations linked
  - MemoryReporter is the in-memory implementation

# Basic Usage

	registry := operations.NewRegistry()
	err := registry.Register(operations.NewDefinition("size-of-list", "1.0.0", ""), sizeOfList)

	engine, err := operations.New(registry, operations.WithLogger(lggr))
	report, err := engine.Evaluate(ctx, op)
*/
package operations
