// Package engine defines the abstraction that isolates SQLite specifics
// from the rest of patchkit, per spec.md section 4.2.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/a-h/patchkit/model"
)

// Engine exposes the three operations the executor and ledger need: a
// scalar query, a single-statement DML/DDL execute, and a transaction
// scope. Transactions are not reentrant — see spec.md section 9, "No
// reentrant transactions".
type Engine interface {
	// QueryScalar returns the first column of the first row, or a Null
	// scalar when the statement yields no rows.
	QueryScalar(ctx context.Context, sql string, args []model.SqlArg) (model.SqlScalar, error)
	// Execute runs a single DML/DDL statement and returns changes().
	Execute(ctx context.Context, sql string, args []model.SqlArg) (int64, error)
	// InTransaction opens BEGIN IMMEDIATE (when immediate) or BEGIN
	// (deferred); on normal return of fn, COMMIT; on any error unwinding
	// out of fn, ROLLBACK and return that error.
	InTransaction(ctx context.Context, immediate bool, fn func(ctx context.Context) error) error
}

// Provider lazily produces an Engine for a registered target alias.
// Providers are invoked on demand and may return a cached engine,
// per spec.md section 4.2 and section 9 ("Registry of targets").
type Provider func(ctx context.Context) (Engine, error)

// ErrUnknownTarget is raised by Registry.Resolve when no provider is
// registered for the requested target alias.
type ErrUnknownTarget struct {
	Target string
}

func (e ErrUnknownTarget) Error() string {
	return fmt.Sprintf("engine: unknown target %q", e.Target)
}

// Registry maps a target alias to its Provider. It is the collaborator
// spec.md section 4.2 calls "a registry [that] maps target alias to
// engine provider".
type Registry struct {
	mu        sync.Mutex
	providers map[string]Provider
	// fallback, if set, resolves any target alias not found in
	// providers. A single-connection CLI invocation (cmd/patchkit) uses
	// this to route every patch document's target at the one engine it
	// was given, regardless of what alias the document names.
	fallback Provider
}

// NewRegistry builds a Registry from a map of target alias to Provider.
func NewRegistry(providers map[string]Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for k, v := range providers {
		r.providers[k] = v
	}
	return r
}

// NewSingleTargetRegistry builds a Registry that resolves every target
// alias to the same Provider, for callers with exactly one configured
// engine and no need to distinguish targets.
func NewSingleTargetRegistry(provider Provider) *Registry {
	return &Registry{fallback: provider}
}

// Resolve looks up and invokes the provider for target, falling back to
// the registry's default provider (if any), and returning
// ErrUnknownTarget if neither is configured.
func (r *Registry) Resolve(ctx context.Context, target string) (Engine, error) {
	r.mu.Lock()
	p, ok := r.providers[target]
	fallback := r.fallback
	r.mu.Unlock()
	if !ok {
		if fallback == nil {
			return nil, ErrUnknownTarget{Target: target}
		}
		p = fallback
	}
	return p(ctx)
}

// Cached turns factory into a Provider that runs factory at most once;
// subsequent calls return the same Engine and error. Factories are "cold
// until first apply for that target", per spec.md section 9.
func Cached(factory func() (Engine, error)) Provider {
	var (
		once sync.Once
		eng  Engine
		err  error
	)
	return func(ctx context.Context) (Engine, error) {
		once.Do(func() {
			eng, err = factory()
		})
		return eng, err
	}
}
