package subsystem

import (
	"context"
	"fmt"

	"runtimeops/pkg/circuitbreaker"
	pkgerrors "runtimeops/pkg/errors"
)

type CircuitBreakerActivator struct {
	activator Activator
	cb        *circuitbreaker.Wrapper
	name      string
}

// isSuccessful keeps refusals the subsystem answered deliberately from
// tripping the breaker; only transport and server failures count.
func isSuccessful(err error) bool {
	return err == nil ||
		pkgerrors.IsApprovalRequired(err) ||
		pkgerrors.IsConflict(err) ||
		pkgerrors.IsPhraseMismatch(err)
}

func NewCircuitBreakerActivator(activator Activator, name string, cfg circuitbreaker.Config) *CircuitBreakerActivator {
	cfg.Name = "subsystem-" + name
	cfg.IsSuccessful = isSuccessful
	return &CircuitBreakerActivator{
		activator: activator,
		cb:        circuitbreaker.NewWrapper(cfg),
		name:      name,
	}
}

func (a *CircuitBreakerActivator) Activate(ctx context.Context, req Request) error {
	return a.do(ctx, func() error { return a.activator.Activate(ctx, req) })
}

func (a *CircuitBreakerActivator) Deactivate(ctx context.Context, req Request) error {
	return a.do(ctx, func() error { return a.activator.Deactivate(ctx, req) })
}

func (a *CircuitBreakerActivator) do(ctx context.Context, fn func() error) error {
	err := a.cb.Do(ctx, fn)
	if err != nil && a.cb.IsOpen() && !isSuccessful(err) {
		return pkgerrors.Wrap(fmt.Errorf("circuit breaker is open for %s: %w", a.name, err), pkgerrors.ErrBackingCallFailed)
	}
	return err
}

func (a *CircuitBreakerActivator) State() string {
	return a.cb.State().String()
}
