package subsystem

import (
	"fmt"
	"sort"

	"runtimeops/internal/config"
	"runtimeops/internal/staging"
	"runtimeops/pkg/circuitbreaker"
	pkgerrors "runtimeops/pkg/errors"
)

type Registry struct {
	activators map[staging.Subsystem]Activator
	clients    map[staging.Subsystem]*HTTPClient
}

func NewRegistry() *Registry {
	return &Registry{
		activators: map[staging.Subsystem]Activator{},
		clients:    map[staging.Subsystem]*HTTPClient{},
	}
}

// NewRegistryFromConfig builds one HTTP client per configured subsystem, each
// behind its own breaker when breakers are enabled.
func NewRegistryFromConfig(subsystems map[string]config.SubsystemConfig, cb config.CircuitBreakerConfig) (*Registry, error) {
	r := NewRegistry()

	names := make([]string, 0, len(subsystems))
	for name := range subsystems {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sub := staging.Subsystem(name)
		if !known(sub) {
			return nil, fmt.Errorf("unknown subsystem %q", name)
		}

		client := NewHTTPClient(name, subsystems[name])
		r.clients[sub] = client

		var activator Activator = client
		if cb.Enabled {
			activator = NewCircuitBreakerActivator(client, name, circuitbreaker.DefaultConfig(name).WithTuning(cb.Tuning()))
		}
		r.Register(sub, activator)
	}

	return r, nil
}

func known(sub staging.Subsystem) bool {
	for _, s := range staging.Subsystems {
		if s == sub {
			return true
		}
	}
	return false
}

func (r *Registry) Register(sub staging.Subsystem, activator Activator) {
	r.activators[sub] = activator
}

func (r *Registry) Get(sub staging.Subsystem) (Activator, error) {
	activator, ok := r.activators[sub]
	if !ok {
		return nil, pkgerrors.ErrBackingCallFailed.WithMessage(fmt.Sprintf("subsystem %s is not configured", sub))
	}
	return activator, nil
}

// Clients returns the raw HTTP clients, used for health checks.
func (r *Registry) Clients() []*HTTPClient {
	out := make([]*HTTPClient, 0, len(r.clients))
	for _, sub := range staging.Subsystems {
		if c, ok := r.clients[sub]; ok {
			out = append(out, c)
		}
	}
	return out
}
