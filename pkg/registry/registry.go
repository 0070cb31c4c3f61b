// Package registry maps node type identifiers to their executable
// implementations.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/windlass-io/windlass/pkg/protocol"
)

// ErrNodeTypeNotFound indicates a node type has no registered implementation.
var ErrNodeTypeNotFound = errors.New("node type not registered")

// NodeTypeError wraps a registry lookup failure with the offending type id.
type NodeTypeError struct {
	Type string
	Err  error
}

func (e *NodeTypeError) Error() string {
	return fmt.Sprintf("node type '%s': %v", e.Type, e.Err)
}

func (e *NodeTypeError) Unwrap() error { return e.Err }

// IsNodeTypeNotFound checks if an error indicates an unregistered node type.
func IsNodeTypeNotFound(err error) bool {
	return errors.Is(err, ErrNodeTypeNotFound)
}

// Registry holds capability and trigger factories. Registration happens once
// at process start; lookups are safe for concurrent use during parallel node
// execution.
type Registry struct {
	mu                  sync.RWMutex
	logger              *slog.Logger
	capabilityFactories map[string]protocol.CapabilityFactory
	triggerFactories    map[string]protocol.TriggerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:              logger,
		capabilityFactories: make(map[string]protocol.CapabilityFactory),
		triggerFactories:    make(map[string]protocol.TriggerFactory),
	}
}

// RegisterCapability adds a capability factory under its type id.
func (r *Registry) RegisterCapability(factory protocol.CapabilityFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.capabilityFactories[factory.ID()] = factory
}

// RegisterTrigger adds a trigger factory under its type id.
func (r *Registry) RegisterTrigger(factory protocol.TriggerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.triggerFactories[factory.ID()] = factory
}

// Resolve returns the capability factory for a node type.
func (r *Registry) Resolve(nodeType string) (protocol.CapabilityFactory, error) {
	r.mu.RLock()
	factory, ok := r.capabilityFactories[nodeType]
	r.mu.RUnlock()

	if !ok {
		return nil, &NodeTypeError{Type: nodeType, Err: ErrNodeTypeNotFound}
	}

	return factory, nil
}

// CreateCapability resolves nodeType and builds an instance with the given
// (already rendered) configuration.
func (r *Registry) CreateCapability(nodeType string, config map[string]any) (protocol.Capability, error) {
	factory, err := r.Resolve(nodeType)
	if err != nil {
		return nil, err
	}

	return factory.Create(config)
}

// CreateTrigger builds a trigger instance for the given trigger type.
func (r *Registry) CreateTrigger(triggerType string, config map[string]any) (protocol.Trigger, error) {
	r.mu.RLock()
	factory, ok := r.triggerFactories[triggerType]
	r.mu.RUnlock()

	if !ok {
		return nil, &NodeTypeError{Type: triggerType, Err: ErrNodeTypeNotFound}
	}

	return factory.Create(config, r.logger)
}

// CapabilityTypes returns the registered capability type ids.
func (r *Registry) CapabilityTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.capabilityFactories))
	for id := range r.capabilityFactories {
		types = append(types, id)
	}

	return types
}
