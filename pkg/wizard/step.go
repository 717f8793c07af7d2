package wizard

import (
	"context"
	"fmt"
	"sync"
)

// Step describes one page of the wizard. Root is the id of the element whose
// controls make up the step's record.
type Step struct {
	Index   int    `json:"index" yaml:"index"`
	Title   string `json:"title" yaml:"title"`
	Root    string `json:"root,omitempty" yaml:"root,omitempty"`
	HasExit bool   `json:"hasExit,omitempty" yaml:"hasExit,omitempty"`
	// Collection names the reserved field under which the step embeds the
	// snapshot of the entity collection it owns.
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
}

// Status is the badge state of a step relative to the active one.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// StepController holds step-specific behaviour. It is created the first time
// its step is activated and kept for the wizard's lifetime.
type StepController interface {
	OnActivate(ctx context.Context) error
	OnLeave(ctx context.Context) error
}

// Factory builds the controller for a step.
type Factory func(step Step) (StepController, error)

// Registry maps step indices to controller factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[int]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[int]Factory)}
}

// Register installs factory for step index. Registering twice is an error.
func (r *Registry) Register(index int, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("wizard: factory for step %d is nil", index)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[index]; exists {
		return fmt.Errorf("wizard: step %d already has a controller factory", index)
	}
	r.factories[index] = factory
	return nil
}

// Lookup returns the factory for index.
func (r *Registry) Lookup(index int) (Factory, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[index]
	return f, ok
}

// ControllerFuncs adapts plain functions into a StepController. Nil
// functions are no-ops.
type ControllerFuncs struct {
	Activate func(ctx context.Context) error
	Leave    func(ctx context.Context) error
}

func (c ControllerFuncs) OnActivate(ctx context.Context) error {
	if c.Activate == nil {
		return nil
	}
	return c.Activate(ctx)
}

func (c ControllerFuncs) OnLeave(ctx context.Context) error {
	if c.Leave == nil {
		return nil
	}
	return c.Leave(ctx)
}
