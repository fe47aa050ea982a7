// Package aggregator holds the reference ports.Aggregator implementations
// that realize a committed transaction against the downstream configuration
// subsystem: the live component registry, the scheduler execution order,
// and the static IP table.
package aggregator

import (
	"context"
	"fmt"
	"sync"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/ports"
	"github.com/patrickl3/openems-pf/internal/shell/registry"
)

// ComponentAggregator accumulates component additions and removals across a
// transaction's nodes and realizes them against the component registry on
// commit.
type ComponentAggregator struct {
	registry *registry.Registry

	mu      sync.Mutex
	put     map[string]ports.RegistryComponent
	deleted map[string]bool
}

var _ ports.Aggregator = (*ComponentAggregator)(nil)

// NewComponentAggregator builds a ComponentAggregator writing into reg.
func NewComponentAggregator(reg *registry.Registry) *ComponentAggregator {
	return &ComponentAggregator{registry: reg}
}

func (a *ComponentAggregator) Reset(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.put = make(map[string]ports.RegistryComponent)
	a.deleted = make(map[string]bool)
	return nil
}

func (a *ComponentAggregator) Aggregate(_ context.Context, newConfig, oldConfig *domain.AppConfiguration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	old := indexComponents(oldConfig)
	next := indexComponents(newConfig)

	for id, comp := range next {
		a.put[id] = toRegistryComponent(comp)
		delete(a.deleted, id)
	}
	for id := range old {
		if _, stillPresent := next[id]; !stillPresent {
			a.deleted[id] = true
			delete(a.put, id)
		}
	}
	return nil
}

func (a *ComponentAggregator) Commit(ctx context.Context, _ string, _ []domain.AppConfiguration) error {
	a.mu.Lock()
	put := a.put
	deleted := a.deleted
	a.mu.Unlock()

	for id := range deleted {
		if err := a.registry.Delete(ctx, id); err != nil {
			return fmt.Errorf("component aggregator: deleting %s: %w", id, err)
		}
	}
	for id, comp := range put {
		if err := a.registry.Put(ctx, comp); err != nil {
			return fmt.Errorf("component aggregator: writing %s: %w", id, err)
		}
	}
	return nil
}

func indexComponents(cfg *domain.AppConfiguration) map[string]domain.Component {
	if cfg == nil {
		return nil
	}
	out := make(map[string]domain.Component, len(cfg.Components))
	for _, comp := range cfg.Components {
		out[comp.ID] = comp
	}
	return out
}

func toRegistryComponent(comp domain.Component) ports.RegistryComponent {
	return ports.RegistryComponent{
		ID:         comp.ID,
		FactoryID:  comp.FactoryID,
		Alias:      comp.Alias,
		Properties: comp.Properties,
	}
}
