package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/ports"
	"github.com/patrickl3/openems-pf/internal/shell/registry"
)

// schedulerComponentID is the well-known registry component the merged
// execution order is written to, mirroring OpenEMS's Scheduler.AllAlphabetically.
const schedulerComponentID = "scheduler0"

const schedulerFactoryID = "Scheduler.AllAlphabetically"

// SchedulerAggregator accumulates each node's scheduler execution order
// contribution and commits the merged ordering as a single registry
// component's "controllers_ids" property.
type SchedulerAggregator struct {
	registry *registry.Registry

	mu      sync.Mutex
	order   []string
	removed map[string]bool
}

var _ ports.Aggregator = (*SchedulerAggregator)(nil)

// NewSchedulerAggregator builds a SchedulerAggregator writing into reg.
func NewSchedulerAggregator(reg *registry.Registry) *SchedulerAggregator {
	return &SchedulerAggregator{registry: reg}
}

func (a *SchedulerAggregator) Reset(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.order = nil
	a.removed = make(map[string]bool)
	return nil
}

func (a *SchedulerAggregator) Aggregate(_ context.Context, newConfig, oldConfig *domain.AppConfiguration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if oldConfig != nil {
		for _, id := range oldConfig.SchedulerExecutionOrder {
			a.removed[id] = true
		}
	}
	if newConfig != nil {
		for _, id := range newConfig.SchedulerExecutionOrder {
			delete(a.removed, id)
			if !contains(a.order, id) {
				a.order = append(a.order, id)
			}
		}
	}
	return nil
}

func (a *SchedulerAggregator) Commit(ctx context.Context, _ string, _ []domain.AppConfiguration) error {
	a.mu.Lock()
	order := append([]string{}, a.order...)
	removed := a.removed
	a.mu.Unlock()

	existing, found, err := a.registry.GetComponent(ctx, schedulerComponentID)
	if err != nil {
		return fmt.Errorf("scheduler aggregator: reading existing order: %w", err)
	}

	merged := order
	if found {
		for _, id := range readOrder(existing.Properties) {
			if removed[id] || contains(merged, id) {
				continue
			}
			merged = append(merged, id)
		}
	}

	props := domain.NewProperties()
	props, err = props.Set("controllers_ids", merged)
	if err != nil {
		return fmt.Errorf("scheduler aggregator: encoding order: %w", err)
	}

	if err := a.registry.Put(ctx, ports.RegistryComponent{
		ID:         schedulerComponentID,
		FactoryID:  schedulerFactoryID,
		Properties: props,
	}); err != nil {
		return fmt.Errorf("scheduler aggregator: committing order: %w", err)
	}
	return nil
}

func readOrder(props domain.Properties) []string {
	raw, ok := props.Get("controllers_ids")
	if !ok {
		return nil
	}
	var order []string
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil
	}
	return order
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
