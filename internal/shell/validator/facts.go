package validator

import (
	"context"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/ports"
)

// StaticFacts is a fixed snapshot of system capabilities, suitable for a
// single-board energy-edge appliance whose hardware does not change at
// runtime.
type StaticFacts map[string]any

func (f StaticFacts) Snapshot(_ context.Context) (map[string]any, error) {
	return map[string]any(f), nil
}

// StoreInstanceCounter counts installed instances of an app by scanning the
// configured AppStore.
type StoreInstanceCounter struct {
	Store ports.AppStore
}

func (c StoreInstanceCounter) CountInstalled(ctx context.Context, appID string) (int, error) {
	all, err := c.Store.AllInstances(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, instance := range all {
		if instance.AppID == appID {
			count++
		}
	}
	return count, nil
}
