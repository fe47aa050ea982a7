package reconcile

import (
	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

// sentinelPrefix marks a probe render's substituted property value. No
// legitimate catalog property value is expected to collide with it.
const sentinelPrefix = "#reconcile-probe#"

// RenderFunc renders an App's configuration for a given properties value.
// Supplied by the caller so this package performs no direct App.render call.
type RenderFunc func(properties domain.Properties) (domain.AppConfiguration, error)

// ReplaceableSlot is one component ID that is sourced from an instance
// property rather than fixed by the catalog template. DefaultID is the
// catalog's pure default - rendered with the property absent entirely - and
// is what a fresh ID allocation should count up from. PredefinedID is
// whatever the caller's own properties ask for, which may differ from
// DefaultID when a property was set to a non-default value; it is only
// meaningful as a first choice when there is no prior instance to defer to.
type ReplaceableSlot struct {
	PropertyKey  string
	DefaultID    string
	PredefinedID string
}

// FindReplaceableSlots renders the app once at the current properties (to
// read the predefined IDs) and then twice per property descriptor: once with
// the property replaced by a unique sentinel (to discover which component it
// drives), and once with the property stripped out entirely (to read the
// catalog's pure default, uncontaminated by whatever is currently set).
func FindReplaceableSlots(render RenderFunc, app domain.App, properties domain.Properties) ([]ReplaceableSlot, error) {
	base, err := render(properties)
	if err != nil {
		return nil, err
	}

	var slots []ReplaceableSlot
	for _, desc := range app.PropertyDescriptors() {
		sentinel := sentinelPrefix + desc.Name
		trial, err := properties.Set(desc.Name, sentinel)
		if err != nil {
			continue
		}
		trialCfg, err := render(trial)
		if err != nil {
			// This property doesn't drive an ID, or the sentinel value is
			// invalid for it - either way it is not a replaceable slot.
			continue
		}

		predefined, ok := defaultIDFor(base, trialCfg, sentinel)
		if !ok {
			continue
		}

		defaultID := predefined
		pureCfg, err := render(properties.Remove(desc.Name))
		if err == nil {
			if pureID, ok := defaultIDFor(pureCfg, trialCfg, sentinel); ok {
				defaultID = pureID
			}
		}

		slots = append(slots, ReplaceableSlot{
			PropertyKey:  desc.Name,
			DefaultID:    defaultID,
			PredefinedID: predefined,
		})
	}
	return slots, nil
}

func defaultIDFor(base, trial domain.AppConfiguration, sentinel string) (string, bool) {
	for i, comp := range trial.Components {
		if comp.ID != sentinel {
			continue
		}
		if i < len(base.Components) {
			return base.Components[i].ID, true
		}
	}
	return "", false
}
