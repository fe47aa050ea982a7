package reconcile

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

// RegistryComponent is a read-only snapshot of one component currently
// known to the ComponentRegistry.
type RegistryComponent struct {
	ID         string
	FactoryID  string
	Properties domain.Properties
}

// Input bundles everything Reconcile needs to assign IDs for one node's
// rendered configuration.
type Input struct {
	Slots              []ReplaceableSlot
	Config             domain.AppConfiguration
	OldProperties      *domain.Properties
	RegistryComponents []RegistryComponent
	ClaimedIDs         map[string]bool
}

// Result is the rewritten configuration plus the instance properties
// updated to record each slot's final chosen ID.
type Result struct {
	Components []domain.Component
	Properties domain.Properties
}

// Reconcile assigns the final ID for every replaceable component in
// input.Config, preferring (in order): a byte-equivalent registry
// component, the ID recorded in the old instance's properties (or, when
// there is no old instance, a predefined ID that differs from the default),
// the unclaimed default ID, and finally a freshly allocated ID. Components
// are matched to slots by their rendered ID: a slot's PredefinedID when
// set, otherwise its DefaultID.
func Reconcile(input Input, startingProperties domain.Properties) (Result, error) {
	slotByID := make(map[string]ReplaceableSlot, len(input.Slots))
	for _, slot := range input.Slots {
		slotByID[slot.DefaultID] = slot
	}
	for _, slot := range input.Slots {
		if slot.PredefinedID != "" {
			slotByID[slot.PredefinedID] = slot
		}
	}

	claimed := make(map[string]bool, len(input.ClaimedIDs))
	for id, v := range input.ClaimedIDs {
		claimed[id] = v
	}
	for _, rc := range input.RegistryComponents {
		claimed[rc.ID] = true
	}

	// oldSlotIDs holds every replaceable slot's recorded id in the old
	// instance, not just the slot currently being resolved - a default id
	// that happens to collide with some *other* slot's old id must still be
	// treated as claimed, regardless of the order slots are processed in.
	oldSlotIDs := map[string]bool{}
	if input.OldProperties != nil {
		for _, slot := range input.Slots {
			if oldID, ok := input.OldProperties.GetString(slot.PropertyKey); ok && oldID != "" {
				oldSlotIDs[oldID] = true
			}
		}
	}

	properties := startingProperties
	components := make([]domain.Component, len(input.Config.Components))

	for i, comp := range input.Config.Components {
		slot, ok := slotByID[comp.ID]
		if !ok {
			// Not a replaceable slot; keep the rendered ID verbatim.
			components[i] = comp
			continue
		}

		finalID := resolveSlotID(slot, comp, input, claimed, oldSlotIDs)
		claimed[finalID] = true

		comp.ID = finalID
		components[i] = comp

		next, err := properties.Set(slot.PropertyKey, finalID)
		if err != nil {
			return Result{}, fmt.Errorf("reconcile: writing back id for %q: %w", slot.PropertyKey, err)
		}
		properties = next
	}

	return Result{Components: components, Properties: properties}, nil
}

func resolveSlotID(slot ReplaceableSlot, comp domain.Component, input Input, claimed, oldSlotIDs map[string]bool) string {
	if byConfig := findByConfig(input.RegistryComponents, comp); byConfig != "" {
		return byConfig
	}

	if input.OldProperties != nil {
		if oldID, ok := input.OldProperties.GetString(slot.PropertyKey); ok && oldID != "" {
			if registryAllows(input.RegistryComponents, oldID, comp.FactoryID) && !claimed[oldID] {
				return oldID
			}
		}
	} else if slot.PredefinedID != "" && slot.PredefinedID != slot.DefaultID && !claimed[slot.PredefinedID] {
		// No prior instance to defer to, but the caller's own properties
		// already asked for a specific id - honor it over the pure default.
		return slot.PredefinedID
	}

	if !claimed[slot.DefaultID] && !oldSlotIDs[slot.DefaultID] {
		return slot.DefaultID
	}

	return nextAvailableID(slot.DefaultID, mergedClaimed(claimed, oldSlotIDs))
}

// mergedClaimed returns claimed as-is when oldSlotIDs has nothing to add,
// otherwise a fresh map combining both so nextAvailableID's search also
// skips ids only reserved by some other slot's old property.
func mergedClaimed(claimed, oldSlotIDs map[string]bool) map[string]bool {
	if len(oldSlotIDs) == 0 {
		return claimed
	}
	merged := make(map[string]bool, len(claimed)+len(oldSlotIDs))
	for id := range claimed {
		merged[id] = true
	}
	for id := range oldSlotIDs {
		merged[id] = true
	}
	return merged
}

func findByConfig(registry []RegistryComponent, comp domain.Component) string {
	for _, rc := range registry {
		if rc.FactoryID == comp.FactoryID && rc.Properties.Equal(comp.Properties) {
			return rc.ID
		}
	}
	return ""
}

func registryAllows(registry []RegistryComponent, id, factoryID string) bool {
	for _, rc := range registry {
		if rc.ID == id {
			return rc.FactoryID == factoryID
		}
	}
	return true
}

var trailingDigits = regexp.MustCompile(`\d+$`)

// nextAvailableID strips the base's trailing digits and increments from
// there until an unclaimed id is found, mirroring the "baseName<digits>"
// component ID convention (e.g. meter0, meter1, ...).
func nextAvailableID(base string, claimed map[string]bool) string {
	digits := trailingDigits.FindString(base)
	name := base[:len(base)-len(digits)]
	start := 0
	if digits != "" {
		if n, err := strconv.Atoi(digits); err == nil {
			start = n
		}
	}
	for n := start; ; n++ {
		candidate := fmt.Sprintf("%s%d", name, n)
		if !claimed[candidate] {
			return candidate
		}
	}
}
