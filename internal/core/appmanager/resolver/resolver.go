package resolver

import (
	"sort"

	"github.com/google/uuid"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/graph"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/policy"
)

// ChooseAlternative picks one AppDependencyConfig from decl. With a single
// alternative it is used outright; otherwise the first alternative whose
// appId has a live, unowned ("lonely") instance wins, since reusing a lonely
// instance is the most reuse-friendly choice. Declaration order is the
// tie-break when nothing is lonely.
func ChooseAlternative(decl domain.DependencyDeclaration, live []domain.AppInstance) domain.AppDependencyConfig {
	if len(decl.AppConfigs) == 1 {
		return decl.AppConfigs[0]
	}
	for _, alt := range decl.AppConfigs {
		for _, candidate := range live {
			if candidate.AppID == alt.AppID && !policy.IsOwned(live, candidate.InstanceID) {
				return alt
			}
		}
	}
	return decl.AppConfigs[0]
}

// ReuseOutcome is the result of searching the live set for an instance that
// can satisfy one chosen alternative.
type ReuseOutcome struct {
	ExistingID   *uuid.UUID
	CreateNeeded bool
}

// FindNeededApp implements the reuse search for one chosen alternative.
func FindNeededApp(alt domain.AppDependencyConfig, decl domain.DependencyDeclaration, live []domain.AppInstance) ReuseOutcome {
	if alt.IsSpecific() {
		id := *alt.SpecificInstanceID
		for _, candidate := range live {
			if candidate.InstanceID == id {
				found := id
				return ReuseOutcome{ExistingID: &found}
			}
		}
		return ReuseOutcome{}
	}

	if decl.CreatePolicy == domain.CreateAlways {
		for _, candidate := range live {
			if candidate.AppID == alt.AppID && !policy.IsOwned(live, candidate.InstanceID) {
				found := candidate.InstanceID
				return ReuseOutcome{ExistingID: &found}
			}
		}
		return ReuseOutcome{CreateNeeded: true}
	}

	for _, candidate := range live {
		if candidate.AppID == alt.AppID {
			found := candidate.InstanceID
			return ReuseOutcome{ExistingID: &found}
		}
	}
	if decl.CreatePolicy == domain.CreateIfNotExisting {
		return ReuseOutcome{CreateNeeded: true}
	}
	return ReuseOutcome{}
}

// ResolveEdge combines ChooseAlternative and FindNeededApp into the
// inclusion verdict for one declaration, honoring claimed (instances already
// promised to another edge earlier in the same walk, to avoid double
// counting a shared dependency).
func ResolveEdge(decl domain.DependencyDeclaration, live []domain.AppInstance, claimed map[uuid.UUID]bool) graph.IncludeEdgeDecision {
	alt := ChooseAlternative(decl, live)
	outcome := FindNeededApp(alt, decl, live)

	switch {
	case outcome.ExistingID != nil:
		if claimed[*outcome.ExistingID] {
			return graph.IncludeEdgeDecision{Inclusion: graph.NotIncluded}
		}
		return graph.IncludeEdgeDecision{
			Inclusion:   graph.IncludeOnlyApp,
			Alternative: alt,
			ExistingID:  outcome.ExistingID,
		}
	case outcome.CreateNeeded:
		return graph.IncludeEdgeDecision{
			Inclusion:   graph.IncludeWithDependencies,
			Alternative: alt,
		}
	default:
		return graph.IncludeEdgeDecision{Inclusion: graph.NotIncluded}
	}
}

// DependentSlot is one existing instance's unsatisfied dependency slot that
// is compatible with a freshly created child - a candidate for the
// ALWAYS-create sibling fallback below.
type DependentSlot struct {
	ParentInstanceID uuid.UUID
	DeclarationKey   string
	CreatePolicy     domain.CreatePolicy
	Lonely           bool
}

// ChooseDependent picks at most one slot to satisfy with a freshly created
// child, when several existing instances declare a compatible unsatisfied
// dependency. Candidates are sorted by (declarationKey, parentInstanceId) so
// the choice is deterministic, then a lonely candidate wins; failing that,
// the first ALWAYS-policy candidate wins.
func ChooseDependent(slots []DependentSlot) (DependentSlot, bool) {
	if len(slots) == 0 {
		return DependentSlot{}, false
	}
	sorted := append([]DependentSlot{}, slots...)
	sort.Slice(sorted, func(i, j int) bool { return slotLess(sorted[i], sorted[j]) })

	for _, s := range sorted {
		if s.Lonely {
			return s, true
		}
	}
	for _, s := range sorted {
		if s.CreatePolicy == domain.CreateAlways {
			return s, true
		}
	}
	return DependentSlot{}, false
}

func slotLess(a, b DependentSlot) bool {
	if a.DeclarationKey != b.DeclarationKey {
		return a.DeclarationKey < b.DeclarationKey
	}
	return a.ParentInstanceID.String() < b.ParentInstanceID.String()
}
