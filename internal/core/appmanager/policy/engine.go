package policy

import (
	"github.com/google/uuid"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

// LiveParentsOf returns every instance in live that holds a Dependency edge
// pointing at childID, in live's order.
func LiveParentsOf(live []domain.AppInstance, childID uuid.UUID) []domain.AppInstance {
	var parents []domain.AppInstance
	for _, candidate := range live {
		for _, dep := range candidate.Dependencies {
			if dep.InstanceID == childID {
				parents = append(parents, candidate)
				break
			}
		}
	}
	return parents
}

// IsOwned reports whether some instance in live already references
// instanceID - i.e. it is not a "lonely" candidate.
func IsOwned(live []domain.AppInstance, instanceID uuid.UUID) bool {
	return len(LiveParentsOf(live, instanceID)) > 0
}

// AllowedToCreate reports whether decl permits creating a fresh instance.
// ALWAYS always permits it. IF_NOT_EXISTING permits it only when no live
// instance of any offered alternative appId is currently unowned - an
// unowned instance should be reused instead of creating a new one.
func AllowedToCreate(decl domain.DependencyDeclaration, live []domain.AppInstance) bool {
	switch decl.CreatePolicy {
	case domain.CreateAlways:
		return true
	case domain.CreateIfNotExisting:
		for _, alt := range decl.AppConfigs {
			for _, candidate := range live {
				if candidate.AppID == alt.AppID && !IsOwned(live, candidate.InstanceID) {
					return false
				}
			}
		}
		return true
	default: // CreateNever
		return false
	}
}

// AllowedToUpdate reports whether parent may rewrite child's properties or
// alias under decl. IF_MINE requires parent to be child's only live referrer.
func AllowedToUpdate(decl domain.DependencyDeclaration, parent, child domain.AppInstance, live []domain.AppInstance) bool {
	switch decl.UpdatePolicy {
	case domain.UpdateAlways:
		return true
	case domain.UpdateIfMine:
		parents := LiveParentsOf(live, child.InstanceID)
		return len(parents) == 1 && parents[0].InstanceID == parent.InstanceID
	default: // UpdateNever
		return false
	}
}

// AllowedToDelete reports whether parent may cascade-delete child under
// decl. NEVER always forbids it; IF_MINE requires parent to be child's only
// *non-deleting* live referrer, mirroring AllowedToUpdate except that a
// referrer already confirmed into the same delete transaction no longer
// counts against child's survival. deleting may be nil, in which case no
// referrer is excluded.
func AllowedToDelete(decl domain.DependencyDeclaration, parent, child domain.AppInstance, live []domain.AppInstance, deleting func(uuid.UUID) bool) bool {
	switch decl.DeletePolicy {
	case domain.DeleteAlways:
		return true
	case domain.DeleteIfMine:
		parents := nonDeletingParentsOf(live, child.InstanceID, deleting)
		return len(parents) == 1 && parents[0].InstanceID == parent.InstanceID
	default: // DeleteNever
		return false
	}
}

// nonDeletingParentsOf is LiveParentsOf filtered to referrers deleting does
// not report as already confirmed for deletion in the caller's transaction.
func nonDeletingParentsOf(live []domain.AppInstance, childID uuid.UUID, deleting func(uuid.UUID) bool) []domain.AppInstance {
	parents := LiveParentsOf(live, childID)
	if deleting == nil {
		return parents
	}
	out := make([]domain.AppInstance, 0, len(parents))
	for _, p := range parents {
		if deleting(p.InstanceID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ChildMayOverride reports whether a child instance may itself set
// propertyName given the parent's declared override set parentValue.
func ChildMayOverride(decl domain.DependencyDeclaration, propertyName string, parentValue domain.Properties) bool {
	switch decl.DependencyUpdatePolicy {
	case domain.DependencyUpdateAllowAll:
		return true
	case domain.DependencyUpdateAllowOnlyUnconfiguredProperties:
		return !parentValue.Has(propertyName)
	default: // DependencyUpdateAllowNone
		return false
	}
}

// ParentMayDeleteChild reports whether decl permits the child to be deleted
// at all while the declaring parent exists.
func ParentMayDeleteChild(decl domain.DependencyDeclaration) bool {
	return decl.DependencyDeletePolicy != domain.DependencyDeleteNotAllowed
}
