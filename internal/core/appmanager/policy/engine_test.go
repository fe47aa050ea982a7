package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

func TestLiveParentsOf(t *testing.T) {
	child := uuid.New()
	parentA := domain.AppInstance{InstanceID: uuid.New(), Dependencies: []domain.Dependency{{Key: "ESS", InstanceID: child}}}
	parentB := domain.AppInstance{InstanceID: uuid.New()}

	parents := LiveParentsOf([]domain.AppInstance{parentA, parentB}, child)
	assert.Len(t, parents, 1)
	assert.Equal(t, parentA.InstanceID, parents[0].InstanceID)
}

func TestIsOwned(t *testing.T) {
	child := uuid.New()
	parent := domain.AppInstance{InstanceID: uuid.New(), Dependencies: []domain.Dependency{{InstanceID: child}}}
	live := []domain.AppInstance{parent}

	assert.True(t, IsOwned(live, child))
	assert.False(t, IsOwned(live, uuid.New()))
}

func TestAllowedToCreate_Always(t *testing.T) {
	decl := domain.DependencyDeclaration{CreatePolicy: domain.CreateAlways}
	assert.True(t, AllowedToCreate(decl, nil))
}

func TestAllowedToCreate_Never(t *testing.T) {
	decl := domain.DependencyDeclaration{CreatePolicy: domain.CreateNever}
	assert.False(t, AllowedToCreate(decl, nil))
}

func TestAllowedToCreate_IfNotExisting_BlocksWhenUnownedInstanceAvailable(t *testing.T) {
	unowned := domain.AppInstance{InstanceID: uuid.New(), AppID: "App.Ess.Generic"}
	decl := domain.DependencyDeclaration{
		CreatePolicy: domain.CreateIfNotExisting,
		AppConfigs:   []domain.AppDependencyConfig{{AppID: "App.Ess.Generic"}},
	}
	assert.False(t, AllowedToCreate(decl, []domain.AppInstance{unowned}))
}

func TestAllowedToCreate_IfNotExisting_AllowsWhenAllInstancesOwned(t *testing.T) {
	owned := domain.AppInstance{InstanceID: uuid.New(), AppID: "App.Ess.Generic"}
	owner := domain.AppInstance{InstanceID: uuid.New(), Dependencies: []domain.Dependency{{InstanceID: owned.InstanceID}}}
	decl := domain.DependencyDeclaration{
		CreatePolicy: domain.CreateIfNotExisting,
		AppConfigs:   []domain.AppDependencyConfig{{AppID: "App.Ess.Generic"}},
	}
	assert.True(t, AllowedToCreate(decl, []domain.AppInstance{owned, owner}))
}

func TestAllowedToUpdate_Always(t *testing.T) {
	decl := domain.DependencyDeclaration{UpdatePolicy: domain.UpdateAlways}
	assert.True(t, AllowedToUpdate(decl, domain.AppInstance{}, domain.AppInstance{}, nil))
}

func TestAllowedToUpdate_Never(t *testing.T) {
	decl := domain.DependencyDeclaration{UpdatePolicy: domain.UpdateNever}
	assert.False(t, AllowedToUpdate(decl, domain.AppInstance{}, domain.AppInstance{}, nil))
}

func TestAllowedToUpdate_IfMine(t *testing.T) {
	child := domain.AppInstance{InstanceID: uuid.New()}
	parent := domain.AppInstance{InstanceID: uuid.New(), Dependencies: []domain.Dependency{{InstanceID: child.InstanceID}}}
	otherParent := domain.AppInstance{InstanceID: uuid.New(), Dependencies: []domain.Dependency{{InstanceID: child.InstanceID}}}

	decl := domain.DependencyDeclaration{UpdatePolicy: domain.UpdateIfMine}

	assert.True(t, AllowedToUpdate(decl, parent, child, []domain.AppInstance{parent}))
	assert.False(t, AllowedToUpdate(decl, parent, child, []domain.AppInstance{parent, otherParent}))
}

func TestAllowedToDelete_IfMine(t *testing.T) {
	child := domain.AppInstance{InstanceID: uuid.New()}
	parent := domain.AppInstance{InstanceID: uuid.New(), Dependencies: []domain.Dependency{{InstanceID: child.InstanceID}}}
	otherParent := domain.AppInstance{InstanceID: uuid.New(), Dependencies: []domain.Dependency{{InstanceID: child.InstanceID}}}

	decl := domain.DependencyDeclaration{DeletePolicy: domain.DeleteIfMine}

	assert.True(t, AllowedToDelete(decl, parent, child, []domain.AppInstance{parent}, nil))
	assert.False(t, AllowedToDelete(decl, parent, child, []domain.AppInstance{parent, otherParent}, nil))
}

func TestAllowedToDelete_Never(t *testing.T) {
	decl := domain.DependencyDeclaration{DeletePolicy: domain.DeleteNever}
	assert.False(t, AllowedToDelete(decl, domain.AppInstance{}, domain.AppInstance{}, nil, nil))
}

func TestAllowedToDelete_IfMine_IgnoresReferrersAlreadyDeleting(t *testing.T) {
	child := domain.AppInstance{InstanceID: uuid.New()}
	parent := domain.AppInstance{InstanceID: uuid.New(), Dependencies: []domain.Dependency{{InstanceID: child.InstanceID}}}
	otherParent := domain.AppInstance{InstanceID: uuid.New(), Dependencies: []domain.Dependency{{InstanceID: child.InstanceID}}}

	decl := domain.DependencyDeclaration{DeletePolicy: domain.DeleteIfMine}
	live := []domain.AppInstance{parent, otherParent}

	deleting := func(id uuid.UUID) bool { return id == otherParent.InstanceID }
	assert.True(t, AllowedToDelete(decl, parent, child, live, deleting))
}

func TestChildMayOverride(t *testing.T) {
	parentValue := domain.NewProperties()
	parentValue, _ = parentValue.Set("POWER", 500)

	allowAll := domain.DependencyDeclaration{DependencyUpdatePolicy: domain.DependencyUpdateAllowAll}
	assert.True(t, ChildMayOverride(allowAll, "POWER", parentValue))

	allowUnconfigured := domain.DependencyDeclaration{DependencyUpdatePolicy: domain.DependencyUpdateAllowOnlyUnconfiguredProperties}
	assert.False(t, ChildMayOverride(allowUnconfigured, "POWER", parentValue))
	assert.True(t, ChildMayOverride(allowUnconfigured, "MODE", parentValue))

	allowNone := domain.DependencyDeclaration{DependencyUpdatePolicy: domain.DependencyUpdateAllowNone}
	assert.False(t, ChildMayOverride(allowNone, "MODE", parentValue))
}

func TestParentMayDeleteChild(t *testing.T) {
	allowed := domain.DependencyDeclaration{DependencyDeletePolicy: domain.DependencyDeleteAllowed}
	assert.True(t, ParentMayDeleteChild(allowed))

	notAllowed := domain.DependencyDeclaration{DependencyDeletePolicy: domain.DependencyDeleteNotAllowed}
	assert.False(t, ParentMayDeleteChild(notAllowed))
}
