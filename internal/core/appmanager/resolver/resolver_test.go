package resolver

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/graph"
)

func TestChooseAlternative_SingleAlternative(t *testing.T) {
	decl := domain.DependencyDeclaration{AppConfigs: []domain.AppDependencyConfig{{AppID: "App.Ess.Generic"}}}
	alt := ChooseAlternative(decl, nil)
	assert.Equal(t, "App.Ess.Generic", alt.AppID)
}

func TestChooseAlternative_PrefersLonelyInstance(t *testing.T) {
	lonely := domain.AppInstance{InstanceID: uuid.New(), AppID: "App.Ess.Generic"}
	owned := domain.AppInstance{InstanceID: uuid.New(), AppID: "App.Ess.FixActivePower"}
	owner := domain.AppInstance{InstanceID: uuid.New(), Dependencies: []domain.Dependency{{InstanceID: owned.InstanceID}}}

	decl := domain.DependencyDeclaration{AppConfigs: []domain.AppDependencyConfig{
		{AppID: "App.Ess.FixActivePower"},
		{AppID: "App.Ess.Generic"},
	}}

	alt := ChooseAlternative(decl, []domain.AppInstance{lonely, owned, owner})
	assert.Equal(t, "App.Ess.Generic", alt.AppID)
}

func TestChooseAlternative_FallsBackToFirstWhenNothingLonely(t *testing.T) {
	owned := domain.AppInstance{InstanceID: uuid.New(), AppID: "App.Ess.Generic"}
	owner := domain.AppInstance{InstanceID: uuid.New(), Dependencies: []domain.Dependency{{InstanceID: owned.InstanceID}}}

	decl := domain.DependencyDeclaration{AppConfigs: []domain.AppDependencyConfig{
		{AppID: "App.Ess.FixActivePower"},
		{AppID: "App.Ess.Generic"},
	}}

	alt := ChooseAlternative(decl, []domain.AppInstance{owned, owner})
	assert.Equal(t, "App.Ess.FixActivePower", alt.AppID)
}

func TestFindNeededApp_SpecificInstanceFound(t *testing.T) {
	id := uuid.New()
	live := []domain.AppInstance{{InstanceID: id, AppID: "App.Ess.Generic"}}
	alt := domain.AppDependencyConfig{SpecificInstanceID: &id}

	outcome := FindNeededApp(alt, domain.DependencyDeclaration{}, live)
	require := assert.New(t)
	require.NotNil(outcome.ExistingID)
	require.Equal(id, *outcome.ExistingID)
	require.False(outcome.CreateNeeded)
}

func TestFindNeededApp_SpecificInstanceMissing(t *testing.T) {
	id := uuid.New()
	alt := domain.AppDependencyConfig{SpecificInstanceID: &id}

	outcome := FindNeededApp(alt, domain.DependencyDeclaration{}, nil)
	assert.Nil(t, outcome.ExistingID)
	assert.False(t, outcome.CreateNeeded)
}

func TestFindNeededApp_CreateAlwaysReusesUnownedInstance(t *testing.T) {
	unowned := domain.AppInstance{InstanceID: uuid.New(), AppID: "App.Ess.Generic"}
	alt := domain.AppDependencyConfig{AppID: "App.Ess.Generic"}
	decl := domain.DependencyDeclaration{CreatePolicy: domain.CreateAlways}

	outcome := FindNeededApp(alt, decl, []domain.AppInstance{unowned})
	require := assert.New(t)
	require.NotNil(outcome.ExistingID)
	require.Equal(unowned.InstanceID, *outcome.ExistingID)
}

func TestFindNeededApp_CreateAlwaysNeedsCreateWhenAllOwned(t *testing.T) {
	owned := domain.AppInstance{InstanceID: uuid.New(), AppID: "App.Ess.Generic"}
	owner := domain.AppInstance{InstanceID: uuid.New(), Dependencies: []domain.Dependency{{InstanceID: owned.InstanceID}}}
	alt := domain.AppDependencyConfig{AppID: "App.Ess.Generic"}
	decl := domain.DependencyDeclaration{CreatePolicy: domain.CreateAlways}

	outcome := FindNeededApp(alt, decl, []domain.AppInstance{owned, owner})
	assert.True(t, outcome.CreateNeeded)
	assert.Nil(t, outcome.ExistingID)
}

func TestFindNeededApp_IfNotExistingReusesAnyMatch(t *testing.T) {
	existing := domain.AppInstance{InstanceID: uuid.New(), AppID: "App.Ess.Generic"}
	alt := domain.AppDependencyConfig{AppID: "App.Ess.Generic"}
	decl := domain.DependencyDeclaration{CreatePolicy: domain.CreateIfNotExisting}

	outcome := FindNeededApp(alt, decl, []domain.AppInstance{existing})
	require := assert.New(t)
	require.NotNil(outcome.ExistingID)
	require.Equal(existing.InstanceID, *outcome.ExistingID)
}

func TestFindNeededApp_IfNotExistingCreatesWhenNoneExists(t *testing.T) {
	alt := domain.AppDependencyConfig{AppID: "App.Ess.Generic"}
	decl := domain.DependencyDeclaration{CreatePolicy: domain.CreateIfNotExisting}

	outcome := FindNeededApp(alt, decl, nil)
	assert.True(t, outcome.CreateNeeded)
}

func TestFindNeededApp_NeverSkipsWhenNoneExists(t *testing.T) {
	alt := domain.AppDependencyConfig{AppID: "App.Ess.Generic"}
	decl := domain.DependencyDeclaration{CreatePolicy: domain.CreateNever}

	outcome := FindNeededApp(alt, decl, nil)
	assert.False(t, outcome.CreateNeeded)
	assert.Nil(t, outcome.ExistingID)
}

func TestResolveEdge_ReusesExistingAsIncludeOnlyApp(t *testing.T) {
	existing := domain.AppInstance{InstanceID: uuid.New(), AppID: "App.Ess.Generic"}
	decl := domain.DependencyDeclaration{
		CreatePolicy: domain.CreateIfNotExisting,
		AppConfigs:   []domain.AppDependencyConfig{{AppID: "App.Ess.Generic"}},
	}

	decision := ResolveEdge(decl, []domain.AppInstance{existing}, map[uuid.UUID]bool{})
	assert.Equal(t, graph.IncludeOnlyApp, decision.Inclusion)
	require := assert.New(t)
	require.NotNil(decision.ExistingID)
	require.Equal(existing.InstanceID, *decision.ExistingID)
}

func TestResolveEdge_ClaimedInstanceIsNotIncluded(t *testing.T) {
	existing := domain.AppInstance{InstanceID: uuid.New(), AppID: "App.Ess.Generic"}
	decl := domain.DependencyDeclaration{
		CreatePolicy: domain.CreateIfNotExisting,
		AppConfigs:   []domain.AppDependencyConfig{{AppID: "App.Ess.Generic"}},
	}

	claimed := map[uuid.UUID]bool{existing.InstanceID: true}
	decision := ResolveEdge(decl, []domain.AppInstance{existing}, claimed)
	assert.Equal(t, graph.NotIncluded, decision.Inclusion)
}

func TestResolveEdge_CreateNeededIncludesWithDependencies(t *testing.T) {
	decl := domain.DependencyDeclaration{
		CreatePolicy: domain.CreateIfNotExisting,
		AppConfigs:   []domain.AppDependencyConfig{{AppID: "App.Ess.Generic"}},
	}

	decision := ResolveEdge(decl, nil, map[uuid.UUID]bool{})
	assert.Equal(t, graph.IncludeWithDependencies, decision.Inclusion)
}

func TestChooseDependent_PrefersLonely(t *testing.T) {
	a := DependentSlot{ParentInstanceID: uuid.New(), DeclarationKey: "ESS", CreatePolicy: domain.CreateAlways}
	b := DependentSlot{ParentInstanceID: uuid.New(), DeclarationKey: "ESS", CreatePolicy: domain.CreateAlways, Lonely: true}

	chosen, ok := ChooseDependent([]DependentSlot{a, b})
	assert.True(t, ok)
	assert.True(t, chosen.Lonely)
}

func TestChooseDependent_FallsBackToFirstAlwaysPolicy(t *testing.T) {
	a := DependentSlot{ParentInstanceID: uuid.New(), DeclarationKey: "B", CreatePolicy: domain.CreateAlways}
	b := DependentSlot{ParentInstanceID: uuid.New(), DeclarationKey: "A", CreatePolicy: domain.CreateAlways}

	chosen, ok := ChooseDependent([]DependentSlot{a, b})
	assert.True(t, ok)
	assert.Equal(t, "A", chosen.DeclarationKey)
}

func TestChooseDependent_EmptyReturnsFalse(t *testing.T) {
	_, ok := ChooseDependent(nil)
	assert.False(t, ok)
}

func TestChooseDependent_NoneEligibleReturnsFalse(t *testing.T) {
	slots := []DependentSlot{{ParentInstanceID: uuid.New(), DeclarationKey: "ESS", CreatePolicy: domain.CreateIfNotExisting}}
	_, ok := ChooseDependent(slots)
	assert.False(t, ok)
}
