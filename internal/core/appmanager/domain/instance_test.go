package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAppInstance_Equal(t *testing.T) {
	id := uuid.New()
	a := AppInstance{InstanceID: id, Alias: "a"}
	b := AppInstance{InstanceID: id, Alias: "b"}
	assert.True(t, a.Equal(b))

	c := AppInstance{InstanceID: uuid.New()}
	assert.False(t, a.Equal(c))
}

func TestAppInstance_DependencyByKey(t *testing.T) {
	depID := uuid.New()
	a := AppInstance{Dependencies: []Dependency{{Key: "ESS", InstanceID: depID}}}

	dep, ok := a.DependencyByKey("ESS")
	assert.True(t, ok)
	assert.Equal(t, depID, dep.InstanceID)

	_, ok = a.DependencyByKey("MISSING")
	assert.False(t, ok)
}

func TestAppInstance_WithDependencies_DoesNotMutateOriginal(t *testing.T) {
	a := AppInstance{Dependencies: []Dependency{{Key: "A"}}}
	next := a.WithDependencies([]Dependency{{Key: "B"}})

	assert.Len(t, a.Dependencies, 1)
	assert.Equal(t, "A", a.Dependencies[0].Key)
	assert.Len(t, next.Dependencies, 1)
	assert.Equal(t, "B", next.Dependencies[0].Key)
}

func TestAppInstance_WithProperties(t *testing.T) {
	a := AppInstance{Properties: NewProperties()}
	props, _ := NewProperties().Set("k", "v")
	next := a.WithProperties(props)

	assert.Equal(t, 0, a.Properties.Len())
	assert.Equal(t, 1, next.Properties.Len())
}

func TestAppInstance_WithAlias(t *testing.T) {
	a := AppInstance{Alias: "old"}
	next := a.WithAlias("new")
	assert.Equal(t, "old", a.Alias)
	assert.Equal(t, "new", next.Alias)
}

func TestAppDependencyConfig_IsSpecific(t *testing.T) {
	id := uuid.New()
	specific := AppDependencyConfig{SpecificInstanceID: &id}
	assert.True(t, specific.IsSpecific())

	generic := AppDependencyConfig{AppID: "App.Ess.Generic"}
	assert.False(t, generic.IsSpecific())
}

func TestAppConfiguration_DependencyByKey(t *testing.T) {
	cfg := AppConfiguration{Dependencies: []DependencyDeclaration{{Key: "ESS"}}}

	decl, ok := cfg.DependencyByKey("ESS")
	assert.True(t, ok)
	assert.Equal(t, "ESS", decl.Key)

	_, ok = cfg.DependencyByKey("MISSING")
	assert.False(t, ok)
}
