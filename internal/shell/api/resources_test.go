package api

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

func TestFromDomain(t *testing.T) {
	instanceID := uuid.New()
	depID := uuid.New()

	props, err := domain.PropertiesFromMap(map[string]any{"POWER": 500})
	require.NoError(t, err)

	instance := domain.AppInstance{
		InstanceID:   instanceID,
		AppID:        "App.Test",
		Alias:        "My App",
		Properties:   props,
		Dependencies: []domain.Dependency{{Key: "ESS", InstanceID: depID}},
	}

	res := FromDomain(instance)
	assert.Equal(t, instanceID.String(), res.InstanceID)
	assert.Equal(t, "App.Test", res.AppID)
	assert.Equal(t, "My App", res.Alias)
	assert.Equal(t, float64(500), res.Properties["POWER"])
	require.Len(t, res.Dependencies, 1)
	assert.Equal(t, "ESS", res.Dependencies[0].Key)
	assert.Equal(t, depID.String(), res.Dependencies[0].InstanceID)
}

func TestAppInstanceResource_GetSetID(t *testing.T) {
	res := AppInstanceResource{}
	require.NoError(t, res.SetID("some-id"))
	assert.Equal(t, "some-id", res.GetID())
	assert.Equal(t, "app-instances", res.GetName())
	assert.Nil(t, res.GetReferences())
	assert.Nil(t, res.GetReferencedIDs())
	assert.Nil(t, res.GetReferencedStructs())
}
