package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/ports"
)

func setupTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestPutAndGetComponent(t *testing.T) {
	reg := setupTestRegistry(t)
	ctx := context.Background()

	props, err := domain.NewProperties().Set("power", 500)
	require.NoError(t, err)

	comp := ports.RegistryComponent{ID: "ctrlTest0", FactoryID: "Controller.Test", Alias: "Test", Properties: props}
	require.NoError(t, reg.Put(ctx, comp))

	got, found, err := reg.GetComponent(ctx, "ctrlTest0")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, comp.FactoryID, got.FactoryID)
	assert.Equal(t, comp.Alias, got.Alias)
	assert.True(t, comp.Properties.Equal(got.Properties))
}

func TestGetComponent_NotFound(t *testing.T) {
	reg := setupTestRegistry(t)
	_, found, err := reg.GetComponent(context.Background(), "missing0")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPut_UpsertsOnConflict(t *testing.T) {
	reg := setupTestRegistry(t)
	ctx := context.Background()

	comp := ports.RegistryComponent{ID: "ctrlTest0", FactoryID: "Controller.Test", Alias: "first"}
	require.NoError(t, reg.Put(ctx, comp))

	comp.Alias = "second"
	require.NoError(t, reg.Put(ctx, comp))

	got, found, err := reg.GetComponent(ctx, "ctrlTest0")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", got.Alias)

	all, err := reg.AllComponents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetComponentByConfig(t *testing.T) {
	reg := setupTestRegistry(t)
	ctx := context.Background()

	props, _ := domain.NewProperties().Set("modbus.id", "modbus0")
	comp := ports.RegistryComponent{ID: "pvInverter0", FactoryID: "PV-Inverter.Single", Properties: props}
	require.NoError(t, reg.Put(ctx, comp))

	got, found, err := reg.GetComponentByConfig(ctx, "PV-Inverter.Single", props)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "pvInverter0", got.ID)

	otherProps, _ := domain.NewProperties().Set("modbus.id", "modbus1")
	_, found, err = reg.GetComponentByConfig(ctx, "PV-Inverter.Single", otherProps)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	reg := setupTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, ports.RegistryComponent{ID: "ctrlTest0", FactoryID: "Controller.Test"}))
	require.NoError(t, reg.Delete(ctx, "ctrlTest0"))

	_, found, err := reg.GetComponent(ctx, "ctrlTest0")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteByPrefix(t *testing.T) {
	reg := setupTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, ports.RegistryComponent{ID: "app0ess0", FactoryID: "Ess.Generic"}))
	require.NoError(t, reg.Put(ctx, ports.RegistryComponent{ID: "app0ctrl0", FactoryID: "Controller.Test"}))
	require.NoError(t, reg.Put(ctx, ports.RegistryComponent{ID: "app1ess0", FactoryID: "Ess.Generic"}))

	require.NoError(t, reg.DeleteByPrefix(ctx, "app0"))

	all, err := reg.AllComponents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "app1ess0", all[0].ID)
}

func TestNextAvailableID(t *testing.T) {
	reg := setupTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, ports.RegistryComponent{ID: "ctrlTest0", FactoryID: "Controller.Test"}))
	require.NoError(t, reg.Put(ctx, ports.RegistryComponent{ID: "ctrlTest1", FactoryID: "Controller.Test"}))

	id, err := reg.NextAvailableID(ctx, "ctrlTest", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "ctrlTest2", id)
}

func TestNextAvailableID_RespectsClaimed(t *testing.T) {
	reg := setupTestRegistry(t)
	ctx := context.Background()

	id, err := reg.NextAvailableID(ctx, "ctrlTest", 0, []string{"ctrlTest0", "ctrlTest1"})
	require.NoError(t, err)
	assert.Equal(t, "ctrlTest2", id)
}
