package validator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

type fakeAppStore struct {
	instances []domain.AppInstance
}

func (s *fakeAppStore) GetAppByID(_ context.Context, _ string) (domain.App, error) {
	return nil, nil
}

func (s *fakeAppStore) GetInstanceByID(_ context.Context, _ uuid.UUID) (domain.AppInstance, bool, error) {
	return domain.AppInstance{}, false, nil
}

func (s *fakeAppStore) GetAppsWithDependencyTo(_ context.Context, _ uuid.UUID) ([]domain.AppInstance, error) {
	return nil, nil
}

func (s *fakeAppStore) AllInstances(_ context.Context) ([]domain.AppInstance, error) {
	return s.instances, nil
}

func (s *fakeAppStore) SaveInstance(_ context.Context, _ domain.AppInstance) error {
	return nil
}

func (s *fakeAppStore) DeleteInstance(_ context.Context, _ uuid.UUID) error {
	return nil
}

type fixedCounter int

func (c fixedCounter) CountInstalled(_ context.Context, _ string) (int, error) {
	return int(c), nil
}

func TestStatus_NoSchemaIsInstallable(t *testing.T) {
	v := New(StaticFacts{}, fixedCounter(0))
	status, err := v.Status(context.Background(), domain.ValidatorConfig{AppID: "App.Test"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInstallable, status)
}

func TestStatus_IncompatibleWhenFactsMismatch(t *testing.T) {
	v := New(StaticFacts{"hasBattery": false}, fixedCounter(0))
	cfg := domain.ValidatorConfig{
		AppID: "App.Test",
		Raw:   []byte(`{"compatibility":{"type":"object","required":["hasBattery"],"properties":{"hasBattery":{"enum":[true]}}}}`),
	}
	status, err := v.Status(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIncompatible, status)
}

func TestStatus_CompatibleButNotInstallable(t *testing.T) {
	v := New(StaticFacts{"hasBattery": true}, fixedCounter(5))
	cfg := domain.ValidatorConfig{
		AppID: "App.Test",
		Raw: []byte(`{
			"compatibility": {"type":"object","required":["hasBattery"],"properties":{"hasBattery":{"enum":[true]}}},
			"installability": {"type":"object","properties":{"installedCount":{"type":"integer","maximum":1}}}
		}`),
	}
	status, err := v.Status(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompatible, status)
}

func TestStatus_Installable(t *testing.T) {
	v := New(StaticFacts{"hasBattery": true}, fixedCounter(0))
	cfg := domain.ValidatorConfig{
		AppID: "App.Test",
		Raw: []byte(`{
			"compatibility": {"type":"object","required":["hasBattery"],"properties":{"hasBattery":{"enum":[true]}}},
			"installability": {"type":"object","properties":{"installedCount":{"type":"integer","maximum":1}}}
		}`),
	}
	status, err := v.Status(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInstallable, status)
}

func TestMessages_ReportsIncompatibility(t *testing.T) {
	v := New(StaticFacts{"hasBattery": false}, fixedCounter(0))
	cfg := domain.ValidatorConfig{
		AppID: "App.Test",
		Raw:   []byte(`{"compatibility":{"type":"object","required":["hasBattery"],"properties":{"hasBattery":{"enum":[true]}}}}`),
	}
	messages, err := v.Messages(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "App.Test")
}

func TestMessages_NoSchemaIsEmpty(t *testing.T) {
	v := New(StaticFacts{}, fixedCounter(0))
	messages, err := v.Messages(context.Background(), domain.ValidatorConfig{AppID: "App.Test"})
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestStoreInstanceCounter(t *testing.T) {
	store := &fakeAppStore{instances: []domain.AppInstance{
		{AppID: "App.A"},
		{AppID: "App.A"},
		{AppID: "App.B"},
	}}
	counter := StoreInstanceCounter{Store: store}
	count, err := counter.CountInstalled(context.Background(), "App.A")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
