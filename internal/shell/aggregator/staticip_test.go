package aggregator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

type recordingConfigurer struct {
	applied []domain.InterfaceConfiguration
	calls   int
}

func (c *recordingConfigurer) Apply(_ context.Context, interfaces []domain.InterfaceConfiguration) error {
	c.calls++
	c.applied = interfaces
	return nil
}

func TestStaticIpAggregator_CommitRequiresMatchingToken(t *testing.T) {
	hash, err := HashToken("correct-token")
	require.NoError(t, err)

	configurer := &recordingConfigurer{}
	agg := NewStaticIpAggregator(configurer, hash)
	ctx := context.Background()

	require.NoError(t, agg.Reset(ctx))
	require.NoError(t, agg.Aggregate(ctx, &domain.AppConfiguration{
		Ips: []domain.InterfaceConfiguration{{Name: "eth0", IP: "192.168.1.10/24"}},
	}, nil))

	err = agg.Commit(ctx, "wrong-token", nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, configurer.calls)

	err = agg.Commit(ctx, "correct-token", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, configurer.calls)
	require.Len(t, configurer.applied, 1)
	assert.Equal(t, "eth0", configurer.applied[0].Name)
}

func TestStaticIpAggregator_NoOpWhenNoInterfacesAggregated(t *testing.T) {
	hash, err := HashToken("token")
	require.NoError(t, err)

	configurer := &recordingConfigurer{}
	agg := NewStaticIpAggregator(configurer, hash)
	ctx := context.Background()

	require.NoError(t, agg.Reset(ctx))
	require.NoError(t, agg.Commit(ctx, "anything-at-all", nil))
	assert.Equal(t, 0, configurer.calls)
}

func TestStaticIpAggregator_CommitMergesOtherAppConfigsIntoFullTable(t *testing.T) {
	hash, err := HashToken("token")
	require.NoError(t, err)

	configurer := &recordingConfigurer{}
	agg := NewStaticIpAggregator(configurer, hash)
	ctx := context.Background()

	require.NoError(t, agg.Reset(ctx))
	require.NoError(t, agg.Aggregate(ctx, &domain.AppConfiguration{
		Ips: []domain.InterfaceConfiguration{{Name: "eth1", IP: "10.0.0.1/24"}},
	}, nil))

	others := []domain.AppConfiguration{{
		Ips: []domain.InterfaceConfiguration{{Name: "eth2", IP: "10.0.0.2/24"}},
	}}

	require.NoError(t, agg.Commit(ctx, "token", others))
	require.Len(t, configurer.applied, 2)

	names := map[string]bool{}
	for _, iface := range configurer.applied {
		names[iface.Name] = true
	}
	assert.True(t, names["eth1"])
	assert.True(t, names["eth2"])
}

func TestStaticIpAggregator_CommitPrefersItsOwnChangeOverOthersForSameInterface(t *testing.T) {
	hash, err := HashToken("token")
	require.NoError(t, err)

	configurer := &recordingConfigurer{}
	agg := NewStaticIpAggregator(configurer, hash)
	ctx := context.Background()

	require.NoError(t, agg.Reset(ctx))
	require.NoError(t, agg.Aggregate(ctx, &domain.AppConfiguration{
		Ips: []domain.InterfaceConfiguration{{Name: "eth1", IP: "192.168.1.99/24"}},
	}, nil))

	others := []domain.AppConfiguration{{
		Ips: []domain.InterfaceConfiguration{{Name: "eth1", IP: "10.0.0.1/24"}},
	}}

	require.NoError(t, agg.Commit(ctx, "token", others))
	require.Len(t, configurer.applied, 1)
	assert.Equal(t, "192.168.1.99/24", configurer.applied[0].IP)
}

func TestStaticIpAggregator_NoOpIgnoresOthersWhenNothingTouched(t *testing.T) {
	hash, err := HashToken("token")
	require.NoError(t, err)

	configurer := &recordingConfigurer{}
	agg := NewStaticIpAggregator(configurer, hash)
	ctx := context.Background()

	require.NoError(t, agg.Reset(ctx))
	others := []domain.AppConfiguration{{
		Ips: []domain.InterfaceConfiguration{{Name: "eth2", IP: "10.0.0.2/24"}},
	}}
	require.NoError(t, agg.Commit(ctx, "anything-at-all", others))
	assert.Equal(t, 0, configurer.calls)
}

func TestStaticIpAggregator_RemovalClearsInterface(t *testing.T) {
	hash, err := HashToken("token")
	require.NoError(t, err)

	configurer := &recordingConfigurer{}
	agg := NewStaticIpAggregator(configurer, hash)
	ctx := context.Background()

	require.NoError(t, agg.Reset(ctx))
	oldConfig := &domain.AppConfiguration{Ips: []domain.InterfaceConfiguration{{Name: "eth0", IP: "192.168.1.10/24"}}}
	require.NoError(t, agg.Aggregate(ctx, &domain.AppConfiguration{}, oldConfig))
	require.NoError(t, agg.Commit(ctx, "token", nil))
	assert.Equal(t, 0, configurer.calls)
}
