package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties_SetAndGet(t *testing.T) {
	p := NewProperties()
	p, err := p.Set("power", 500)
	require.NoError(t, err)

	raw, ok := p.Get("power")
	require.True(t, ok)
	assert.JSONEq(t, "500", string(raw))

	_, ok = p.Get("missing")
	assert.False(t, ok)
}

func TestProperties_GetString(t *testing.T) {
	p := NewProperties()
	p, err := p.Set("alias", "My App")
	require.NoError(t, err)

	s, ok := p.GetString("alias")
	require.True(t, ok)
	assert.Equal(t, "My App", s)

	_, ok = p.GetString("missing")
	assert.False(t, ok)
}

func TestProperties_SetIsImmutable(t *testing.T) {
	original := NewProperties()
	updated, err := original.Set("k", "v")
	require.NoError(t, err)

	assert.Equal(t, 0, original.Len())
	assert.Equal(t, 1, updated.Len())
}

func TestProperties_KeysPreservesDeclarationOrder(t *testing.T) {
	p := NewProperties()
	p, _ = p.Set("b", 1)
	p, _ = p.Set("a", 2)
	p, _ = p.Set("c", 3)

	assert.Equal(t, []string{"b", "a", "c"}, p.Keys())
}

func TestProperties_SetOverwriteKeepsOrder(t *testing.T) {
	p := NewProperties()
	p, _ = p.Set("a", 1)
	p, _ = p.Set("b", 2)
	p, _ = p.Set("a", 99)

	assert.Equal(t, []string{"a", "b"}, p.Keys())
	v, _ := p.Get("a")
	assert.JSONEq(t, "99", string(v))
}

func TestProperties_Remove(t *testing.T) {
	p := NewProperties()
	p, _ = p.Set("a", 1)
	p, _ = p.Set("b", 2)

	p = p.Remove("a")
	assert.False(t, p.Has("a"))
	assert.Equal(t, []string{"b"}, p.Keys())
}

func TestProperties_Remove_MissingKeyIsNoOp(t *testing.T) {
	p := NewProperties()
	p, _ = p.Set("a", 1)

	p = p.Remove("nonexistent")
	assert.Equal(t, []string{"a"}, p.Keys())
}

func TestProperties_Clone_IsIndependent(t *testing.T) {
	p := NewProperties()
	p, _ = p.Set("a", 1)

	clone := p.Clone()
	clone, _ = clone.Set("b", 2)

	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestProperties_MergeOverride(t *testing.T) {
	base := NewProperties()
	base, _ = base.Set("a", 1)
	base, _ = base.Set("b", 2)

	override := NewProperties()
	override, _ = override.Set("b", 99)
	override, _ = override.Set("c", 3)

	merged := base.MergeOverride(override)
	assert.Equal(t, []string{"a", "b", "c"}, merged.Keys())

	v, _ := merged.Get("b")
	assert.JSONEq(t, "99", string(v))
}

func TestProperties_Equal(t *testing.T) {
	a := NewProperties()
	a, _ = a.Set("x", 1)
	a, _ = a.Set("y", "hello")

	b := NewProperties()
	b, _ = b.Set("y", "hello")
	b, _ = b.Set("x", 1)

	assert.True(t, a.Equal(b))

	c := NewProperties()
	c, _ = c.Set("x", 2)
	assert.False(t, a.Equal(c))
}

func TestProperties_MarshalUnmarshalRoundTrip(t *testing.T) {
	p := NewProperties()
	p, _ = p.Set("a", 1)
	p, _ = p.Set("b", "two")

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded Properties
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.True(t, p.Equal(decoded))
}

func TestPropertiesFromMap(t *testing.T) {
	p, err := PropertiesFromMap(map[string]any{"a": 1, "b": "two"})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())

	v, ok := p.GetString("b")
	require.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestPropertiesFromMap_Nil(t *testing.T) {
	p, err := PropertiesFromMap(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())
}
