package mmu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeTimeout(t *testing.T) {
	settings := newMemSettings()
	bridge := NewBridge(settings)

	assert.Equal(t, DefaultTimeout, bridge.Timeout(), "missing key falls back to default")

	settings.Set(KeyTimeout, 45)
	assert.Equal(t, 45, bridge.Timeout())

	settings.Set(KeyTimeout, float64(10)) // JSON numbers decode as float64
	assert.Equal(t, 10, bridge.Timeout())

	settings.Set(KeyTimeout, "25")
	assert.Equal(t, 25, bridge.Timeout())

	settings.Set(KeyTimeout, -5)
	assert.Equal(t, DefaultTimeout, bridge.Timeout(), "negative falls back to default")

	settings.Set(KeyTimeout, "soon")
	assert.Equal(t, DefaultTimeout, bridge.Timeout(), "garbage falls back to default")

	settings.Set(KeyTimeout, 0)
	assert.Equal(t, 0, bridge.Timeout(), "zero is a valid timeout")
}

func TestBridgeDefaultFilament(t *testing.T) {
	settings := newMemSettings()
	bridge := NewBridge(settings)

	assert.Equal(t, -1, bridge.DefaultFilament(), "disabled by default")

	settings.Set(KeyUseDefaultFilament, true)
	settings.Set(KeyDefaultFilament, 2)
	assert.Equal(t, 2, bridge.DefaultFilament())

	settings.Set(KeyDefaultFilament, 7)
	assert.Equal(t, -1, bridge.DefaultFilament(), "out of range is no default")

	settings.Set(KeyUseDefaultFilament, false)
	settings.Set(KeyDefaultFilament, 2)
	assert.Equal(t, -1, bridge.DefaultFilament(), "toggle off wins")
}

func TestBridgeApplyConfigNormalization(t *testing.T) {
	settings := newMemSettings()
	bridge := NewBridge(settings)

	require.NoError(t, bridge.ApplyConfig(map[string]interface{}{
		KeyTimeout:            float64(-3),
		KeyUseDefaultFilament: true,
		KeyDefaultFilament:    float64(-2),
	}))

	v, _ := settings.Get(KeyTimeout)
	assert.Equal(t, DefaultTimeout, v, "negative timeout resets to default")
	v, _ = settings.Get(KeyUseDefaultFilament)
	assert.Equal(t, false, v, "negative default filament disables the toggle")
	v, _ = settings.Get(KeyDefaultFilament)
	assert.Equal(t, -1, v)

	require.NoError(t, bridge.ApplyConfig(map[string]interface{}{
		KeyTimeout:            float64(60),
		KeyUseDefaultFilament: false,
		KeyDefaultFilament:    float64(3),
	}))

	v, _ = settings.Get(KeyDefaultFilament)
	assert.Equal(t, -1, v, "toggle off clears the default filament")
	v, _ = settings.Get(KeyTimeout)
	assert.Equal(t, 60, v)
}

func TestBridgeFilaments(t *testing.T) {
	settings := newMemSettings()
	bridge := NewBridge(settings)

	table := bridge.Filaments()
	require.Len(t, table, FilamentSlots)
	assert.Equal(t, Filament{Enabled: true, ID: 1}, table[0], "missing table yields empty enabled slots")

	settings.Set(KeyFilament, []interface{}{
		map[string]interface{}{"name": "Galaxy Black", "color": "#101010", "enabled": true, "id": float64(1)},
		"garbage",
	})
	table = bridge.Filaments()
	assert.Equal(t, "Galaxy Black", table[0].Name)
	assert.Equal(t, "#101010", table[0].Color)
	assert.Equal(t, Filament{Enabled: true, ID: 3}, table[2], "short table is padded")
}

func TestBridgeStateRoundTrip(t *testing.T) {
	settings := newMemSettings()
	bridge := NewBridge(settings)

	require.NoError(t, bridge.SaveState(StatusUnloading, 4))
	state, tool := bridge.RestoreState()
	assert.Equal(t, StatusUnloading, state)
	assert.Equal(t, 4, tool)

	require.NoError(t, bridge.SaveState(StatusOK, -1))
	state, tool = bridge.RestoreState()
	assert.Equal(t, StatusOK, state)
	assert.Equal(t, -1, tool, "unset tool persists as empty string")
}

func TestBridgeSaveStateAggregatesErrors(t *testing.T) {
	settings := newMemSettings()
	settings.failSave = true
	bridge := NewBridge(settings)

	err := bridge.SaveState(StatusLoaded, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
