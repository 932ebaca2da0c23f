package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prusammu/mmu"
)

func TestOpenCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prusammu.json")

	s, err := Open(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "defaults file should be written")

	v, err := s.Get(mmu.KeyTimeout)
	require.NoError(t, err)
	assert.Equal(t, mmu.DefaultTimeout, v)

	v, err = s.Get(mmu.KeyMmuState)
	require.NoError(t, err)
	assert.Equal(t, "OK", v)

	_, err = s.Get("bogus")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prusammu.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(mmu.KeyMmuState, "LOADED"))
	require.NoError(t, s.Set(mmu.KeyMmuTool, "2"))
	require.NoError(t, s.Save())

	reopened, err := Open(path)
	require.NoError(t, err)

	v, err := reopened.Get(mmu.KeyMmuState)
	require.NoError(t, err)
	assert.Equal(t, "LOADED", v)
	v, err = reopened.Get(mmu.KeyMmuTool)
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestOpenMergesDefaultsIntoPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prusammu.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"timeout": 5}`), 0o644))

	s, err := Open(path)
	require.NoError(t, err)

	v, err := s.Get(mmu.KeyTimeout)
	require.NoError(t, err)
	assert.Equal(t, float64(5), v, "existing value kept (JSON numbers are float64)")

	v, err = s.Get(mmu.KeyDisplayActiveFilament)
	require.NoError(t, err)
	assert.Equal(t, true, v, "missing keys filled from defaults")

	v, err = s.Get(mmu.KeyFilament)
	require.NoError(t, err)
	assert.Len(t, v, mmu.FilamentSlots)
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prusammu.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}
