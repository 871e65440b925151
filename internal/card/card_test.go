package card

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLibraryKeepsDecklistOrder(t *testing.T) {
	lib := BuildLibrary([]string{"Forest", "Forest", "Island"})

	require.Len(t, lib, 3)
	assert.Equal(t, "Forest", lib[0].Name)
	assert.Equal(t, "Forest", lib[1].Name)
	assert.Equal(t, "Island", lib[2].Name)

	// Every card gets a distinct id, including duplicates by name.
	assert.NotEqual(t, lib[0].ID, lib[1].ID)
	assert.NotEmpty(t, lib[2].ID)
}

func TestBuildCommandFlagsCommanders(t *testing.T) {
	cmd := BuildCommand([]string{"Vizzerdrix"})

	require.Len(t, cmd, 1)
	assert.True(t, cmd[0].IsCommander)
	assert.Equal(t, "Vizzerdrix", cmd[0].DisplayName)
}

func TestBuildLibraryEmpty(t *testing.T) {
	assert.Empty(t, BuildLibrary(nil))
	assert.Empty(t, BuildCommand(nil))
}

func TestZeroCountersOmittedFromJSON(t *testing.T) {
	c := New("Forest")

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "counters")

	c.Counters = -2
	data, err = json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"counters":-2`)
}

func TestCloneSliceIsIndependent(t *testing.T) {
	orig := BuildLibrary([]string{"Forest", "Island"})
	cp := CloneSlice(orig)

	cp[0].Name = "Swamp"
	assert.Equal(t, "Forest", orig[0].Name)

	assert.NotNil(t, CloneSlice(nil))
	assert.Empty(t, CloneSlice(nil))
}
