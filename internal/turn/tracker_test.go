package turn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(11))
}

func TestPickProducesPermutationOfIdentities(t *testing.T) {
	tr := New()
	ids := []string{"a", "b", "c", "d"}

	for i := 0; i < 5; i++ {
		tr.Pick(newRNG(), ids)

		require.True(t, tr.Set)
		assert.Equal(t, 0, tr.Current)
		assert.Len(t, tr.Order, 4)

		seen := make(map[string]int)
		for _, id := range tr.Order {
			seen[id]++
		}
		for _, id := range ids {
			assert.Equal(t, 1, seen[id])
		}
	}
}

func TestEndFromNonActivePlayerIsNoOp(t *testing.T) {
	tr := New()
	tr.Pick(newRNG(), []string{"a", "b"})

	active := tr.Active()
	other := "a"
	if active == "a" {
		other = "b"
	}

	advanced := tr.End(other)

	assert.False(t, advanced)
	assert.Equal(t, 0, tr.Current)
	assert.Equal(t, 1, tr.Counter)
}

func TestEndAdvancesAndCountsLaps(t *testing.T) {
	tr := New()
	tr.Pick(newRNG(), []string{"a", "b"})

	require.True(t, tr.End(tr.Active()))
	assert.Equal(t, 1, tr.Current)
	assert.Equal(t, 1, tr.Counter, "counter increments only on wraparound")

	require.True(t, tr.End(tr.Active()))
	assert.Equal(t, 0, tr.Current)
	assert.Equal(t, 2, tr.Counter)
}

func TestEndWithoutOrderIsNoOp(t *testing.T) {
	tr := New()

	assert.False(t, tr.End("a"))
	assert.Equal(t, "", tr.Active())
}

func TestRemoveActivePlayerClampsIndex(t *testing.T) {
	tr := New()
	tr.Order = []string{"a", "b", "c"}
	tr.Set = true
	tr.Current = 2

	tr.Remove("c")

	require.Len(t, tr.Order, 2)
	assert.Less(t, tr.Current, len(tr.Order))
}

func TestRemoveBeforeCurrentKeepsUpcomingPlayer(t *testing.T) {
	tr := New()
	tr.Order = []string{"a", "b", "c"}
	tr.Set = true
	tr.Current = 2 // c is live

	tr.Remove("a")

	assert.Equal(t, []string{"b", "c"}, tr.Order)
	assert.Equal(t, "c", tr.Active())
}

func TestRemoveLastPlayerClearsOrder(t *testing.T) {
	tr := New()
	tr.Order = []string{"a"}
	tr.Set = true

	tr.Remove("a")

	assert.False(t, tr.Set)
	assert.Empty(t, tr.Order)
	assert.Equal(t, 0, tr.Current)
}

func TestRemoveUnknownIdentityIsNoOp(t *testing.T) {
	tr := New()
	tr.Order = []string{"a", "b"}
	tr.Set = true
	tr.Current = 1

	tr.Remove("zzz")

	assert.Equal(t, []string{"a", "b"}, tr.Order)
	assert.Equal(t, 1, tr.Current)
}

func TestReplaceKeepsTurnPosition(t *testing.T) {
	tr := New()
	tr.Order = []string{"a", "b", "c"}
	tr.Set = true
	tr.Current = 1

	tr.Replace("b", "b2")

	assert.Equal(t, []string{"a", "b2", "c"}, tr.Order)
	assert.Equal(t, "b2", tr.Active())
	assert.False(t, tr.Contains("b"))
	assert.True(t, tr.Contains("b2"))
}
