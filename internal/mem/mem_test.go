package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhysmem_RefpgNewStartsAtZeroRefcount(t *testing.T) {
	phys := Phys_init(4)
	_, pa, ok := phys.Refpg_new()
	require.True(t, ok)
	assert.Equal(t, 0, phys.Refcnt(pa))
}

func TestPhysmem_RefupRefdownBalance(t *testing.T) {
	phys := Phys_init(4)
	_, pa, ok := phys.Refpg_new()
	require.True(t, ok)

	phys.Refup(pa)
	assert.Equal(t, 1, phys.Refcnt(pa))

	freed := phys.Refdown(pa)
	assert.True(t, freed, "refcount reaching zero must report the page as freed")
	assert.Equal(t, 0, phys.Refcnt(pa))
}

func TestPhysmem_RefdownBelowZeroPanics(t *testing.T) {
	phys := Phys_init(4)
	_, pa, ok := phys.Refpg_new()
	require.True(t, ok)
	assert.Panics(t, func() { phys.Refdown(pa) }, "a page allocated with refcount 0 must not go negative")
}

func TestPhysmem_RefpgNewIsZeroFilled(t *testing.T) {
	phys := Phys_init(4)
	pg, pa, ok := phys.Refpg_new_nozero()
	require.True(t, ok)
	phys.Refup(pa)
	for i := range pg {
		pg[i] = ^uint64(0)
	}
	phys.Refdown(pa)

	pg2, _, ok := phys.Refpg_new()
	require.True(t, ok)
	for _, w := range pg2 {
		assert.Zero(t, w)
	}
}

func TestPhysmem_ExhaustionWithNoOomListenerFails(t *testing.T) {
	phys := Phys_init(1)
	_, _, ok := phys.Refpg_new()
	require.True(t, ok)
	_, _, ok = phys.Refpg_new()
	assert.False(t, ok, "allocating past the pool with nobody listening on oommsg must fail, not block forever")
}

func TestPhysmem_FreedPageIsReusable(t *testing.T) {
	phys := Phys_init(1)
	_, pa1, ok := phys.Refpg_new()
	require.True(t, ok)
	phys.Refup(pa1)
	phys.Refdown(pa1)

	_, pa2, ok := phys.Refpg_new()
	require.True(t, ok)
	assert.Equal(t, pa1, pa2, "the only page in a 1-page pool must be recycled after it's freed")
}
