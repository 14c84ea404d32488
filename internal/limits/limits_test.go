package limits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSysatomic_GivenIncreasesValue(t *testing.T) {
	var s Sysatomic_t
	s.Given(10)
	assert.Equal(t, int64(10), s.Value())
}

func TestSysatomic_TakenSucceedsWithinBudget(t *testing.T) {
	var s Sysatomic_t
	s.Given(5)
	assert.True(t, s.Taken(3))
	assert.Equal(t, int64(2), s.Value())
}

func TestSysatomic_TakenFailsAndLeavesValueUnchanged(t *testing.T) {
	var s Sysatomic_t
	s.Given(2)
	assert.False(t, s.Taken(3), "taking more than available must fail")
	assert.Equal(t, int64(2), s.Value(), "a failed take must not change the limit")
}

func TestSysatomic_TakeGiveSingleUnit(t *testing.T) {
	var s Sysatomic_t
	s.Given(1)
	assert.True(t, s.Take())
	assert.False(t, s.Take(), "the limit is now exhausted")
	s.Give()
	assert.True(t, s.Take())
}

func TestMkSysLimit_DefaultsArePositive(t *testing.T) {
	s := MkSysLimit()
	assert.Positive(t, s.Sysprocs.Value())
	assert.Positive(t, s.Vnodes.Value())
	assert.Positive(t, s.Mfspgs.Value())
	assert.Positive(t, s.Blocks.Value())
}
