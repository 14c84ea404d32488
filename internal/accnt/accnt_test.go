package accnt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weenixcore/internal/util"
)

func TestAccnt_UtaddSystaddAccumulate(t *testing.T) {
	var a Accnt_t
	a.Utadd(100)
	a.Utadd(50)
	a.Systadd(10)
	assert.Equal(t, int64(150), a.Userns)
	assert.Equal(t, int64(10), a.Sysns)
}

func TestAccnt_AddMergesAnotherRecord(t *testing.T) {
	var a, b Accnt_t
	a.Utadd(10)
	a.Systadd(20)
	b.Utadd(5)
	b.Systadd(7)

	a.Add(&b)
	assert.Equal(t, int64(15), a.Userns)
	assert.Equal(t, int64(27), a.Sysns)
}

func TestAccnt_FetchEncodesRusage(t *testing.T) {
	var a Accnt_t
	a.Utadd(2_500_000_000)
	a.Systadd(3_750_000_000)

	ru := a.Fetch()
	require.Len(t, ru, 32)
	assert.Equal(t, 2, util.Readn(ru, 8, 0), "user seconds")
	assert.Equal(t, 500000, util.Readn(ru, 8, 8), "user microseconds")
	assert.Equal(t, 3, util.Readn(ru, 8, 16), "sys seconds")
	assert.Equal(t, 750000, util.Readn(ru, 8, 24), "sys microseconds")
}

func TestAccnt_PprofReportsUserAndSysSamples(t *testing.T) {
	var a Accnt_t
	a.Utadd(1000)
	a.Systadd(2000)

	p := a.Pprof("initproc.1")
	require.NotNil(t, p)
	require.Len(t, p.Sample, 2)
	assert.Equal(t, int64(1000), p.Sample[0].Value[0])
	assert.Equal(t, int64(2000), p.Sample[1].Value[0])
}
