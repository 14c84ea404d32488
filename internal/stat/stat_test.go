package stat

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestStat_WriteReadRoundTrip(t *testing.T) {
	var st Stat_t
	st.Wdev(1)
	st.Wino(2)
	st.Wmode(S_IFREG | 0644)
	st.Wsize(4096)
	st.Wrdev(0)

	assert.Equal(t, uint(4096), st.Size())
	assert.Equal(t, uint(2), st.Rino())
	assert.True(t, st.IsReg())
	assert.False(t, st.IsDir())
}

func TestStat_IsDir(t *testing.T) {
	var st Stat_t
	st.Wmode(S_IFDIR | 0755)
	assert.True(t, st.IsDir())
	assert.False(t, st.IsReg())
}

func TestStat_BytesCoversWholeStruct(t *testing.T) {
	var st Stat_t
	st.Wsize(123)
	b := st.Bytes()
	assert.Len(t, b, int(unsafe.Sizeof(st)))
}
