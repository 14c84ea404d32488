package tmpfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weenixcore/internal/defs"
	"weenixcore/internal/stat"
)

func TestMkroot_SelfParented(t *testing.T) {
	root := Mkroot()
	self, err := root.Ops.Lookup(".")
	require.Zero(t, err)
	assert.Same(t, root, self)

	parent, err := root.Ops.Lookup("..")
	require.Zero(t, err)
	assert.Same(t, root, parent, "the root's .. must point at itself")
}

func TestDir_CreateThenLookup(t *testing.T) {
	root := Mkroot()
	created, err := root.Ops.Create("f.txt")
	require.Zero(t, err)

	found, err := root.Ops.Lookup("f.txt")
	require.Zero(t, err)
	assert.Same(t, created, found)
}

func TestDir_CreateDuplicateFails(t *testing.T) {
	root := Mkroot()
	_, err := root.Ops.Create("dup")
	require.Zero(t, err)
	_, err = root.Ops.Create("dup")
	assert.Equal(t, -defs.EEXIST, err)
}

func TestDir_RmdirRejectsNonEmpty(t *testing.T) {
	root := Mkroot()
	sub, err := root.Ops.Mkdir("d")
	require.Zero(t, err)
	_, err = sub.Ops.Create("child")
	require.Zero(t, err)

	assert.Equal(t, -defs.ENOTEMPTY, root.Ops.Rmdir("d"))
}

func TestDir_RmdirEmptySucceeds(t *testing.T) {
	root := Mkroot()
	_, err := root.Ops.Mkdir("d")
	require.Zero(t, err)
	require.Zero(t, root.Ops.Rmdir("d"))
	_, err = root.Ops.Lookup("d")
	assert.Equal(t, -defs.ENOENT, err)
}

func TestDir_ReaddirTerminatesAndCoversEveryEntry(t *testing.T) {
	root := Mkroot()
	names := []string{"a", "b", "c"}
	for _, n := range names {
		_, err := root.Ops.Create(n)
		require.Zero(t, err)
	}

	seen := map[string]bool{}
	offset := 0
	for {
		dent, consumed, err := root.Ops.Readdir(offset)
		require.Zero(t, err)
		if consumed == 0 {
			break
		}
		seen[dent.Name] = true
		offset += consumed
	}
	assert.Equal(t, map[string]bool{".": true, "..": true, "a": true, "b": true, "c": true}, seen)
}

func TestFile_WriteGrowsThenReadsBack(t *testing.T) {
	root := Mkroot()
	vn, err := root.Ops.Create("grow.txt")
	require.Zero(t, err)
	f := vn.Ops.(*fileOps_t)

	var st stat.Stat_t
	require.Zero(t, f.Stat(&st))
	assert.Equal(t, uint(0), st.Size())

	var wb fakeUio
	wb.data = []byte("hello")
	n, err := f.Write(10, &wb)
	require.Zero(t, err)
	assert.Equal(t, 5, n)

	require.Zero(t, f.Stat(&st))
	assert.Equal(t, uint(15), st.Size(), "writing at offset 10 must grow the file to cover it")
}

// fakeUio is a minimal fdops.Userio_i for exercising fileOps_t directly
// without going through internal/fdops's own fake implementation, which
// is oriented around a fixed total size rather than an arbitrary offset
// write.
type fakeUio struct {
	data []byte
	pos  int
}

func (f *fakeUio) Uioread(dst []uint8) (int, defs.Err_t) {
	n := copy(dst, f.data[f.pos:])
	f.pos += n
	return n, 0
}
func (f *fakeUio) Uiowrite(src []uint8) (int, defs.Err_t) {
	n := copy(f.data[f.pos:], src)
	f.pos += n
	return n, 0
}
func (f *fakeUio) Remain() int  { return len(f.data) - f.pos }
func (f *fakeUio) Totalsz() int { return len(f.data) }
