package devfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weenixcore/internal/defs"
	"weenixcore/internal/fdops"
	"weenixcore/internal/fs/tmpfs"
	"weenixcore/internal/stat"
)

func TestInstall_RegistersNullZeroAndTerminals(t *testing.T) {
	root := tmpfs.Mkroot()
	devVn, err := root.Ops.Mkdir("dev")
	require.Zero(t, err)

	Install(devVn.Ops, 2)

	for _, name := range []string{"null", "zero", "tty0", "tty1"} {
		vn, err := devVn.Ops.Lookup(name)
		require.Zero(t, err, "expected %q to be linked into the device directory", name)
		assert.Equal(t, defs.VCHR, vn.Vtype)
		assert.NotZero(t, vn.Dev)

		var st stat.Stat_t
		require.Zero(t, vn.Ops.Stat(&st))
		assert.True(t, st.Mode()&stat.S_IFCHR != 0)
	}

	_, err = devVn.Ops.Lookup("tty2")
	assert.Equal(t, -defs.ENOENT, err, "only the requested number of terminals should be installed")
}

func TestNullDev_ReadsNothingDiscardsWrites(t *testing.T) {
	var d nullDev
	out := make([]byte, 4)
	var ob fdops.Fakeubuf_t
	ob.Fake_init(out)
	n, err := d.Read(&ob)
	require.Zero(t, err)
	assert.Equal(t, 0, n)

	var ib fdops.Fakeubuf_t
	ib.Fake_init([]byte("xyz"))
	n, err = d.Write(&ib)
	require.Zero(t, err)
	assert.Equal(t, 3, n, "a write to /dev/null reports every byte consumed")
}

func TestZeroDev_ReadsAllZeroBytes(t *testing.T) {
	var d zeroDev
	out := make([]byte, 8)
	for i := range out {
		out[i] = 0xff
	}
	var ob fdops.Fakeubuf_t
	ob.Fake_init(out)
	n, err := d.Read(&ob)
	require.Zero(t, err)
	assert.Equal(t, 8, n)
	for _, b := range out {
		assert.Zero(t, b)
	}
}

func TestTTYDev_ReadReturnsWhatWasBuffered(t *testing.T) {
	tty := newTTY()
	var ib fdops.Fakeubuf_t
	ib.Fake_init([]byte("input"))
	_, err := tty.in.Copyin(&ib)
	require.Zero(t, err)

	out := make([]byte, 5)
	var ob fdops.Fakeubuf_t
	ob.Fake_init(out)
	n, err := tty.Read(&ob)
	require.Zero(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "input", string(out))
}

func TestVnOps_RejectsDirectoryOperations(t *testing.T) {
	o := &vnOps_t{dev: nullDev{}}
	_, err := o.Lookup("x")
	assert.Equal(t, -defs.ENOTDIR, err)
	_, err = o.Mkdir("x")
	assert.Equal(t, -defs.ENOTDIR, err)
	assert.Equal(t, -defs.ENOTDIR, o.Unlink("x"))
}
