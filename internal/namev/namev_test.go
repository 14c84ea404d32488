package namev

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weenixcore/internal/defs"
	"weenixcore/internal/fs/tmpfs"
	"weenixcore/internal/vnode"
)

func TestLookup_DotReturnsSameDir(t *testing.T) {
	root := tmpfs.Mkroot()
	vn, err := Lookup(root, ".")
	require.Zero(t, err)
	assert.Same(t, root, vn)
	vnode.Vput(vn)
}

func TestLookup_NameTooLong(t *testing.T) {
	root := tmpfs.Mkroot()
	long := make([]byte, defs.NAME_LEN+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := Lookup(root, string(long))
	assert.Equal(t, -defs.ENAMETOOLONG, err)
}

func TestLookup_NotADirectory(t *testing.T) {
	root := tmpfs.Mkroot()
	file, err := root.Ops.Create("f")
	require.Zero(t, err)
	_, err = Lookup(file, "anything")
	assert.Equal(t, -defs.ENOTDIR, err)
}

func TestDirNamev_AbsolutePathWalksFromRoot(t *testing.T) {
	root := tmpfs.Mkroot()
	sub, err := root.Ops.Mkdir("a")
	require.Zero(t, err)
	_, err = sub.Ops.Create("b.txt")
	require.Zero(t, err)

	parent, base, err := Dir_namev("/a/b.txt", nil, nil, root)
	require.Zero(t, err)
	defer vnode.Vput(parent)
	assert.Same(t, sub, parent)
	assert.Equal(t, "b.txt", base)
}

func TestDirNamev_RootItself(t *testing.T) {
	root := tmpfs.Mkroot()
	parent, base, err := Dir_namev("/", nil, nil, root)
	require.Zero(t, err)
	defer vnode.Vput(parent)
	assert.Same(t, root, parent)
	assert.Equal(t, ".", base)
}

func TestDirNamev_MissingIntermediateComponent(t *testing.T) {
	root := tmpfs.Mkroot()
	_, _, err := Dir_namev("/missing/file", nil, nil, root)
	assert.Equal(t, -defs.ENOENT, err)
}

func TestOpenNamev_CreatesOnENOENTWithOCreat(t *testing.T) {
	root := tmpfs.Mkroot()
	vn, err := Open_namev("/new.txt", defs.O_CREAT, nil, nil, root)
	require.Zero(t, err)
	require.NotNil(t, vn)
	assert.Equal(t, defs.VREG, vn.Vtype)
	vnode.Vput(vn)

	again, err := Open_namev("/new.txt", 0, nil, nil, root)
	require.Zero(t, err)
	assert.Same(t, vn, again)
	vnode.Vput(again)
}

func TestOpenNamev_WithoutOCreatFails(t *testing.T) {
	root := tmpfs.Mkroot()
	_, err := Open_namev("/absent.txt", 0, nil, nil, root)
	assert.Equal(t, -defs.ENOENT, err)
}
