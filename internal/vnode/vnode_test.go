package vnode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"weenixcore/internal/defs"
)

func TestMkvnode_StartsAtOneReference(t *testing.T) {
	vn := Mkvnode(defs.VREG, nil)
	assert.Equal(t, 1, vn.Refcnt())
	assert.False(t, vn.IsDir())
}

func TestVrefVput_Balance(t *testing.T) {
	vn := Mkvnode(defs.VDIR, nil)
	Vref(vn)
	assert.Equal(t, 2, vn.Refcnt())
	assert.True(t, vn.IsDir())

	Vput(vn)
	assert.Equal(t, 1, vn.Refcnt())
}

func TestVput_BelowZeroPanics(t *testing.T) {
	vn := Mkvnode(defs.VREG, nil)
	Vput(vn)
	assert.Equal(t, 0, vn.Refcnt())
	assert.Panics(t, func() { Vput(vn) }, "putting an already-freed vnode is a kernel bug")
}

func TestVref_OfDeadVnodePanics(t *testing.T) {
	vn := Mkvnode(defs.VREG, nil)
	Vput(vn)
	assert.Panics(t, func() { Vref(vn) }, "adding a reference to a vnode with refcount 0 is a kernel bug")
}
