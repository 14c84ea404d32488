// Package vfs is the syscall layer: open, close, read, write, lseek,
// dup/dup2, the directory-mutating calls, and stat. It is the component
// that ties namev (path resolution), vnode (the fs-agnostic handle) and
// proc (the per-process fd table) together, matching the call surface
// the specification lists under file-descriptor and file-object
// syscalls.
package vfs

import (
	"sync/atomic"

	"weenixcore/internal/defs"
	"weenixcore/internal/fdops"
	"weenixcore/internal/stat"
	"weenixcore/internal/vnode"
)

// vfile_t is the Fdops_i implementation backing an ordinary vnode-backed
// open file description: a position plus the permission bits recorded at
// open time, shared by every fd that dup'd from the same open() call.
type vfile_t struct {
	refcnt int32
	vn     *vnode.Vnode_t
	pos    int
	perms  int
	append bool
}

func newVfile(vn *vnode.Vnode_t, perms int) *vfile_t {
	return &vfile_t{refcnt: 1, vn: vn, pos: 0, perms: perms}
}

func (f *vfile_t) Reopen() defs.Err_t {
	atomic.AddInt32(&f.refcnt, 1)
	return 0
}

func (f *vfile_t) Close() defs.Err_t {
	if atomic.AddInt32(&f.refcnt, -1) == 0 {
		vnode.Vput(f.vn)
	}
	return 0
}

func (f *vfile_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	if f.vn.IsDir() {
		return 0, -defs.EISDIR
	}
	if f.perms&fdops.FD_READ == 0 {
		return 0, -defs.EBADF
	}
	n, err := f.vn.Ops.Read(f.pos, dst)
	if err != 0 {
		return 0, err
	}
	f.pos += n
	return n, 0
}

func (f *vfile_t) Write(src fdops.Userio_i) (int, defs.Err_t) {
	if f.perms&fdops.FD_WRITE == 0 {
		return 0, -defs.EBADF
	}
	if f.append {
		f.pos = f.vn.Len
	}
	n, err := f.vn.Ops.Write(f.pos, src)
	if err != 0 {
		return 0, err
	}
	f.pos += n
	if f.pos > f.vn.Len {
		f.vn.Len = f.pos
	}
	return n, 0
}

func (f *vfile_t) Lseek(off int, whence int) (int, defs.Err_t) {
	var newpos int
	switch whence {
	case defs.SEEK_SET:
		newpos = off
	case defs.SEEK_CUR:
		newpos = f.pos + off
	case defs.SEEK_END:
		newpos = f.vn.Len + off
	default:
		return 0, -defs.EINVAL
	}
	if newpos < 0 {
		return 0, -defs.EINVAL
	}
	f.pos = newpos
	return f.pos, 0
}

func (f *vfile_t) Fstat(st fdops.Stat_i) defs.Err_t {
	s, ok := st.(*stat.Stat_t)
	if !ok {
		panic("vfs: Fstat called with non-*stat.Stat_t")
	}
	return f.vn.Ops.Stat(s)
}

func (f *vfile_t) Mmap(vma fdops.Vmap_i, prot int, flags int) (fdops.Mmobj_i, defs.Err_t) {
	obj, err := f.vn.Ops.Mmap(f.vn)
	if err != 0 {
		return nil, err
	}
	mo, ok := obj.(fdops.Mmobj_i)
	if !ok {
		panic("vfs: vn_ops.Mmap returned a non-Mmobj_i object")
	}
	return mo, 0
}

func (f *vfile_t) Pathi() (interface{}, defs.Err_t) { return f.vn, 0 }

func (f *vfile_t) Poll(pm fdops.Pollmsg_t) (fdops.Ready_t, defs.Err_t) {
	return fdops.R_READ | fdops.R_WRITE, 0
}
