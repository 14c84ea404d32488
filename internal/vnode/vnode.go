// Package vnode defines the filesystem-agnostic vnode: the refcounted
// handle every path-walk and syscall operates on, backed by a pluggable
// VnOps_i vtable supplied by the concrete filesystem (fs/tmpfs) or device
// table (devfs). Grounded on the vn_ops surface enumerated in the
// specification's external-interfaces section and on the small-interface
// style the teacher uses throughout (fdops.Fdops_i, mem.Page_i).
package vnode

import (
	"sync"
	"sync/atomic"

	"weenixcore/internal/defs"
	"weenixcore/internal/fdops"
	"weenixcore/internal/stat"
)

// Dirent_t is one directory entry as returned by VnOps_i.Readdir.
type Dirent_t struct {
	Ino  int
	Name string
}

// VnOps_i is the vtable a concrete filesystem or device implements. A
// vnode for which an operation makes no sense (e.g. Mkdir on a device
// node) returns -ENOTDIR/-EINVAL/-EPERM as appropriate; the core never
// type-switches on the concrete filesystem to decide whether to call an
// operation.
type VnOps_i interface {
	Lookup(name string) (*Vnode_t, defs.Err_t)
	Create(name string) (*Vnode_t, defs.Err_t)
	Mkdir(name string) (*Vnode_t, defs.Err_t)
	Rmdir(name string) defs.Err_t
	Unlink(name string) defs.Err_t
	Link(src *Vnode_t, name string) defs.Err_t
	Mknod(name string, vtype defs.Vtype_t, dev int) (*Vnode_t, defs.Err_t)
	Readdir(offset int) (Dirent_t, int, defs.Err_t)
	Read(pos int, dst fdops.Userio_i) (int, defs.Err_t)
	Write(pos int, src fdops.Userio_i) (int, defs.Err_t)
	Stat(st *stat.Stat_t) defs.Err_t
	Mmap(vn *Vnode_t) (interface{}, defs.Err_t)
	Fillpage(pagenum int, dst []uint8) defs.Err_t
	Dirtypage(pagenum int) defs.Err_t
	Cleanpage(pagenum int) defs.Err_t
}

// Vnode_t is the abstract file/directory/device handle shared across
// open file descriptors, directory entries, and mmapped regions.
type Vnode_t struct {
	mu      sync.Mutex
	refcnt  int32
	Vtype   defs.Vtype_t
	Dev     int
	Len     int
	Ops     VnOps_i
	FsPriv  interface{}
}

// Mkvnode allocates a vnode with an initial reference count of one, owned
// by whoever created it (the filesystem, for an entry placed in a
// directory; the device table, for a device node).
func Mkvnode(vtype defs.Vtype_t, ops VnOps_i) *Vnode_t {
	return &Vnode_t{refcnt: 1, Vtype: vtype, Ops: ops}
}

// Vref adds one reference to vn.
func Vref(vn *Vnode_t) {
	if atomic.AddInt32(&vn.refcnt, 1) <= 1 {
		panic("vnode: vref of dead vnode")
	}
}

// Vput releases one reference to vn, freeing it when the count reaches
// zero. A vnode carries no further cleanup of its own beyond that: the fs
// that created it is responsible for anything else (e.g. removing it from
// a directory's entry table happens via Unlink, not here).
func Vput(vn *Vnode_t) {
	if atomic.AddInt32(&vn.refcnt, -1) < 0 {
		panic("vnode: vput of already-freed vnode")
	}
}

// Refcnt reports the current reference count, for invariant checks.
func (vn *Vnode_t) Refcnt() int { return int(atomic.LoadInt32(&vn.refcnt)) }

// Lock serializes operations (e.g. directory mutation) against this
// vnode. namev and vfs do not take it; filesystems guard their own state.
func (vn *Vnode_t) Lock()   { vn.mu.Lock() }
func (vn *Vnode_t) Unlock() { vn.mu.Unlock() }

// IsDir reports whether vn is a directory.
func (vn *Vnode_t) IsDir() bool { return vn.Vtype == defs.VDIR }
