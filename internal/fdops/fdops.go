// Package fdops defines the open-file-descriptor vtable and the small
// user-copy interface that separates file-object implementations from the
// details of where the bytes on the other end actually live (a process's
// address space, a kernel buffer, or a test harness).
package fdops

import "weenixcore/internal/defs"

// Userio_i abstracts a source or sink for a read/write copy. vnode and
// device implementations never touch process memory directly; they copy
// through this interface so the same Read/Write code path serves both a
// real syscall (backed by the faulting process's address space) and an
// in-kernel buffer-to-buffer copy (backed by a byte slice).
type Userio_i interface {
	// Uioread copies into dst from the underlying source, returning the
	// number of bytes copied.
	Uioread(dst []uint8) (int, defs.Err_t)
	// Uiowrite copies src into the underlying sink, returning the number
	// of bytes copied.
	Uiowrite(src []uint8) (int, defs.Err_t)
	// Remain reports how many bytes are left to transfer.
	Remain() int
	// Totalsz reports the total size of the transfer this Userio_i was
	// constructed for.
	Totalsz() int
}

// Ready_t is a bitmask of the conditions a descriptor can be polled for.
type Ready_t uint8

const (
	R_READ  Ready_t = 1 << iota // readable without blocking
	R_WRITE                     // writable without blocking
	R_ERROR                     // an error condition is pending
	R_HUP                       // the peer has gone away
)

// Pollmsg_t carries the set of conditions a caller is interested in.
type Pollmsg_t struct {
	Events Ready_t
}

// Fdops_i is the vtable behind an open file descriptor (Fd_t.Fops). Every
// concrete file object — a regular vnode-backed file, a directory open for
// getdent, a pipe end, or a device — implements this set.
type Fdops_i interface {
	// Close releases one reference to the underlying file object.
	Close() defs.Err_t
	// Fstat writes the descriptor's status into st.
	Fstat(st Stat_i) defs.Err_t
	// Lseek repositions the descriptor's file offset.
	Lseek(off int, whence int) (int, defs.Err_t)
	// Mmap is invoked by vmmap_map when a file-backed mapping is created;
	// it returns the memory object that backs the mapping.
	Mmap(vma Vmap_i, prot int, flags int) (Mmobj_i, defs.Err_t)
	// Pathi returns the absolute, canonical path of the underlying vnode,
	// if the descriptor is vnode-backed.
	Pathi() (interface{}, defs.Err_t)
	// Read copies file or device data into dst starting at the
	// descriptor's current offset, which it advances by the amount read.
	Read(dst Userio_i) (int, defs.Err_t)
	// Reopen increments the underlying object's reference count; called
	// when a descriptor is duplicated (dup/dup2/fork).
	Reopen() defs.Err_t
	// Write copies src to the file or device at the descriptor's current
	// offset (or at the end, for O_APPEND), advancing the offset.
	Write(src Userio_i) (int, defs.Err_t)
	// Poll reports which of the requested conditions are ready.
	Pollable
}

// Pollable is the subset of Fdops_i used by the polling syscalls (select,
// poll) to learn whether a descriptor is ready and, if not, to register
// for a wakeup.
type Pollable interface {
	Poll(pm Pollmsg_t) (Ready_t, defs.Err_t)
}

// Stat_i, Vmap_i and Mmobj_i are forward references to the vnode/stat and
// vm packages' types; fdops sits below both in the dependency graph, so it
// depends on their interfaces rather than their concrete types to avoid an
// import cycle. Each package that implements Fdops_i supplies the
// concrete type satisfying these.
type Stat_i interface {
	Wmode(uint)
	Wsize(uint)
	Wdev(uint)
	Wrdev(uint)
	Wino(uint)
}

// Vmap_i is the portion of a vmarea a file object's Mmap needs to decide
// how to back the mapping (its length, in pages, and requested offset).
type Vmap_i interface {
	Pglen() int
	FileOffset() int
}

// Mmobj_i mirrors internal/vm/mmobj.Mmobj_i; declared again here (rather
// than imported) for the same acyclic-dependency reason as Stat_i.
type Mmobj_i interface {
	Ref()
	Put()
}

// FD_READ, FD_WRITE and FD_CLOEXEC are Fd_t.Perms bits.
const (
	FD_READ    = 0x1
	FD_WRITE   = 0x2
	FD_CLOEXEC = 0x4
)

// Fd_t is an open file descriptor: operations vtable plus the permission
// bits recorded at open() time (used to reject e.g. a write() on an
// O_RDONLY descriptor before ever reaching Fops.Write).
type Fd_t struct {
	Fops  Fdops_i
	Perms int
}

// Copyfd duplicates fd by reopening the underlying file object; used by
// dup, dup2 and fork.
func Copyfd(fd *Fd_t) (*Fd_t, defs.Err_t) {
	nfd := &Fd_t{}
	*nfd = *fd
	if err := nfd.Fops.Reopen(); err != 0 {
		return nil, err
	}
	return nfd, 0
}

// Close_panic closes fd and panics if the underlying object refuses, which
// would indicate a refcounting bug elsewhere in the kernel.
func Close_panic(fd *Fd_t) {
	if fd.Fops.Close() != 0 {
		panic("must succeed")
	}
}

// Fakeubuf_t is a Userio_i backed by an ordinary Go byte slice, used
// wherever the kernel needs to treat an in-kernel buffer (a pipe, a tty's
// line buffer) like a user copy target without an actual process address
// space on the other end.
type Fakeubuf_t struct {
	buf []uint8
	len int
}

// Fake_init points fb at buf; each Uioread/Uiowrite consumes a prefix of
// it.
func (fb *Fakeubuf_t) Fake_init(buf []uint8) {
	fb.buf = buf
	fb.len = len(buf)
}

func (fb *Fakeubuf_t) Remain() int  { return len(fb.buf) }
func (fb *Fakeubuf_t) Totalsz() int { return fb.len }

func (fb *Fakeubuf_t) tx(other []uint8, tofbuf bool) (int, defs.Err_t) {
	var c int
	if tofbuf {
		c = copy(fb.buf, other)
	} else {
		c = copy(other, fb.buf)
	}
	fb.buf = fb.buf[c:]
	return c, 0
}

// Uioread copies from the fake buffer into dst.
func (fb *Fakeubuf_t) Uioread(dst []uint8) (int, defs.Err_t) { return fb.tx(dst, false) }

// Uiowrite copies src into the fake buffer.
func (fb *Fakeubuf_t) Uiowrite(src []uint8) (int, defs.Err_t) { return fb.tx(src, true) }
