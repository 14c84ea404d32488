// Package stat defines the on-wire stat structure returned by the stat(2)
// syscall and vn_ops.Stat implementations.
package stat

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Stat_t mirrors a file's stat information.
type Stat_t struct {
	_dev    uint
	_ino    uint
	_mode   uint
	_size   uint
	_rdev   uint
	_uid    uint
	_blocks uint
	_m_sec  uint
	_m_nsec uint
}

// File-type bits for Wmode/Mode, backed by the host's real S_IF* constants
// so a Stat_t's mode round-trips to a POSIX stat struct unmodified.
const (
	S_IFREG = uint(unix.S_IFREG)
	S_IFDIR = uint(unix.S_IFDIR)
	S_IFCHR = uint(unix.S_IFCHR)
	S_IFBLK = uint(unix.S_IFBLK)
)

func (st *Stat_t) Wdev(v uint)   { st._dev = v }
func (st *Stat_t) Wino(v uint)   { st._ino = v }
func (st *Stat_t) Wmode(v uint)  { st._mode = v }
func (st *Stat_t) Wsize(v uint)  { st._size = v }
func (st *Stat_t) Wrdev(v uint)  { st._rdev = v }

func (st *Stat_t) Mode() uint { return st._mode }
func (st *Stat_t) Size() uint { return st._size }
func (st *Stat_t) Rdev() uint { return st._rdev }
func (st *Stat_t) Rino() uint { return st._ino }

// IsDir reports whether the stored mode names a directory.
func (st *Stat_t) IsDir() bool { return st._mode&uint(unix.S_IFMT) == S_IFDIR }

// IsReg reports whether the stored mode names a regular file.
func (st *Stat_t) IsReg() bool { return st._mode&uint(unix.S_IFMT) == S_IFREG }

// Bytes exposes the raw bytes of the structure.
func (st *Stat_t) Bytes() []uint8 {
	const sz = unsafe.Sizeof(*st)
	sl := (*[sz]uint8)(unsafe.Pointer(&st._dev))
	return sl[:]
}
