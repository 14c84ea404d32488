// Package devfs implements the byte-device vnode operations for the
// persisted, observable devices the specification names: /dev/null,
// /dev/zero, and /dev/ttyN for N in [0, num_terminals). Grounded on the
// teacher's ufs console_t stub (a fixed set of Cons_read/Cons_write/
// Cons_poll methods returning fixed results) generalized into a small
// table of named byte devices.
package devfs

import (
	"fmt"

	"weenixcore/internal/circbuf"
	"weenixcore/internal/defs"
	"weenixcore/internal/fdops"
	"weenixcore/internal/stat"
	"weenixcore/internal/vnode"
)

// ByteDev_i is a character device's operations, looked up by device id;
// bytedev_lookup in the specification's external-interfaces section.
type ByteDev_i interface {
	Read(dst fdops.Userio_i) (int, defs.Err_t)
	Write(src fdops.Userio_i) (int, defs.Err_t)
}

var registry = map[int]ByteDev_i{}

// Bytedev_lookup returns the device registered at devid, or nil if none
// is registered. vfs.Open does not consult this table: it rejects a
// char/block vnode with -ENXIO only when the vnode's Dev is zero.
func Bytedev_lookup(devid int) ByteDev_i { return registry[devid] }

const (
	devNull = 1
	devZero = 2
	devTTY0 = 100 // /dev/ttyN occupies devTTY0+N
)

type nullDev struct{}

func (nullDev) Read(dst fdops.Userio_i) (int, defs.Err_t)  { return 0, 0 }
func (nullDev) Write(src fdops.Userio_i) (int, defs.Err_t) { return src.Remain(), 0 }

type zeroDev struct{}

func (zeroDev) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	zeros := make([]uint8, dst.Remain())
	return dst.Uiowrite(zeros)
}
func (zeroDev) Write(src fdops.Userio_i) (int, defs.Err_t) { return src.Remain(), 0 }

// ttyDev is a terminal device backed by a small input ring buffer, the
// same role the teacher's circbuf-backed console plays; output is
// discarded rather than drawn to a real screen, since there is no frame
// buffer in this core's scope.
type ttyDev struct {
	in circbuf.Circbuf_t
}

func newTTY() *ttyDev {
	t := &ttyDev{}
	t.in.Cb_init(4096)
	return t
}

func (t *ttyDev) Read(dst fdops.Userio_i) (int, defs.Err_t)  { return t.in.Copyout(dst) }
func (t *ttyDev) Write(src fdops.Userio_i) (int, defs.Err_t) { return src.Remain(), 0 }

// vnOps_t adapts a ByteDev_i into vnode.VnOps_i for the char-special
// vnodes devfs installs in the /dev directory. Read and Write go to the
// device; every directory operation is rejected with -ENOTDIR and the
// mmap/page operations with -EINVAL.
type vnOps_t struct {
	dev ByteDev_i
}

func (o *vnOps_t) Lookup(name string) (*vnode.Vnode_t, defs.Err_t) { return nil, -defs.ENOTDIR }
func (o *vnOps_t) Create(name string) (*vnode.Vnode_t, defs.Err_t) { return nil, -defs.ENOTDIR }
func (o *vnOps_t) Mkdir(name string) (*vnode.Vnode_t, defs.Err_t)  { return nil, -defs.ENOTDIR }
func (o *vnOps_t) Rmdir(name string) defs.Err_t                     { return -defs.ENOTDIR }
func (o *vnOps_t) Unlink(name string) defs.Err_t                    { return -defs.ENOTDIR }
func (o *vnOps_t) Link(src *vnode.Vnode_t, name string) defs.Err_t  { return -defs.ENOTDIR }
func (o *vnOps_t) Mknod(name string, vtype defs.Vtype_t, dev int) (*vnode.Vnode_t, defs.Err_t) {
	return nil, -defs.ENOTDIR
}
func (o *vnOps_t) Readdir(offset int) (vnode.Dirent_t, int, defs.Err_t) {
	return vnode.Dirent_t{}, 0, -defs.ENOTDIR
}
func (o *vnOps_t) Read(pos int, dst fdops.Userio_i) (int, defs.Err_t)  { return o.dev.Read(dst) }
func (o *vnOps_t) Write(pos int, src fdops.Userio_i) (int, defs.Err_t) { return o.dev.Write(src) }
func (o *vnOps_t) Stat(st *stat.Stat_t) defs.Err_t {
	st.Wmode(stat.S_IFCHR | 0666)
	return 0
}
func (o *vnOps_t) Mmap(vn *vnode.Vnode_t) (interface{}, defs.Err_t) { return nil, -defs.EINVAL }
func (o *vnOps_t) Fillpage(pagenum int, dst []uint8) defs.Err_t    { return -defs.EINVAL }
func (o *vnOps_t) Dirtypage(pagenum int) defs.Err_t                { return -defs.EINVAL }
func (o *vnOps_t) Cleanpage(pagenum int) defs.Err_t                { return -defs.EINVAL }

// dirAdapter is the destination directory Install links the device
// vnodes into (the tmpfs directory for "/dev").
type dirAdapter interface {
	// Link is used by the installer to splice device vnodes into the
	// tmpfs directory created for "/dev"; devfs does not implement a
	// directory itself, it only builds the device vnodes and registers
	// them in the byte-device table.
	Link(src *vnode.Vnode_t, name string) defs.Err_t
}

// Install registers the standard devices and, via link, adds their
// vnodes (name -> vnode) into the "/dev" directory that the caller has
// already created (e.g. with tmpfs.Mkroot's Mkdir("dev")). num_terminals
// ttyN devices are created, N in [0, numTerminals).
func Install(devDir dirAdapter, numTerminals int) {
	registry[devNull] = nullDev{}
	registry[devZero] = zeroDev{}

	nullVn := vnode.Mkvnode(defs.VCHR, &vnOps_t{dev: registry[devNull]})
	nullVn.Dev = devNull
	devDir.Link(nullVn, "null")

	zeroVn := vnode.Mkvnode(defs.VCHR, &vnOps_t{dev: registry[devZero]})
	zeroVn.Dev = devZero
	devDir.Link(zeroVn, "zero")

	for n := 0; n < numTerminals; n++ {
		id := devTTY0 + n
		t := newTTY()
		registry[id] = t
		vn := vnode.Mkvnode(defs.VCHR, &vnOps_t{dev: t})
		vn.Dev = id
		devDir.Link(vn, fmt.Sprintf("tty%d", n))
	}
}
