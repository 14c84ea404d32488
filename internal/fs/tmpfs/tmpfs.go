// Package tmpfs is an in-memory filesystem implementing vnode.VnOps_i:
// directories are backed by internal/hashtable (the same bucket-striped
// table the teacher uses for its on-disk directory cache), regular files
// by a plain byte slice. It exists so internal/vfs and internal/vm have a
// concrete vn_ops provider to drive in tests, the way the specification's
// "out of scope" on-disk filesystem would in a full kernel.
package tmpfs

import (
	"sync"

	"weenixcore/internal/defs"
	"weenixcore/internal/fdops"
	"weenixcore/internal/hashtable"
	"weenixcore/internal/stat"
	"weenixcore/internal/vnode"
)

var inoCounter int

func nextIno() int {
	inoCounter++
	return inoCounter
}

// dirOps_t backs a directory vnode: a name -> *vnode.Vnode_t table plus
// ordered names for stable Readdir iteration (hashtable.Iter's order is
// bucket order, not insertion order, and getdent's round-trip property
// depends on a stable, terminating iteration).
type dirOps_t struct {
	mu      sync.Mutex
	ino     int
	entries *hashtable.Hashtable_t
	order   []string
}

func newDir(parent *vnode.Vnode_t) *vnode.Vnode_t {
	d := &dirOps_t{ino: nextIno(), entries: hashtable.MkHash(16)}
	vn := vnode.Mkvnode(defs.VDIR, d)
	self := vn
	d.put(".", self)
	if parent != nil {
		d.put("..", parent)
	} else {
		d.put("..", self)
	}
	return vn
}

func (d *dirOps_t) put(name string, vn *vnode.Vnode_t) {
	if _, inserted := d.entries.Set(name, vn); !inserted {
		return
	}
	d.order = append(d.order, name)
}

func (d *dirOps_t) del(name string) {
	d.entries.Del(name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *dirOps_t) get(name string) (*vnode.Vnode_t, bool) {
	v, ok := d.entries.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*vnode.Vnode_t), true
}

func (d *dirOps_t) Lookup(name string) (*vnode.Vnode_t, defs.Err_t) {
	d.mu.Lock()
	defer d.mu.Unlock()
	vn, ok := d.get(name)
	if !ok {
		return nil, -defs.ENOENT
	}
	vnode.Vref(vn)
	return vn, 0
}

func (d *dirOps_t) Create(name string) (*vnode.Vnode_t, defs.Err_t) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.get(name); ok {
		return nil, -defs.EEXIST
	}
	vn := vnode.Mkvnode(defs.VREG, &fileOps_t{ino: nextIno()})
	d.put(name, vn)
	vnode.Vref(vn)
	return vn, 0
}

func (d *dirOps_t) Mkdir(name string) (*vnode.Vnode_t, defs.Err_t) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.get(name); ok {
		return nil, -defs.EEXIST
	}
	self, _ := d.get(".")
	nvn := newDir(self)
	d.put(name, nvn)
	vnode.Vref(nvn)
	return nvn, 0
}

func (d *dirOps_t) Rmdir(name string) defs.Err_t {
	d.mu.Lock()
	defer d.mu.Unlock()
	vn, ok := d.get(name)
	if !ok {
		return -defs.ENOENT
	}
	if !vn.IsDir() {
		return -defs.ENOTDIR
	}
	sub := vn.Ops.(*dirOps_t)
	if len(sub.order) > 2 { // more than "." and ".."
		return -defs.ENOTEMPTY
	}
	d.del(name)
	return 0
}

func (d *dirOps_t) Unlink(name string) defs.Err_t {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.get(name); !ok {
		return -defs.ENOENT
	}
	d.del(name)
	return 0
}

func (d *dirOps_t) Link(src *vnode.Vnode_t, name string) defs.Err_t {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.get(name); ok {
		return -defs.EEXIST
	}
	vnode.Vref(src)
	d.put(name, src)
	return 0
}

func (d *dirOps_t) Mknod(name string, vtype defs.Vtype_t, dev int) (*vnode.Vnode_t, defs.Err_t) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.get(name); ok {
		return nil, -defs.EEXIST
	}
	vn := vnode.Mkvnode(vtype, &fileOps_t{ino: nextIno()})
	vn.Dev = dev
	d.put(name, vn)
	vnode.Vref(vn)
	return vn, 0
}

func (d *dirOps_t) Readdir(offset int) (vnode.Dirent_t, int, defs.Err_t) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset >= len(d.order) {
		return vnode.Dirent_t{}, 0, 0
	}
	name := d.order[offset]
	vn, _ := d.get(name)
	ino := 0
	if vn != nil {
		ino = direntIno(vn)
	}
	return vnode.Dirent_t{Ino: ino, Name: name}, 1, 0
}

func direntIno(vn *vnode.Vnode_t) int {
	switch o := vn.Ops.(type) {
	case *dirOps_t:
		return o.ino
	case *fileOps_t:
		return o.ino
	default:
		return 0
	}
}

func (d *dirOps_t) Read(pos int, dst fdops.Userio_i) (int, defs.Err_t)  { return 0, -defs.EISDIR }
func (d *dirOps_t) Write(pos int, src fdops.Userio_i) (int, defs.Err_t) { return 0, -defs.EISDIR }

func (d *dirOps_t) Stat(st *stat.Stat_t) defs.Err_t {
	st.Wmode(stat.S_IFDIR | 0755)
	st.Wino(uint(d.ino))
	st.Wsize(0)
	return 0
}

func (d *dirOps_t) Mmap(vn *vnode.Vnode_t) (interface{}, defs.Err_t) { return nil, -defs.EINVAL }
func (d *dirOps_t) Fillpage(pagenum int, dst []uint8) defs.Err_t    { return -defs.EINVAL }
func (d *dirOps_t) Dirtypage(pagenum int) defs.Err_t                { return -defs.EINVAL }
func (d *dirOps_t) Cleanpage(pagenum int) defs.Err_t                { return -defs.EINVAL }

// fileOps_t backs a regular file vnode: its entire content lives in data,
// grown on demand by Write.
type fileOps_t struct {
	mu   sync.Mutex
	ino  int
	data []byte
}

func (f *fileOps_t) Lookup(name string) (*vnode.Vnode_t, defs.Err_t)     { return nil, -defs.ENOTDIR }
func (f *fileOps_t) Create(name string) (*vnode.Vnode_t, defs.Err_t)     { return nil, -defs.ENOTDIR }
func (f *fileOps_t) Mkdir(name string) (*vnode.Vnode_t, defs.Err_t)      { return nil, -defs.ENOTDIR }
func (f *fileOps_t) Rmdir(name string) defs.Err_t                        { return -defs.ENOTDIR }
func (f *fileOps_t) Unlink(name string) defs.Err_t                       { return -defs.ENOTDIR }
func (f *fileOps_t) Link(src *vnode.Vnode_t, name string) defs.Err_t     { return -defs.ENOTDIR }
func (f *fileOps_t) Mknod(name string, vtype defs.Vtype_t, dev int) (*vnode.Vnode_t, defs.Err_t) {
	return nil, -defs.ENOTDIR
}
func (f *fileOps_t) Readdir(offset int) (vnode.Dirent_t, int, defs.Err_t) {
	return vnode.Dirent_t{}, 0, -defs.ENOTDIR
}

func (f *fileOps_t) Read(pos int, dst fdops.Userio_i) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pos >= len(f.data) {
		return 0, 0
	}
	n, err := dst.Uiowrite(f.data[pos:])
	return n, err
}

func (f *fileOps_t) Write(pos int, src fdops.Userio_i) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	need := pos + src.Remain()
	if need > len(f.data) {
		grown := make([]byte, need)
		copy(grown, f.data)
		f.data = grown
	}
	n, err := src.Uioread(f.data[pos:])
	return n, err
}

func (f *fileOps_t) Stat(st *stat.Stat_t) defs.Err_t {
	f.mu.Lock()
	defer f.mu.Unlock()
	st.Wmode(stat.S_IFREG | 0644)
	st.Wino(uint(f.ino))
	st.Wsize(uint(len(f.data)))
	return 0
}

func (f *fileOps_t) Mmap(vn *vnode.Vnode_t) (interface{}, defs.Err_t) { return nil, -defs.EINVAL }
func (f *fileOps_t) Fillpage(pagenum int, dst []uint8) defs.Err_t {
	f.mu.Lock()
	defer f.mu.Unlock()
	off := pagenum * defs.PAGE_SIZE
	if off < len(f.data) {
		copy(dst, f.data[off:])
	}
	return 0
}
func (f *fileOps_t) Dirtypage(pagenum int) defs.Err_t { return 0 }
func (f *fileOps_t) Cleanpage(pagenum int) defs.Err_t { return 0 }

// Mkroot builds a fresh tmpfs and returns its root vnode, self-parented
// (its ".." entry points at itself, matching every real filesystem's
// root).
func Mkroot() *vnode.Vnode_t {
	return newDir(nil)
}
