package vfs

import (
	"weenixcore/internal/defs"
	"weenixcore/internal/fdops"
	"weenixcore/internal/namev"
	"weenixcore/internal/stat"
	"weenixcore/internal/vnode"
)

// Root is the filesystem root vnode, installed once at boot.
var Root *vnode.Vnode_t

// Proc_i is the slice of proc.Process_t that vfs needs: a fd table and a
// cwd. Declared as an interface (rather than importing internal/proc
// directly) so vfs and proc can be developed and tested independently;
// internal/proc's Process_t satisfies it.
type Proc_i interface {
	FdSlot(i int) *fdops.Fd_t
	SetFdSlot(i int, fd *fdops.Fd_t)
	CwdVnode() *vnode.Vnode_t
	SetCwdVnode(vn *vnode.Vnode_t)
}

func classify(oflags int) (int, defs.Err_t) {
	switch oflags & (defs.O_RDONLY | defs.O_WRONLY | defs.O_RDWR) {
	case defs.O_RDONLY:
		return fdops.FD_READ, 0
	case defs.O_WRONLY:
		return fdops.FD_WRITE, 0
	case defs.O_RDWR:
		return fdops.FD_READ | fdops.FD_WRITE, 0
	default:
		return 0, -defs.EINVAL
	}
}

func getEmptyFd(p Proc_i) (int, defs.Err_t) {
	for i := 0; i < defs.NFILES; i++ {
		if p.FdSlot(i) == nil {
			return i, 0
		}
	}
	return 0, -defs.EMFILE
}

// Open implements open(2): resolves path via open_namev, classifies the
// access mode, and installs a new vfile_t into the first free fd slot.
func Open(p Proc_i, path string, oflags int) (int, defs.Err_t) {
	perms, err := classify(oflags)
	if err != 0 {
		return 0, err
	}
	if oflags&defs.O_APPEND != 0 {
		perms |= fdops.FD_WRITE
	}
	fdn, err := getEmptyFd(p)
	if err != 0 {
		return 0, err
	}

	vn, err := namev.Open_namev(path, oflags, nil, p.CwdVnode(), Root)
	if err != 0 {
		return 0, err
	}
	if vn.IsDir() && perms&fdops.FD_WRITE != 0 {
		vnode.Vput(vn)
		return 0, -defs.EISDIR
	}
	if (vn.Vtype == defs.VCHR || vn.Vtype == defs.VBLK) && vn.Dev == 0 {
		vnode.Vput(vn)
		return 0, -defs.ENXIO
	}

	vf := newVfile(vn, perms)
	if oflags&defs.O_TRUNC != 0 && perms&fdops.FD_WRITE != 0 {
		vf.pos = 0
		vn.Len = 0
	}
	if oflags&defs.O_APPEND != 0 {
		vf.append = true
		vf.pos = vn.Len
	}
	p.SetFdSlot(fdn, &fdops.Fd_t{Fops: vf, Perms: perms})
	return fdn, 0
}

// Close implements close(2).
func Close(p Proc_i, fd int) defs.Err_t {
	if fd < 0 || fd >= defs.NFILES || p.FdSlot(fd) == nil {
		return -defs.EBADF
	}
	f := p.FdSlot(fd)
	p.SetFdSlot(fd, nil)
	fdops.Close_panic(f)
	return 0
}

// Read implements read(2).
func Read(p Proc_i, fd int, dst fdops.Userio_i) (int, defs.Err_t) {
	f := p.FdSlot(fd)
	if f == nil {
		return 0, -defs.EBADF
	}
	return f.Fops.Read(dst)
}

// Write implements write(2).
func Write(p Proc_i, fd int, src fdops.Userio_i) (int, defs.Err_t) {
	f := p.FdSlot(fd)
	if f == nil {
		return 0, -defs.EBADF
	}
	return f.Fops.Write(src)
}

// Lseek implements lseek(2).
func Lseek(p Proc_i, fd int, off int, whence int) (int, defs.Err_t) {
	f := p.FdSlot(fd)
	if f == nil {
		return 0, -defs.EBADF
	}
	return f.Fops.Lseek(off, whence)
}

// Dup implements dup(2): duplicates fd into the first free slot.
func Dup(p Proc_i, fd int) (int, defs.Err_t) {
	f := p.FdSlot(fd)
	if f == nil {
		return 0, -defs.EBADF
	}
	nfd, err := getEmptyFd(p)
	if err != 0 {
		return 0, err
	}
	copied, err := fdops.Copyfd(f)
	if err != 0 {
		return 0, err
	}
	p.SetFdSlot(nfd, copied)
	return nfd, 0
}

// Dup2 implements dup2(2).
func Dup2(p Proc_i, ofd, nfd int) (int, defs.Err_t) {
	if nfd < 0 || nfd >= defs.NFILES {
		return 0, -defs.EBADF
	}
	f := p.FdSlot(ofd)
	if f == nil {
		return 0, -defs.EBADF
	}
	if ofd == nfd {
		return nfd, 0
	}
	if old := p.FdSlot(nfd); old != nil {
		fdops.Close_panic(old)
	}
	copied, err := fdops.Copyfd(f)
	if err != 0 {
		return 0, err
	}
	p.SetFdSlot(nfd, copied)
	return nfd, 0
}

// Mknod implements mknod(2).
func Mknod(p Proc_i, path string, vtype defs.Vtype_t, dev int) defs.Err_t {
	if vtype != defs.VCHR && vtype != defs.VBLK {
		return -defs.EINVAL
	}
	parent, name, err := namev.Dir_namev(path, nil, p.CwdVnode(), Root)
	if err != 0 {
		return err
	}
	defer vnode.Vput(parent)
	if existing, err := namev.Lookup(parent, name); err == 0 {
		vnode.Vput(existing)
		return -defs.EEXIST
	}
	vn, err := parent.Ops.Mknod(name, vtype, dev)
	if err == 0 {
		vnode.Vput(vn)
	}
	return err
}

// Mkdir implements mkdir(2).
func Mkdir(p Proc_i, path string) defs.Err_t {
	if path == "" {
		return -defs.EINVAL
	}
	parent, name, err := namev.Dir_namev(path, nil, p.CwdVnode(), Root)
	if err != 0 {
		return err
	}
	defer vnode.Vput(parent)
	if existing, err := namev.Lookup(parent, name); err == 0 {
		vnode.Vput(existing)
		return -defs.EEXIST
	}
	vn, err := parent.Ops.Mkdir(name)
	if err == 0 {
		vnode.Vput(vn)
	}
	return err
}

// Rmdir implements rmdir(2).
func Rmdir(p Proc_i, path string) defs.Err_t {
	parent, name, err := namev.Dir_namev(path, nil, p.CwdVnode(), Root)
	if err != 0 {
		return err
	}
	defer vnode.Vput(parent)
	if name == "." {
		return -defs.EINVAL
	}
	if name == ".." {
		return -defs.ENOTEMPTY
	}
	return parent.Ops.Rmdir(name)
}

// Unlink implements unlink(2).
func Unlink(p Proc_i, path string) defs.Err_t {
	parent, name, err := namev.Dir_namev(path, nil, p.CwdVnode(), Root)
	if err != 0 {
		return err
	}
	defer vnode.Vput(parent)
	target, err := namev.Lookup(parent, name)
	if err != 0 {
		return err
	}
	isdir := target.IsDir()
	vnode.Vput(target)
	if isdir {
		return -defs.EISDIR
	}
	return parent.Ops.Unlink(name)
}

// Link implements link(2).
func Link(p Proc_i, from, to string) defs.Err_t {
	srcVn, err := namev.Open_namev(from, defs.O_RDONLY, nil, p.CwdVnode(), Root)
	if err != 0 {
		return err
	}
	defer vnode.Vput(srcVn)
	if srcVn.IsDir() {
		return -defs.EISDIR
	}
	parent, name, err := namev.Dir_namev(to, nil, p.CwdVnode(), Root)
	if err != 0 {
		return err
	}
	defer vnode.Vput(parent)
	if existing, err := namev.Lookup(parent, name); err == 0 {
		vnode.Vput(existing)
		return -defs.EEXIST
	}
	return parent.Ops.Link(srcVn, name)
}

// Rename implements rename(2) as link-then-unlink: deliberately
// non-atomic, so a failed unlink after a successful link leaves two
// links to the same file, matching the documented weakness this core
// preserves rather than papers over.
func Rename(p Proc_i, oldpath, newpath string) defs.Err_t {
	if err := Link(p, oldpath, newpath); err != 0 {
		return err
	}
	return Unlink(p, oldpath)
}

// Chdir implements chdir(2).
func Chdir(p Proc_i, path string) defs.Err_t {
	vn, err := namev.Open_namev(path, defs.O_RDONLY, nil, p.CwdVnode(), Root)
	if err != 0 {
		return err
	}
	if !vn.IsDir() {
		vnode.Vput(vn)
		return -defs.ENOTDIR
	}
	old := p.CwdVnode()
	p.SetCwdVnode(vn)
	if old != nil {
		vnode.Vput(old)
	}
	return 0
}

// Getdent implements getdent(2): reads one directory entry at the fd's
// current position, returning sizeof(dirent) or 0 at end-of-directory.
func Getdent(p Proc_i, fd int, out *vnode.Dirent_t) (int, defs.Err_t) {
	f := p.FdSlot(fd)
	if f == nil {
		return 0, -defs.EBADF
	}
	vf, ok := f.Fops.(*vfile_t)
	if !ok || !vf.vn.IsDir() {
		return 0, -defs.ENOTDIR
	}
	dent, consumed, err := vf.vn.Ops.Readdir(vf.pos)
	if err != 0 {
		return 0, err
	}
	if consumed == 0 {
		return 0, 0
	}
	*out = dent
	vf.pos += consumed
	return dirent_size, 0
}

const dirent_size = int(defs.NAME_LEN) + 8

// Stat implements stat(2).
func Stat(p Proc_i, path string, out *stat.Stat_t) defs.Err_t {
	vn, err := namev.Open_namev(path, defs.O_RDONLY, nil, p.CwdVnode(), Root)
	if err != 0 {
		return err
	}
	defer vnode.Vput(vn)
	return vn.Ops.Stat(out)
}
