// Package namev implements path-name resolution: lookup, dir_namev and
// open_namev, exactly as described in the specification's VFS
// path-resolution section. It sits between internal/vfs (the syscall
// entry points) and internal/vnode (the per-fs lookup operation).
package namev

import (
	"strings"

	"weenixcore/internal/defs"
	"weenixcore/internal/vnode"
)

// NAME_LEN bounds a single path component's length; MAXPATHLEN bounds the
// whole path, mirroring the constants named in the specification.
const (
	NAME_LEN    = defs.NAME_LEN
	MAXPATHLEN  = defs.MAXPATHLEN
)

// Lookup resolves a single path component name within dir. "." and the
// empty segment return a new reference to dir itself; anything longer
// than NAME_LEN is rejected before ever reaching the filesystem.
func Lookup(dir *vnode.Vnode_t, name string) (*vnode.Vnode_t, defs.Err_t) {
	if !dir.IsDir() {
		return nil, -defs.ENOTDIR
	}
	if len(name) > NAME_LEN {
		return nil, -defs.ENAMETOOLONG
	}
	if name == "." || name == "" {
		vnode.Vref(dir)
		return dir, 0
	}
	return dir.Ops.Lookup(name)
}

// Dir_namev walks every path component but the last, starting from base
// (the process's root if path is absolute, its cwd if base is nil and the
// path is relative). It returns the basename's parent directory (with a
// new reference the caller must release), the basename itself, and any
// error encountered along the way — in which case the parent reference,
// if one was ever taken, has already been released.
func Dir_namev(path string, base *vnode.Vnode_t, cwd *vnode.Vnode_t, root *vnode.Vnode_t) (*vnode.Vnode_t, string, defs.Err_t) {
	if len(path) > MAXPATHLEN {
		return nil, "", -defs.ENAMETOOLONG
	}
	var cur *vnode.Vnode_t
	rest := path
	switch {
	case strings.HasPrefix(path, "/"):
		cur = root
		rest = strings.TrimPrefix(rest, "/")
	case base != nil:
		cur = base
	default:
		cur = cwd
	}
	vnode.Vref(cur)

	segs := splitNonEmpty(rest)
	if len(segs) == 0 {
		// Path is "/" or "": caller's basename is "." against cur itself.
		return cur, ".", 0
	}
	for _, seg := range segs[:len(segs)-1] {
		if len(seg) > NAME_LEN {
			vnode.Vput(cur)
			return nil, "", -defs.ENAMETOOLONG
		}
		next, err := Lookup(cur, seg)
		vnode.Vput(cur)
		if err != 0 {
			return nil, "", err
		}
		cur = next
	}
	last := segs[len(segs)-1]
	if len(last) > NAME_LEN {
		vnode.Vput(cur)
		return nil, "", -defs.ENAMETOOLONG
	}
	return cur, last, 0
}

// Open_namev resolves path to a vnode, creating it via parent.Ops.Create
// if it does not exist and flags requests O_CREAT. The parent reference
// obtained internally is always released before returning, on every path.
func Open_namev(path string, flags int, base, cwd, root *vnode.Vnode_t) (*vnode.Vnode_t, defs.Err_t) {
	if len(path) > MAXPATHLEN {
		return nil, -defs.ENAMETOOLONG
	}
	parent, name, err := Dir_namev(path, base, cwd, root)
	if err != 0 {
		return nil, err
	}
	defer vnode.Vput(parent)

	vn, err := Lookup(parent, name)
	if err == -defs.ENOENT && flags&defs.O_CREAT != 0 {
		return parent.Ops.Create(name)
	}
	return vn, err
}

func splitNonEmpty(p string) []string {
	raw := strings.Split(p, "/")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
