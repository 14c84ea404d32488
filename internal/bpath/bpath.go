// Package bpath canonicalizes path strings: collapsing repeated slashes and
// resolving "." and ".." components lexically, the way fd.Cwd_t's
// Canonicalpath expects of it.
package bpath

import "weenixcore/internal/ustr"

// Canonicalize collapses "." and ".." components and repeated separators in
// p, which must already be an absolute path (callers join against the cwd
// first). The result always begins with '/'.
func Canonicalize(p ustr.Ustr) ustr.Ustr {
	segs := split(p)
	out := make([]ustr.Ustr, 0, len(segs))
	for _, s := range segs {
		switch {
		case len(s) == 0:
			continue
		case s.Isdot():
			continue
		case s.Isdotdot():
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	ret := ustr.Ustr{'/'}
	for i, s := range out {
		if i > 0 {
			ret = append(ret, '/')
		}
		ret = append(ret, s...)
	}
	return ret
}

func split(p ustr.Ustr) []ustr.Ustr {
	var segs []ustr.Ustr
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				segs = append(segs, p[start:i])
			}
			start = i + 1
		}
	}
	return segs
}
