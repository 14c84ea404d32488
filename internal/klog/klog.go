// Package klog is this kernel's diagnostic logging shim. It mirrors the
// teacher's conditional dbg(DBG_THR, ...) macros: one bool switch per
// subsystem, checked before formatting, so a disabled subsystem costs
// nothing but a branch.
package klog

import (
	"fmt"
	"log"
	"os"

	"weenixcore/internal/caller"
)

// Subsystem tags, matching the original's DBG_* constants.
type Subsys int

const (
	THR Subsys = iota
	PROC
	VFS
	VM
)

func (s Subsys) String() string {
	switch s {
	case THR:
		return "THR"
	case PROC:
		return "PROC"
	case VFS:
		return "VFS"
	case VM:
		return "VM"
	default:
		return "???"
	}
}

// enabled toggles each subsystem's output. Disabled by default, the way a
// production dbg() build strips most subsystems.
var enabled = [...]bool{THR: false, PROC: false, VFS: false, VM: false}

var std = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)

// Enable turns logging for a subsystem on or off.
func Enable(s Subsys, on bool) { enabled[s] = on }

// Dbg formats and writes msg if the subsystem is enabled, matching the
// call shape of the original's dbg(DBG_THR, "...", args...).
func Dbg(s Subsys, format string, args ...interface{}) {
	if !enabled[s] {
		return
	}
	std.Printf("[%s] %s", s, fmt.Sprintf(format, args...))
}

// warnOnce reports a given call chain's warning only the first time it is
// seen, using caller.Distinct_caller_t to hash the stack.
var warnOnce = &caller.Distinct_caller_t{Enabled: true}

// Warn logs a message once per distinct call chain, to keep a buggy hot
// loop from flooding the log.
func Warn(format string, args ...interface{}) {
	if distinct, _ := warnOnce.Distinct(); distinct {
		std.Printf("[WARN] %s", fmt.Sprintf(format, args...))
	}
}
