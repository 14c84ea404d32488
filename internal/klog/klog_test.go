package klog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubsys_String(t *testing.T) {
	assert.Equal(t, "THR", THR.String())
	assert.Equal(t, "PROC", PROC.String())
	assert.Equal(t, "VFS", VFS.String())
	assert.Equal(t, "VM", VM.String())
	assert.Equal(t, "???", Subsys(99).String())
}

func TestEnable_TogglesWithoutPanicking(t *testing.T) {
	assert.False(t, enabled[VM])
	Enable(VM, true)
	assert.True(t, enabled[VM])
	Enable(VM, false)
	assert.False(t, enabled[VM])
}

func TestDbg_DisabledSubsystemIsANoop(t *testing.T) {
	assert.NotPanics(t, func() { Dbg(PROC, "pid=%d", 7) })
}

func TestWarn_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { Warn("something happened: %v", 42) })
}
