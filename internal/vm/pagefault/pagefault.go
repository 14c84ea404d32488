// Package pagefault resolves a page fault against the faulting process's
// vmmap, and implements fork's address-space cloning. Grounded on the
// specification's §4.8 page-fault handler and §4.9 fork.
package pagefault

import (
	"golang.org/x/arch/x86/x86asm"

	"weenixcore/internal/defs"
	"weenixcore/internal/vm/mmobj"
	"weenixcore/internal/vm/vmmap"
)

// Cause_t is the fault-cause bitmask delivered by the trap frame.
type Cause_t int

const (
	Present Cause_t = 1 << iota
	Write
	Exec
	Reserved
)

// Mapper_i installs a resolved translation into the faulting process's
// page tables; supplied by the (out of scope) hardware paging layer.
type Mapper_i interface {
	Pt_map(vaddr int, pa uintptr, user, writable bool)
}

// Handle resolves a fault at vaddr with the given cause against as. kill
// is called (instead of returning an error) whenever the fault is fatal
// to the process, matching the specification's rule that page-fault
// failures are process-visible, not kernel-visible.
func Handle(as *vmmap.Vmmap_t, vaddr int, cause Cause_t, pt Mapper_i, kill func(status defs.Err_t)) {
	vfn := vaddr / defs.PAGE_SIZE
	vma := as.Lookup(vfn)
	if vma == nil {
		kill(-defs.EFAULT)
		return
	}
	if cause&Present == 0 {
		if cause&Write != 0 && vma.Prot&defs.PROT_WRITE == 0 {
			kill(-defs.EFAULT)
			return
		}
		if cause&Exec != 0 && vma.Prot&defs.PROT_EXEC == 0 {
			kill(-defs.EFAULT)
			return
		}
		if cause&Reserved != 0 {
			kill(-defs.EFAULT)
			return
		}
	}

	pagenum := vfn - vma.Start + vma.Off
	forwrite := cause&Write != 0
	pf, err := vma.Obj.Lookuppage(pagenum, forwrite)
	if err != 0 {
		return // no mapping installed; the instruction will fault again
	}

	writable := forwrite && vma.Prot&defs.PROT_WRITE != 0
	pt.Pt_map(vaddr&^(defs.PAGE_SIZE-1), uintptr(pf.PA()), true, writable)
}

// DecodeFaultingInsn decodes the x86 instruction at the faulting
// program counter, used only for the kernel's fault diagnostics (it
// distinguishes, e.g., a faulting read from a faulting write on
// architectures/traps where the cause bitmask alone is ambiguous).
func DecodeFaultingInsn(code []byte) (x86asm.Inst, error) {
	return x86asm.Decode(code, 64)
}

// Fork_addrspace builds the child's vmmap from the parent's, following
// §4.9: a MAP_SHARED vma has its child share the parent's object
// directly; a MAP_PRIVATE vma gets two new shadow objects, one per side,
// both shadowing the same prior object and sharing the same bottom.
// parentAS is mutated in place (its vmareas' objects are replaced by
// fresh shadows); childAS must already be parentAS.Clone().
func Fork_addrspace(parentAS, childAS *vmmap.Vmmap_t) {
	pareas := parentAS.Areas()
	chareas := childAS.Areas()
	if len(pareas) != len(chareas) {
		panic("pagefault: cloned vmmap has different area count")
	}
	for i, pa := range pareas {
		ca := chareas[i]
		if pa.Flags&defs.MAP_SHARED != 0 {
			pa.Obj.Ref()
			ca.Obj = pa.Obj
			continue
		}
		bottom := pa.Obj
		if sh, ok := pa.Obj.(*mmobj.Shadow_t); ok {
			bottom = sh.Bottom
		}
		parentShadow := mmobj.Shadow_create(pa.Obj, bottom)
		childShadow := mmobj.Shadow_create(pa.Obj, bottom)
		pa.Obj.Put() // parentAS's vmarea no longer directly owns the old object
		pa.Obj = parentShadow
		ca.Obj = childShadow
	}
}
