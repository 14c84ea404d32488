// Command kernel boots this module's simulated kernel core far enough to
// run the scenario scripts the specification uses to describe observable
// behavior: a path walk and directory listing, a fork/copy-on-write
// address space split, a parent waiting on a dead child, and a mutex
// fairness contest. Grounded on the teacher's boot narrative (idle/init
// bring-up, one "current thread" at a time) with golang.org/x/sync/errgroup
// driving the scenarios as concurrent goroutines instead of the teacher's
// multi-core bring-up, since this core has exactly one logical CPU.
package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"weenixcore/internal/defs"
	"weenixcore/internal/devfs"
	"weenixcore/internal/fdops"
	"weenixcore/internal/fs/tmpfs"
	"weenixcore/internal/klog"
	"weenixcore/internal/mem"
	"weenixcore/internal/mutex"
	"weenixcore/internal/proc"
	"weenixcore/internal/sched"
	"weenixcore/internal/thread"
	"weenixcore/internal/vfs"
	"weenixcore/internal/vm/mmobj"
	"weenixcore/internal/vm/pagefault"
	"weenixcore/internal/vm/vmmap"
	"weenixcore/internal/vnode"
)

const numTerminals = 4
const numPhysPages = 4096

// boot brings the root filesystem, device table, and the two reserved
// processes (idle, pid 0; init, pid 1) into existence. Every later
// scenario runs as a child of init.
func boot() {
	mem.Phys_init(numPhysPages)

	root := tmpfs.Mkroot()
	vfs.Root = root

	devVn, err := root.Ops.Mkdir("dev")
	if err != 0 {
		panic(err)
	}
	devfs.Install(devVn.Ops, numTerminals)

	sched.Big.Lock()
	idle := proc.Proc_create("idle", nil)
	proc.Idle = idle
	init := proc.Proc_create("init", idle)
	proc.Init = init
	sched.Big.Unlock()
}

// runKthread spawns fn as a kernel thread belonging to pid and blocks the
// calling goroutine until it returns, so an errgroup stage can treat a
// scenario as an ordinary synchronous call while still exercising the
// real thread-creation path.
func runKthread(pid defs.Pid_t, fn func()) {
	done := make(chan struct{})
	thread.Kthread_create(pid, func(tn *thread.Tnote_t) {
		defer close(done)
		fn()
	})
	<-done
}

func spawnProcess(name string) *proc.Process_t {
	sched.Big.Lock()
	p := proc.Proc_create(name, proc.Init)
	sched.Big.Unlock()
	return p
}

func main() {
	klog.Enable(klog.PROC, true)
	klog.Enable(klog.VFS, true)
	klog.Enable(klog.VM, true)

	boot()
	klog.Dbg(klog.PROC, "boot complete: idle=%d init=%d\n", proc.Idle.Pid, proc.Init.Pid)

	g, _ := errgroup.WithContext(context.Background())

	g.Go(func() error { return pathWalkScenario() })
	g.Go(func() error { return forkCOWScenario() })
	g.Go(func() error { return waitReapScenario() })
	g.Go(func() error { return mutexFairnessScenario() })

	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "scenario failed:", err)
		os.Exit(1)
	}
	fmt.Println("all scenarios completed")
}

// pathWalkScenario exercises namev path resolution, file creation, and
// getdent's round-trip property: every directory entry is eventually
// returned exactly once and the stream terminates.
func pathWalkScenario() error {
	p := spawnProcess("pathwalk")
	var outerr defs.Err_t
	runKthread(p.Pid, func() {
		sched.Big.Lock()
		defer sched.Big.Unlock()

		if err := vfs.Mkdir(p, "/tmp"); err != 0 {
			outerr = err
			return
		}
		fd, err := vfs.Open(p, "/tmp/hello.txt", defs.O_RDWR|defs.O_CREAT)
		if err != 0 {
			outerr = err
			return
		}
		var ub fdops.Fakeubuf_t
		ub.Fake_init([]byte("hello from boot\n"))
		if _, err := vfs.Write(p, fd, &ub); err != 0 {
			outerr = err
			return
		}
		if err := vfs.Close(p, fd); err != 0 {
			outerr = err
			return
		}

		dfd, err := vfs.Open(p, "/tmp", defs.O_RDONLY)
		if err != 0 {
			outerr = err
			return
		}
		defer vfs.Close(p, dfd)

		seen := map[string]bool{}
		for {
			var dent vnode.Dirent_t
			n, err := vfs.Getdent(p, dfd, &dent)
			if err != 0 {
				outerr = err
				return
			}
			if n == 0 {
				break
			}
			if seen[dent.Name] {
				panic("getdent repeated an entry: " + dent.Name)
			}
			seen[dent.Name] = true
		}
		klog.Dbg(klog.VFS, "pathwalk: /tmp has %d entries\n", len(seen))
	})
	if outerr != 0 {
		return fmt.Errorf("pathwalk scenario: %v", outerr)
	}
	return nil
}

// mapper_t is a no-op Mapper_i: this core simulates page tables, it does
// not program a real MMU, so installing a translation is just bookkeeping
// for the demo rather than a hardware side effect.
type mapper_t struct{ installed int }

func (m *mapper_t) Pt_map(vaddr int, pa uintptr, user, writable bool) { m.installed++ }

// forkCOWScenario builds a two-page anonymous mapping, faults in and
// writes its first page, then clones the address space the way fork does
// and verifies the clone's pages read back identically before any write,
// and that a write fault in the child does not disturb the parent's copy.
func forkCOWScenario() error {
	parentAS := vmmap.Create()
	anon := mmobj.Anon_create()
	vma, err := parentAS.Map(anon, 0, 2, defs.PROT_READ|defs.PROT_WRITE, defs.MAP_PRIVATE|defs.MAP_ANON, 0, vmmap.LoHi)
	if err != 0 {
		return fmt.Errorf("fork scenario: map: %v", err)
	}

	pt := &mapper_t{}
	vaddr0 := vma.Start * defs.PAGE_SIZE
	pagefault.Handle(parentAS, vaddr0, pagefault.Write, pt, func(status defs.Err_t) {
		panic("unexpected fatal fault in parent")
	})

	buf := make([]byte, 4)
	copy(buf, []byte("boot"))
	if err := parentAS.Write(vaddr0, buf, len(buf)); err != 0 {
		return fmt.Errorf("fork scenario: parent write: %v", err)
	}

	childAS := parentAS.Clone()
	pagefault.Fork_addrspace(parentAS, childAS)

	readback := make([]byte, 4)
	if err := childAS.Read(vaddr0, readback, len(readback)); err != 0 {
		return fmt.Errorf("fork scenario: child read: %v", err)
	}
	if string(readback) != "boot" {
		return fmt.Errorf("fork scenario: child saw %q, want %q", readback, "boot")
	}

	childWrite := []byte("CHLD")
	if err := childAS.Write(vaddr0, childWrite, len(childWrite)); err != 0 {
		return fmt.Errorf("fork scenario: child write: %v", err)
	}
	parentReadback := make([]byte, 4)
	if err := parentAS.Read(vaddr0, parentReadback, len(parentReadback)); err != 0 {
		return fmt.Errorf("fork scenario: parent re-read: %v", err)
	}
	if string(parentReadback) != "boot" {
		return fmt.Errorf("fork scenario: parent's copy changed to %q after child's write", parentReadback)
	}

	parentAS.Destroy()
	childAS.Destroy()
	klog.Dbg(klog.VM, "fork scenario: copy-on-write split held\n")
	return nil
}

// waitReapScenario spawns a child that exits immediately with a known
// status and confirms the parent's waitpid observes exactly that status
// and that a second waitpid on the same pid now returns ECHILD.
func waitReapScenario() error {
	parent := spawnProcess("waiter")
	var outerr defs.Err_t
	runKthread(parent.Pid, func() {
		sched.Big.Lock()
		child := proc.Proc_create("waitee", parent)
		sched.Big.Unlock()

		childDone := make(chan struct{})
		thread.Kthread_create(child.Pid, func(tn *thread.Tnote_t) {
			sched.Big.Lock()
			child.AddThread(tn)
			proc.Do_exit(child, 42)
			child.Thread_exited(42)
			sched.Big.Unlock()
			close(childDone)
		})
		<-childDone

		sched.Big.Lock()
		pid, status, err := proc.Do_waitpid(parent, child.Pid, nil)
		sched.Big.Unlock()
		if err != 0 {
			outerr = err
			return
		}
		if pid != child.Pid || status != 42 {
			panic(fmt.Sprintf("waitpid returned (%d, %d), want (%d, 42)", pid, status, child.Pid))
		}

		sched.Big.Lock()
		_, _, err = proc.Do_waitpid(parent, child.Pid, nil)
		sched.Big.Unlock()
		if err != -defs.ECHILD {
			outerr = -defs.EINVAL
			panic("second waitpid on a reaped child did not return ECHILD")
		}
	})
	if outerr != 0 {
		return fmt.Errorf("wait/reap scenario: %v", outerr)
	}
	klog.Dbg(klog.PROC, "wait/reap scenario: child reaped with correct status\n")
	return nil
}

// mutexFairnessScenario starts several goroutines contending for one
// mutex and verifies they acquire it in the exact order they enqueued on
// it, the FIFO guarantee internal/waitq exists to provide. Enqueue order
// is pinned by handing sched.Big to one goroutine at a time until it has
// registered on the mutex's wait queue (by calling Lock while the mutex
// is held), rather than racing goroutines against each other and hoping
// their scheduling order matches spawn order.
func mutexFairnessScenario() error {
	const n = 5
	var mu mutex.Mutex_t
	order := make(chan int, n)
	registered := make(chan struct{})

	sched.Big.Lock()
	mu.Lock()
	sched.Big.Unlock()

	for i := 0; i < n; i++ {
		i := i
		go func() {
			sched.Big.Lock()
			registered <- struct{}{}
			mu.Lock() // blocks: enqueues on mu's waitq, releasing Big until woken
			order <- i
			mu.Unlock()
			sched.Big.Unlock()
		}()
		<-registered
	}

	sched.Big.Lock()
	mu.Unlock()
	sched.Big.Unlock()

	got := make([]int, n)
	for i := 0; i < n; i++ {
		got[i] = <-order
	}
	for i, v := range got {
		if v != i {
			return fmt.Errorf("mutex fairness scenario: acquire order %v, want strictly ascending", got)
		}
	}
	klog.Dbg(klog.PROC, "mutex fairness scenario: %d waiters acquired in FIFO order\n", n)
	return nil
}
