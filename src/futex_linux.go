package elevator

/*------------------------------------------------------------------
 *
 * Purpose:   	Cross-process mutex and condition variable.
 *
 * Description:	The car, the safety monitor, and the maintenance tool
 *		all mutate the same shared memory region, so the lock
 *		protecting it has to live inside the region itself.
 *		The original initialized a pthread mutex and condition
 *		variable with the PROCESS_SHARED attribute; the Go
 *		runtime has no process-shared sync primitives, so this
 *		builds the same thing directly on Linux futexes.
 *
 *		The mutex word holds 0 (free), 1 (held), or 2 (held
 *		with waiters).  The condition variable is a sequence
 *		word: waiters sleep until the sequence moves on from
 *		the value they sampled, and a broadcast bumps it and
 *		wakes everyone.  Spurious wakeups are possible and
 *		every caller re-checks its condition in a loop.
 *
 *		FUTEX_WAIT / FUTEX_WAKE are used without the PRIVATE
 *		flag so the kernel matches waiters across processes.
 *
 *---------------------------------------------------------------*/

import (
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex(2) operation codes. golang.org/x/sys/unix does not export
// these (only the unrelated SYS_FUTEX_WAIT/SYS_FUTEX_WAKE syscall numbers
// for the newer futex2 syscalls), so they are defined here with their
// fixed kernel UAPI values.
const (
	FUTEX_WAIT = 0
	FUTEX_WAKE = 1
)

func futex_wait(addr *uint32, val uint32, timeout time.Duration) error {
	var tsp *unix.Timespec
	if timeout > 0 {
		var ts = unix.NsecToTimespec(timeout.Nanoseconds())
		tsp = &ts
	}

	var _, _, errno = unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(FUTEX_WAIT),
		uintptr(val),
		uintptr(unsafe.Pointer(tsp)),
		0, 0)

	if errno != 0 {
		return errno
	}

	return nil
}

func futex_wake(addr *uint32, howmany int) {
	unix.Syscall6(unix.SYS_FUTEX, //nolint:errcheck
		uintptr(unsafe.Pointer(addr)),
		uintptr(FUTEX_WAKE),
		uintptr(howmany),
		0, 0, 0)
}

/*-------------------------------------------------------------------
 *
 * Name:        shm_mutex_lock / shm_mutex_unlock
 *
 * Purpose:     Take and release the region lock.
 *
 * Description:	The classic three-state futex mutex.  Uncontended
 *		lock and unlock never enter the kernel.
 *
 *--------------------------------------------------------------------*/

func shm_mutex_lock(word *uint32) {
	if atomic.CompareAndSwapUint32(word, 0, 1) {
		return
	}

	for {
		if atomic.LoadUint32(word) == 2 || atomic.CompareAndSwapUint32(word, 1, 2) {
			futex_wait(word, 2, 0) //nolint:errcheck
		}
		if atomic.CompareAndSwapUint32(word, 0, 2) {
			return
		}
	}
}

func shm_mutex_unlock(word *uint32) {
	if atomic.AddUint32(word, ^uint32(0)) != 0 {
		atomic.StoreUint32(word, 0)
		futex_wake(word, 1)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        shm_cond_wait
 *
 * Purpose:     Wait on the region's condition variable.
 *
 * Inputs:	seq	- Condition sequence word in the region.
 *		mutex	- Region mutex word, held by the caller.
 *		timeout	- Zero means wait forever.
 *
 * Returns:	true if the wait timed out, false if (possibly
 *		spuriously) wakened.  Either way the mutex is held
 *		again on return.
 *
 *--------------------------------------------------------------------*/

func shm_cond_wait(seq *uint32, mutex *uint32, timeout time.Duration) bool {
	var sampled = atomic.LoadUint32(seq)

	shm_mutex_unlock(mutex)

	var err = futex_wait(seq, sampled, timeout)

	shm_mutex_lock(mutex)

	return err == unix.ETIMEDOUT
}

func shm_cond_broadcast(seq *uint32) {
	atomic.AddUint32(seq, 1)
	futex_wake(seq, int(^uint32(0)>>1))
}
