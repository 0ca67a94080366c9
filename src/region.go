package elevator

/*------------------------------------------------------------------
 *
 * Purpose:   	The car's shared state region.
 *
 * Description:	Every car owns one POSIX shared memory object, named
 *		"/car" + its display name, holding its live state.
 *		The safety monitor and the maintenance tool attach to
 *		the same object read-write, and so does the controller
 *		to mirror status there.
 *
 *		The layout below is the ABI between all of them and
 *		must not change without bumping every process at once:
 *
 *		offset  size  field
 *		     0     4  mutex word (futex)
 *		     4     4  condition sequence word (futex)
 *		     8     8  status, NUL terminated ("Closed", ...)
 *		    16     4  current_floor, NUL terminated
 *		    20     4  destination_floor, NUL terminated
 *		    24     1  open_button
 *		    25     1  close_button
 *		    26     1  door_obstruction
 *		    27     1  overload
 *		    28     1  emergency_stop
 *		    29     1  individual_service_mode
 *		    30     1  emergency_mode
 *		    31     1  safety_system counter
 *		    32    32  reserved
 *
 *		The mutex is the only synchronization; none of the
 *		fields is individually atomic.  Every read or write of
 *		any field happens with the mutex held.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	REGION_OFF_MUTEX   = 0
	REGION_OFF_COND    = 4
	REGION_OFF_STATUS  = 8
	REGION_OFF_CURRENT = 16
	REGION_OFF_DEST    = 20
	REGION_OFF_FLAGS   = 24
	REGION_OFF_SAFETY  = 31
	REGION_TOTAL_SIZE  = 64

	REGION_SHM_DIR     = "/dev/shm/"
	REGION_NAME_PREFIX = "car"
)

/* Flag indices, offset from REGION_OFF_FLAGS. */

const (
	FLAG_OPEN_BUTTON = iota
	FLAG_CLOSE_BUTTON
	FLAG_DOOR_OBSTRUCTION
	FLAG_OVERLOAD
	FLAG_EMERGENCY_STOP
	FLAG_INDIVIDUAL_SERVICE
	FLAG_EMERGENCY_MODE
	FLAG_COUNT
)

type shm_region_t struct {
	name  string /* Car display name, not the shm object name. */
	mem   []byte
	fd    int
	owner bool /* Only the owner (the car) may unlink. */
}

func region_path(car_name string) string {
	return REGION_SHM_DIR + REGION_NAME_PREFIX + car_name
}

func region_name_valid(car_name string) bool {
	if len(car_name) == 0 || len(car_name) > MAX_CAR_NAME {
		return false
	}
	return !strings.ContainsAny(car_name, "/ \t\n")
}

/*-------------------------------------------------------------------
 *
 * Name:        region_create
 *
 * Purpose:     Create and map a car's shared region.  Car only.
 *
 * Inputs:	car_name	- Display name; the shm object becomes
 *				  "/car<name>".
 *
 * Description:	Sizes the object and zeroes it, which leaves the
 *		mutex free and the condition sequence at zero.  The
 *		caller initializes the state fields under the lock.
 *
 *--------------------------------------------------------------------*/

func region_create(car_name string) (*shm_region_t, error) {
	if !region_name_valid(car_name) {
		return nil, fmt.Errorf("bad car name %q", car_name)
	}

	var fd, openErr = unix.Open(region_path(car_name), unix.O_CREAT|unix.O_RDWR, 0o666)
	if openErr != nil {
		return nil, fmt.Errorf("create region for %s: %w", car_name, openErr)
	}

	if err := unix.Ftruncate(fd, REGION_TOTAL_SIZE); err != nil {
		unix.Close(fd) //nolint:errcheck
		return nil, fmt.Errorf("size region for %s: %w", car_name, err)
	}

	var mem, mmapErr = unix.Mmap(fd, 0, REGION_TOTAL_SIZE, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if mmapErr != nil {
		unix.Close(fd) //nolint:errcheck
		return nil, fmt.Errorf("map region for %s: %w", car_name, mmapErr)
	}

	for i := range mem {
		mem[i] = 0
	}

	return &shm_region_t{name: car_name, mem: mem, fd: fd, owner: true}, nil
}

/*-------------------------------------------------------------------
 *
 * Name:        region_attach
 *
 * Purpose:     Map an existing car's region.  Safety monitor,
 *		maintenance tool, and controller use this.  Attachers
 *		never create and never unlink.
 *
 *--------------------------------------------------------------------*/

func region_attach(car_name string) (*shm_region_t, error) {
	if !region_name_valid(car_name) {
		return nil, fmt.Errorf("bad car name %q", car_name)
	}

	var fd, openErr = unix.Open(region_path(car_name), unix.O_RDWR, 0)
	if openErr != nil {
		return nil, fmt.Errorf("no region for car %s: %w", car_name, openErr)
	}

	var mem, mmapErr = unix.Mmap(fd, 0, REGION_TOTAL_SIZE, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if mmapErr != nil {
		unix.Close(fd) //nolint:errcheck
		return nil, fmt.Errorf("map region for %s: %w", car_name, mmapErr)
	}

	return &shm_region_t{name: car_name, mem: mem, fd: fd, owner: false}, nil
}

func (r *shm_region_t) detach() {
	if r.mem != nil {
		unix.Munmap(r.mem) //nolint:errcheck
		r.mem = nil
	}
	if r.fd >= 0 {
		unix.Close(r.fd) //nolint:errcheck
		r.fd = -1
	}
}

func (r *shm_region_t) unlink() {
	if r.owner {
		unix.Unlink(region_path(r.name)) //nolint:errcheck
	}
}

/*
 * Lock, timed wait, and broadcast.  See futex_linux.go.
 */

func (r *shm_region_t) mutex_word() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.mem[REGION_OFF_MUTEX]))
}

func (r *shm_region_t) cond_word() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.mem[REGION_OFF_COND]))
}

func (r *shm_region_t) lock() {
	shm_mutex_lock(r.mutex_word())
}

func (r *shm_region_t) unlock() {
	shm_mutex_unlock(r.mutex_word())
}

// Returns true on timeout.  Mutex must be held; it is held again on return.
func (r *shm_region_t) wait(timeout time.Duration) bool {
	return shm_cond_wait(r.cond_word(), r.mutex_word(), timeout)
}

func (r *shm_region_t) broadcast() {
	shm_cond_broadcast(r.cond_word())
}

/*
 * Field accessors.  All of these assume the caller holds the lock.
 * Strings are NUL terminated in their fixed slots because the other
 * processes treat them as C strings.
 */

func region_get_string(mem []byte, off int, size int) string {
	var field = mem[off : off+size]
	for i, b := range field {
		if b == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

func region_set_string(mem []byte, off int, size int, s string) {
	if len(s) > size-1 {
		s = s[:size-1]
	}
	var field = mem[off : off+size]
	copy(field, s)
	for i := len(s); i < size; i++ {
		field[i] = 0
	}
}

func (r *shm_region_t) status() string {
	return region_get_string(r.mem, REGION_OFF_STATUS, STATUS_FIELD_SIZE)
}

func (r *shm_region_t) set_status(s string) {
	region_set_string(r.mem, REGION_OFF_STATUS, STATUS_FIELD_SIZE, s)
}

func (r *shm_region_t) current_floor() string {
	return region_get_string(r.mem, REGION_OFF_CURRENT, FLOOR_FIELD_SIZE)
}

func (r *shm_region_t) set_current_floor(s string) {
	region_set_string(r.mem, REGION_OFF_CURRENT, FLOOR_FIELD_SIZE, s)
}

func (r *shm_region_t) destination_floor() string {
	return region_get_string(r.mem, REGION_OFF_DEST, FLOOR_FIELD_SIZE)
}

func (r *shm_region_t) set_destination_floor(s string) {
	region_set_string(r.mem, REGION_OFF_DEST, FLOOR_FIELD_SIZE, s)
}

func (r *shm_region_t) flag(index int) byte {
	Assert(index >= 0 && index < FLAG_COUNT)
	return r.mem[REGION_OFF_FLAGS+index]
}

func (r *shm_region_t) set_flag(index int, v byte) {
	Assert(index >= 0 && index < FLAG_COUNT)
	r.mem[REGION_OFF_FLAGS+index] = v
}

func (r *shm_region_t) safety_system() byte {
	return r.mem[REGION_OFF_SAFETY]
}

func (r *shm_region_t) set_safety_system(v byte) {
	r.mem[REGION_OFF_SAFETY] = v
}
