package elevator

/*------------------------------------------------------------------
 *
 * Purpose:   	One elevator car: door/motion state machine.
 *
 * Description:	The car owns its shared region and is the only writer
 *		of status and current_floor in normal operation.  The
 *		safety monitor and the maintenance tool poke flags in
 *		the same region; the controller mirrors status into it
 *		and sends FLOOR frames over TCP.
 *
 *		The driver states are exactly the five status values:
 *
 *		  Closed --(current != destination)--> Between
 *		  Between --(delay, step one floor)--> Closed
 *		  Closed --(arrival or open button)--> Opening
 *		  Opening --(delay)--> Open
 *		  Open --(window: timeout or close)--> Closing
 *		  Closing --(delay)--> Closed
 *
 *		In individual service mode motion is only honored one
 *		floor at a time and the door latches open instead of
 *		running the timed window.  In emergency mode motion is
 *		suppressed entirely.  The safety monitor can yank a
 *		Closing door back to Opening on obstruction; the closing
 *		executor re-reads status after its delay so that takes
 *		effect mid-cycle.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/pflag"
)

type door_status_e int

const (
	DOOR_CLOSED door_status_e = iota
	DOOR_OPENING
	DOOR_OPEN
	DOOR_CLOSING
	DOOR_BETWEEN
)

var door_status_text = [...]string{"Closed", "Opening", "Open", "Closing", "Between"}

func (s door_status_e) String() string {
	if s < 0 || int(s) >= len(door_status_text) {
		return "?"
	}
	return door_status_text[s]
}

// No other string is ever a legal status.
func door_status_parse(s string) (door_status_e, bool) {
	for i, t := range door_status_text {
		if s == t {
			return door_status_e(i), true
		}
	}
	return 0, false
}

/* Bounded poll window for the main loop, milliseconds. */

const CAR_POLL_MS = 100

type car_context_t struct {
	name     string
	lo, hi   int
	delay_ms int

	region *shm_region_t

	// These two are internal to the car process but are shared
	// between the main loop and the network receive thread, so
	// they follow the same rule as the region fields: touched
	// only with the region lock held.
	pending      int  /* Deferred destination, 0 = none. */
	door_request bool /* A door open is warranted at the current floor. */

	status_changed chan struct{} /* Kick for the transmit thread. */
	shutdown       atomic.Bool
}

/*-------------------------------------------------------------------
 *
 * Name:        CarMain
 *
 * Purpose:     Entry point for the "car" binary.
 *
 * Inputs:	car <name> <lowest floor> <highest floor> <delay ms>
 *
 *--------------------------------------------------------------------*/

func CarMain() {
	var versionFlag = pflag.BoolP("version", "V", false, "Print version and exit.")
	var debugFlag = pflag.BoolP("debug", "d", false, "Debug output.")
	var controllerAddr = pflag.StringP("controller", "c", "localhost", "Controller host name or address.")
	var controllerPort = pflag.IntP("port", "p", DEFAULT_DISPATCH_PORT, "Controller TCP port.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: car {name} {lowest floor} {highest floor} {delay in ms}\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *versionFlag {
		PrintVersion(false)
		return
	}

	if pflag.NArg() != 4 {
		pflag.Usage()
		exit(1)
	}

	log_set_debug(*debugFlag)

	var name = pflag.Arg(0)

	var lo, loErr = floor_parse(pflag.Arg(1))
	var hi, hiErr = floor_parse(pflag.Arg(2))
	var delay_ms, delayErr = parse_positive_int(pflag.Arg(3))

	if !region_name_valid(name) || loErr != nil || hiErr != nil || delayErr != nil || lo > hi {
		pflag.Usage()
		exit(1)
	}

	var ctx, startErr = car_startup(name, lo, hi, delay_ms)
	if startErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("%s\n", startErr)
		exit(1)
	}

	var sigs = make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		ctx.shutdown.Store(true)
		ctx.region.broadcast() // wake anything blocked on the region
	}()

	go car_network_worker(ctx, *controllerAddr, *controllerPort)

	car_run(ctx)

	ctx.region.detach()
	ctx.region.unlink()
}

func parse_positive_int(s string) (int, error) {
	var n, err = strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("not a positive integer: %q", s)
	}
	return n, nil
}

/*-------------------------------------------------------------------
 *
 * Name:        car_startup
 *
 * Purpose:     Create the region and seed the car's state.
 *
 * Description:	The region is zeroed on creation, which leaves the
 *		lock free, the condition sequence at zero, all flags
 *		clear, and safety_system at zero.  The state fields
 *		are then written under the lock like everything else.
 *
 *--------------------------------------------------------------------*/

func car_startup(name string, lo int, hi int, delay_ms int) (*car_context_t, error) {
	var region, err = region_create(name)
	if err != nil {
		return nil, err
	}

	var ctx = &car_context_t{
		name:           name,
		lo:             lo,
		hi:             hi,
		delay_ms:       delay_ms,
		region:         region,
		status_changed: make(chan struct{}, 1),
	}

	region.lock()
	region.set_status(DOOR_CLOSED.String())
	region.set_current_floor(floor_format(lo))
	region.set_destination_floor(floor_format(lo))
	for i := 0; i < FLAG_COUNT; i++ {
		region.set_flag(i, 0)
	}
	region.set_safety_system(0)
	region.unlock()
	region.broadcast()

	logger.Info("car ready", "car", name, "lo", floor_format(lo), "hi", floor_format(hi), "delay_ms", delay_ms)

	return ctx, nil
}

/*
 * Every status edge goes through here: write the field under the
 * lock already held by the caller, then (after the caller unlocks)
 * car_signal_change wakes the region waiters and the transmit thread.
 */

func (ctx *car_context_t) set_status_locked(st door_status_e) {
	ctx.region.set_status(st.String())
}

func car_signal_change(ctx *car_context_t) {
	ctx.region.broadcast()
	select {
	case ctx.status_changed <- struct{}{}:
	default:
	}
}

func (ctx *car_context_t) delay() time.Duration {
	return time.Duration(ctx.delay_ms) * time.Millisecond
}

func (ctx *car_context_t) poll_window() time.Duration {
	var ms = CAR_POLL_MS
	if ctx.delay_ms < ms {
		ms = ctx.delay_ms
	}
	return time.Duration(ms) * time.Millisecond
}

/*-------------------------------------------------------------------
 *
 * Name:        car_run
 *
 * Purpose:     Main loop.  One decision per iteration.
 *
 * Description:	The loop body samples everything it needs under the
 *		lock, decides, and then runs the chosen executor.
 *		The executors sleep with the lock released, so the
 *		safety monitor and the maintenance tool can interleave;
 *		the closing executor re-reads status after its delay.
 *
 *--------------------------------------------------------------------*/

func car_run(ctx *car_context_t) {
	for !ctx.shutdown.Load() {
		ctx.region.lock()

		var st, stOk = door_status_parse(ctx.region.status())
		if !stOk {
			// Something scribbled on the region.  The safety monitor
			// flags this on its next wake; park on Closed meanwhile.
			ctx.set_status_locked(DOOR_CLOSED)
			st = DOOR_CLOSED
		}

		var service = ctx.region.flag(FLAG_INDIVIDUAL_SERVICE) != 0
		var emergency = ctx.region.flag(FLAG_EMERGENCY_MODE) != 0

		var cur, curErr = floor_parse(ctx.region.current_floor())
		if curErr != nil {
			cur = ctx.lo
			ctx.region.set_current_floor(floor_format(cur))
		}
		var dst, dstErr = floor_parse(ctx.region.destination_floor())
		if dstErr != nil {
			dst = cur
			ctx.region.set_destination_floor(floor_format(cur))
		}

		// Sample the buttons.
		var open_btn = ctx.region.flag(FLAG_OPEN_BUTTON) != 0
		var close_btn = ctx.region.flag(FLAG_CLOSE_BUTTON) != 0

		switch {
		case st == DOOR_OPEN:
			// Latched open (service/emergency), or a mode change
			// caught us mid window.  Only close gets us out.
			if close_btn {
				ctx.region.set_flag(FLAG_CLOSE_BUTTON, 0)
				ctx.region.unlock()
				car_close_doors(ctx)
				continue
			}
			ctx.region.wait(ctx.poll_window())
			ctx.region.unlock()

		case st == DOOR_CLOSING:
			// Caught in Closing: complete to Closed.
			ctx.region.unlock()
			car_close_doors(ctx)

		case st == DOOR_OPENING:
			// Caught in Opening: complete the open cycle.
			ctx.region.unlock()
			car_open_cycle(ctx, service || emergency)

		case open_btn:
			// Open button while Closed: clear it and open up.
			// Valid in every mode.
			ctx.region.set_flag(FLAG_OPEN_BUTTON, 0)
			ctx.region.set_status(DOOR_OPENING.String())
			ctx.region.unlock()
			car_signal_change(ctx)
			car_open_cycle(ctx, service || emergency)

		case emergency:
			// Motion suppressed.  Close button with the door already
			// closed means nothing; just watch the region.
			if close_btn {
				ctx.region.set_flag(FLAG_CLOSE_BUTTON, 0)
			}
			ctx.region.wait(ctx.poll_window())
			ctx.region.unlock()

		case service:
			car_service_step(ctx, cur, dst, close_btn)

		case cur != dst:
			ctx.region.unlock()
			car_move_step(ctx)

		case ctx.door_request:
			ctx.door_request = false
			ctx.region.set_status(DOOR_OPENING.String())
			ctx.region.unlock()
			car_signal_change(ctx)
			car_open_cycle(ctx, false)

		default:
			if close_btn {
				// Sampled after a completed cycle: cleared, no
				// fresh cycle.  An open press never gets here;
				// the open_btn case above starts a new cycle.
				ctx.region.set_flag(FLAG_CLOSE_BUTTON, 0)
			}
			ctx.region.wait(ctx.poll_window())
			ctx.region.unlock()
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        car_service_step
 *
 * Purpose:     One main loop decision in individual service mode.
 *
 * Description:	The maintenance tool writes destinations exactly one
 *		floor away.  Anything further (a stale destination
 *		from before the mode flipped, say) snaps back to the
 *		current floor instead of moving.  "One floor away"
 *		includes the hop over zero: -1 and 1 are adjacent.
 *
 *		Called with the region lock held; releases it.
 *
 *--------------------------------------------------------------------*/

func car_service_step(ctx *car_context_t, cur int, dst int, close_btn bool) {
	if close_btn {
		ctx.region.set_flag(FLAG_CLOSE_BUTTON, 0)
	}

	if cur != dst {
		var adjacent = dst == floor_step(cur, true) || dst == floor_step(cur, false)
		if adjacent {
			ctx.region.unlock()
			car_move_step(ctx)
			return
		}

		ctx.region.set_destination_floor(floor_format(cur))
		ctx.region.unlock()
		car_signal_change(ctx)
		return
	}

	ctx.region.wait(ctx.poll_window())
	ctx.region.unlock()
}

/*-------------------------------------------------------------------
 *
 * Name:        car_move_step
 *
 * Purpose:     One floor of travel:  Closed -> Between -> Closed.
 *
 * Description:	Sets Between, sleeps the configured delay, steps
 *		current_floor one floor toward the destination with
 *		the zero skip, clamps to the service range, and goes
 *		back to Closed.  Each settle emits a status edge, so
 *		the controller sees every intermediate floor.
 *
 *		A pending destination recorded while we were Between
 *		is promoted once the step settles.  Arriving at the
 *		destination warrants a door open.
 *
 *--------------------------------------------------------------------*/

func car_move_step(ctx *car_context_t) {
	ctx.region.lock()

	var cur, _ = floor_parse(ctx.region.current_floor())
	var dst, _ = floor_parse(ctx.region.destination_floor())
	if cur == dst {
		ctx.region.unlock()
		return
	}

	ctx.set_status_locked(DOOR_BETWEEN)
	ctx.region.unlock()
	car_signal_change(ctx)

	SLEEP_MS(ctx.delay_ms)

	ctx.region.lock()

	var next = floor_step(cur, dst > cur)
	if next < ctx.lo {
		next = ctx.lo
	}
	if next > ctx.hi {
		next = ctx.hi
	}

	if next == cur {
		// Clamped at the end of the service range: no progress is
		// possible, so stop aiming past it.
		ctx.region.set_destination_floor(floor_format(cur))
		dst = cur
	}

	ctx.region.set_current_floor(floor_format(next))
	ctx.set_status_locked(DOOR_CLOSED)

	// Motion settled: promote a destination that arrived mid step.
	if ctx.pending != 0 {
		ctx.region.set_destination_floor(floor_format(ctx.pending))
		dst = ctx.pending
		ctx.pending = 0
	}

	if next == dst {
		ctx.door_request = true
	}

	ctx.region.unlock()
	car_signal_change(ctx)
}

/*-------------------------------------------------------------------
 *
 * Name:        car_open_cycle
 *
 * Purpose:     Run the door from Opening through to Closed.
 *
 * Inputs:	latch	- Service/emergency behavior: once Open, stay
 *			  Open until the close button, no timed window.
 *
 * Description:	Expects status already set to Opening by the caller.
 *		Normal mode holds the door for one delay worth of
 *		window; an open button press restarts the window, the
 *		close button or the timeout ends it.
 *
 *--------------------------------------------------------------------*/

func car_open_cycle(ctx *car_context_t, latch bool) {
	SLEEP_MS(ctx.delay_ms)

	ctx.region.lock()
	ctx.set_status_locked(DOOR_OPEN)
	ctx.region.unlock()
	car_signal_change(ctx)

	if latch {
		// Held open.  The main loop watches for the close button.
		return
	}

	// Open window.
	var deadline = time.Now().Add(ctx.delay())

	ctx.region.lock()
	for {
		if ctx.region.flag(FLAG_OPEN_BUTTON) != 0 {
			ctx.region.set_flag(FLAG_OPEN_BUTTON, 0)
			deadline = time.Now().Add(ctx.delay())
		}

		if ctx.region.flag(FLAG_CLOSE_BUTTON) != 0 {
			ctx.region.set_flag(FLAG_CLOSE_BUTTON, 0)
			break
		}

		var remaining = time.Until(deadline)
		if remaining <= 0 {
			break
		}

		ctx.region.wait(remaining)

		if ctx.shutdown.Load() {
			break
		}
	}
	ctx.region.unlock()

	car_close_doors(ctx)
}

/*-------------------------------------------------------------------
 *
 * Name:        car_close_doors
 *
 * Purpose:     Run the door from Closing to Closed.
 *
 * Description:	The safety monitor forces Closing back to Opening
 *		when the obstruction flag is up, so after the delay
 *		the status is read again rather than assumed.  If it
 *		changed under us, the open cycle runs again.
 *
 *--------------------------------------------------------------------*/

func car_close_doors(ctx *car_context_t) {
	ctx.region.lock()
	ctx.set_status_locked(DOOR_CLOSING)
	var latch = ctx.region.flag(FLAG_INDIVIDUAL_SERVICE) != 0 || ctx.region.flag(FLAG_EMERGENCY_MODE) != 0
	ctx.region.unlock()
	car_signal_change(ctx)

	SLEEP_MS(ctx.delay_ms)

	ctx.region.lock()
	var st, _ = door_status_parse(ctx.region.status())
	if st == DOOR_OPENING {
		// Obstruction: the safety monitor reversed us.
		ctx.region.unlock()
		car_open_cycle(ctx, latch)
		return
	}

	ctx.set_status_locked(DOOR_CLOSED)
	ctx.region.unlock()
	car_signal_change(ctx)
}

/*-------------------------------------------------------------------
 *
 * Name:        car_receive_floor
 *
 * Purpose:     Apply a FLOOR frame from the controller.
 *
 * Description:	Mid motion the destination is not overwritten; the
 *		new floor is parked as pending and promoted when the
 *		step settles.  That keeps a committed one floor step
 *		from being re-aimed half way.
 *
 *		A floor outside the service range, or garbage, is
 *		ignored.  A FLOOR naming the floor we are already
 *		sitting on warrants a door open for the pickup.
 *
 *--------------------------------------------------------------------*/

func car_receive_floor(ctx *car_context_t, f int) {
	if f < ctx.lo || f > ctx.hi {
		return
	}

	ctx.region.lock()

	if ctx.region.flag(FLAG_INDIVIDUAL_SERVICE) != 0 || ctx.region.flag(FLAG_EMERGENCY_MODE) != 0 {
		// Not accepting controller driven motion.
		ctx.region.unlock()
		return
	}

	var st, _ = door_status_parse(ctx.region.status())
	if st == DOOR_BETWEEN {
		ctx.pending = f
		ctx.region.unlock()
		return
	}

	var cur, _ = floor_parse(ctx.region.current_floor())
	ctx.region.set_destination_floor(floor_format(f))
	if f == cur {
		ctx.door_request = true
	}

	ctx.region.unlock()
	car_signal_change(ctx)
}
