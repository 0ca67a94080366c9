package elevator

/*------------------------------------------------------------------
 *
 * Purpose:   	Safety monitor for one car.
 *
 * Description:	Attaches to the car's shared region and sleeps on its
 *		wait/notify.  Every wake runs the same fixed sequence
 *		of checks under the lock:
 *
 *		  1. Heartbeat: safety_system back to 1.
 *		  2. Door obstruction while Closing: force Opening.
 *		  3. Emergency stop flag: force emergency mode.
 *		  4. Overload flag: force emergency mode.
 *		  5. Consistency: every field must still make sense.
 *
 *		Emergency mode, once forced, is sticky; nothing here
 *		ever clears it.  Only the maintenance tool's
 *		service_on does.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/pflag"
)

/*-------------------------------------------------------------------
 *
 * Name:        SafetyMain
 *
 * Purpose:     Entry point for the "safety" binary.
 *
 * Inputs:	safety <car name>
 *
 *--------------------------------------------------------------------*/

func SafetyMain() {
	var versionFlag = pflag.BoolP("version", "V", false, "Print version and exit.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: safety {car name}\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *versionFlag {
		PrintVersion(false)
		return
	}

	if pflag.NArg() != 1 {
		pflag.Usage()
		exit(1)
	}

	var car_name = pflag.Arg(0)

	var region, attachErr = region_attach(car_name)
	if attachErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("%s\n", attachErr)
		exit(1)
	}
	defer region.detach()

	var shutdown atomic.Bool
	var sigs = make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		// Setting the flag under the lock means the monitor loop is
		// either before its shutdown check (and will see the flag) or
		// already waiting (and will see the broadcast).  Without the
		// lock the broadcast could land in between and be lost, and
		// the indefinite wait below would never wake again.
		region.lock()
		shutdown.Store(true)
		region.unlock()
		region.broadcast()
	}()

	logger.Info("safety monitor attached", "car", car_name)

	for {
		region.lock()

		if shutdown.Load() {
			region.unlock()
			return
		}

		region.wait(0)

		if shutdown.Load() {
			region.unlock()
			return
		}

		var mutated = safety_run_checks(region, car_name)
		region.unlock()

		if mutated {
			region.broadcast()
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        safety_run_checks
 *
 * Purpose:     One wake's worth of checking.  Lock must be held.
 *
 * Returns:	true if anything in the region was changed, in which
 *		case the caller broadcasts after releasing the lock.
 *
 *--------------------------------------------------------------------*/

func safety_run_checks(region *shm_region_t, car_name string) bool {
	var mutated = false

	// 1. Heartbeat.  The car counts the intervals between these;
	// if we stop showing up it declares us gone.
	if region.safety_system() != 1 {
		region.set_safety_system(1)
		mutated = true
	}

	// 2. A door closing on someone reverses.
	if region.status() == DOOR_CLOSING.String() && region.flag(FLAG_DOOR_OBSTRUCTION) != 0 {
		region.set_status(DOOR_OPENING.String())
		mutated = true
	}

	// 3. Emergency stop button.
	if region.flag(FLAG_EMERGENCY_STOP) != 0 && region.flag(FLAG_EMERGENCY_MODE) == 0 {
		region.set_flag(FLAG_EMERGENCY_MODE, 1)
		region.set_flag(FLAG_EMERGENCY_STOP, 0)
		logger.Error("emergency stop engaged", "car", car_name)
		return true
	}

	// 4. Overload.
	if region.flag(FLAG_OVERLOAD) != 0 && region.flag(FLAG_EMERGENCY_MODE) == 0 {
		region.set_flag(FLAG_EMERGENCY_MODE, 1)
		logger.Error("overload detected", "car", car_name)
		return true
	}

	// 5. Data consistency.
	if !safety_region_consistent(region) && region.flag(FLAG_EMERGENCY_MODE) == 0 {
		region.set_flag(FLAG_EMERGENCY_MODE, 1)
		logger.Error("region data inconsistent", "car", car_name)
		return true
	}

	return mutated
}

func safety_region_consistent(region *shm_region_t) bool {
	var status = region.status()
	if _, ok := door_status_parse(status); !ok {
		return false
	}

	if _, err := floor_parse(region.current_floor()); err != nil {
		return false
	}
	if _, err := floor_parse(region.destination_floor()); err != nil {
		return false
	}

	for i := 0; i < FLAG_COUNT; i++ {
		if v := region.flag(i); v != 0 && v != 1 {
			return false
		}
	}

	if region.flag(FLAG_DOOR_OBSTRUCTION) == 1 {
		if status != DOOR_OPENING.String() && status != DOOR_CLOSING.String() {
			return false
		}
	}

	return true
}
