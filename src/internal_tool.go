package elevator

/*------------------------------------------------------------------
 *
 * Purpose:   	Maintenance tool - poke one flag and leave.
 *
 * Description:	Used by technicians (and the test scripts) to drive a
 *		car from inside the building: door buttons, the big
 *		red stop button, and individual service mode with its
 *		one-floor-at-a-time up/down motion.
 *
 *		One shot: attach to the car's region, take the lock,
 *		apply the operation, broadcast so the car and the
 *		safety monitor notice, and exit.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

/*-------------------------------------------------------------------
 *
 * Name:        InternalMain
 *
 * Purpose:     Entry point for the "internal" binary.
 *
 * Inputs:	internal <car name> <operation>
 *
 *		open        - press the door open button
 *		close       - press the door close button
 *		stop        - press the emergency stop button
 *		service_on  - enter individual service mode
 *		service_off - leave individual service mode
 *		up, down    - one floor of motion in service mode
 *
 *--------------------------------------------------------------------*/

func InternalMain() {
	var versionFlag = pflag.BoolP("version", "V", false, "Print version and exit.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: internal {car name} {open|close|stop|service_on|service_off|up|down}\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *versionFlag {
		PrintVersion(false)
		return
	}

	if pflag.NArg() != 2 {
		pflag.Usage()
		exit(1)
	}

	var car_name = pflag.Arg(0)
	var op = pflag.Arg(1)

	if !internal_op_valid(op) {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Invalid operation.\n")
		pflag.Usage()
		exit(1)
	}

	var region, attachErr = region_attach(car_name)
	if attachErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("%s\n", attachErr)
		exit(1)
	}
	defer region.detach()

	region.lock()
	internal_apply(region, op)
	region.unlock()
	region.broadcast()
}

func internal_op_valid(op string) bool {
	switch op {
	case "open", "close", "stop", "service_on", "service_off", "up", "down":
		return true
	}
	return false
}

/*-------------------------------------------------------------------
 *
 * Name:        internal_apply
 *
 * Purpose:     Apply one operation.  Lock must be held.
 *
 * Description:	up and down only act in individual service mode with
 *		the car sitting still and the doors Closed.  Pressing
 *		them at any other moment does nothing at all - in
 *		particular a second press while the car is already
 *		Between is ignored rather than queued.
 *
 *--------------------------------------------------------------------*/

func internal_apply(region *shm_region_t, op string) {
	switch op {
	case "open":
		region.set_flag(FLAG_OPEN_BUTTON, 1)

	case "close":
		region.set_flag(FLAG_CLOSE_BUTTON, 1)

	case "stop":
		region.set_flag(FLAG_EMERGENCY_STOP, 1)

	case "service_on":
		region.set_flag(FLAG_INDIVIDUAL_SERVICE, 1)
		region.set_flag(FLAG_EMERGENCY_MODE, 0)

	case "service_off":
		region.set_flag(FLAG_INDIVIDUAL_SERVICE, 0)

	case "up", "down":
		if region.flag(FLAG_INDIVIDUAL_SERVICE) != 1 {
			return
		}
		if region.status() != DOOR_CLOSED.String() {
			return
		}

		var cur, err = floor_parse(region.current_floor())
		if err != nil {
			return
		}

		var next = floor_step(cur, op == "up")
		region.set_destination_floor(floor_format(next))
	}
}
