package elevator

/*------------------------------------------------------------------
 *
 * Purpose:   	Call utility - hail a car from a floor panel.
 *
 * Description:	Sends one CALL frame to the controller, prints the
 *		answer, and exits.  Getting "no car available" is a
 *		normal outcome for the person standing at the panel,
 *		so it still exits zero; only broken arguments or a
 *		dead controller are errors.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

/*-------------------------------------------------------------------
 *
 * Name:        CallMain
 *
 * Purpose:     Entry point for the "call" binary.
 *
 * Inputs:	call <source floor> <destination floor>
 *
 *		Floors use the usual string form: "5", "B2", ...
 *
 *--------------------------------------------------------------------*/

func CallMain() {
	var versionFlag = pflag.BoolP("version", "V", false, "Print version and exit.")
	var controllerAddr = pflag.StringP("controller", "c", "localhost", "Controller host name or address.")
	var controllerPort = pflag.IntP("port", "p", DEFAULT_DISPATCH_PORT, "Controller TCP port.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: call {source floor} {destination floor}\n")
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

	var src, srcErr = floor_parse(pflag.Arg(0))
	var dst, dstErr = floor_parse(pflag.Arg(1))

	if srcErr != nil || dstErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Please give a floor between %s and %s.\n", floor_format(MIN_FLOOR), floor_format(MAX_FLOOR))
		exit(1)
	}

	if src == dst {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("You are already on that floor!\n")
		exit(1)
	}

	var conn, dialErr = net.Dial("tcp", net.JoinHostPort(*controllerAddr, strconv.Itoa(*controllerPort)))
	if dialErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Unable to reach elevator system: %s\n", dialErr)
		exit(1)
	}
	defer conn.Close() //nolint:errcheck

	var request = fmt.Sprintf("CALL %s %s", floor_format(src), floor_format(dst))
	if err := frame_send(conn, request); err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Unable to reach elevator system: %s\n", err)
		exit(1)
	}

	var reply, recvErr = frame_receive(conn, MAX_FRAME_PAYLOAD)
	if recvErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Unable to reach elevator system: %s\n", recvErr)
		exit(1)
	}

	switch {
	case strings.HasPrefix(reply, "CAR "):
		dw_printf("Car %s is on its way.\n", strings.TrimPrefix(reply, "CAR "))

	case reply == "UNAVAILABLE":
		dw_printf("Sorry, no car can take that trip right now.  Please try again later.\n")

	default:
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Unexpected reply from the controller.\n")
		exit(1)
	}
}
