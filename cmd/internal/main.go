package main

import (
	elevator "github.com/Sacraniea/Distributed-Elevator-Control-System/src"
)

/*-------------------------------------------------------------------
 *
 * Name:        main
 *
 * Purpose:     Wrapper for the internal program.  All of the logic
 *		lives in the src package.
 *
 *--------------------------------------------------------------------*/

func main() {
	elevator.InternalMain()
}
