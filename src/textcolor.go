package elevator

// A lightweight reimplementation of the original's textcolor.c

import (
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type dw_color_e int

const (
	DW_COLOR_INFO  dw_color_e = iota /* black */
	DW_COLOR_ERROR                   /* red */
	DW_COLOR_DEBUG                   /* dark_green */
)

var _text_color_level int

func text_color_init(level int) {
	_text_color_level = level
}

func text_color_set(_ dw_color_e) {
	if _text_color_level == 0 {
		return
	}

	// TODO: emit the escape sequence for the selected color.
}

func dw_printf(format string, a ...any) (int, error) {
	return fmt.Printf(format, a...)
}

// Structured logger for daemon lifecycle events (listener up, car
// registered, slot adopted, connection lost).  User-visible protocol
// output still goes through dw_printf above.

var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: true,
})

func log_set_debug(debug bool) {
	if debug {
		logger.SetLevel(charmlog.DebugLevel)
	}
}
