package elevator

/*------------------------------------------------------------------
 *
 * Purpose:	Save dispatch events to a log file.
 *
 * Description: Rather than interleaving dispatch decisions with the
 *		console chatter, write separated properties into CSV
 *		format for easy reading and later processing.
 *
 *		One row per registration, call, arrival, and
 *		disconnect.  Daily file names are created in the
 *		configured directory; an empty directory setting
 *		disables the whole feature.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lestrrat-go/strftime"
)

var g_event_log_path string
var g_event_log_fp *os.File
var g_event_open_fname string
var g_event_timestamp_format string

/*------------------------------------------------------------------
 *
 * Function:	event_log_init
 *
 * Purpose:	Initialization at start of the controller.
 *
 * Inputs:	path		- Directory for daily log files.
 *				  Empty string disables the feature.
 *
 *		timestamp_format - strftime format for the row
 *				  timestamp.  Empty selects ISO 8601.
 *
 *------------------------------------------------------------------*/

func event_log_init(path string, timestamp_format string) {
	g_event_log_path = ""
	g_event_log_fp = nil
	g_event_open_fname = ""

	g_event_timestamp_format = timestamp_format
	if g_event_timestamp_format == "" {
		g_event_timestamp_format = "%Y-%m-%dT%H:%M:%SZ"
	}

	if len(path) == 0 {
		return
	}

	var stat, statErr = os.Stat(path)

	if statErr == nil {
		if stat.IsDir() {
			g_event_log_path = path
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Event log location \"%s\" is not a directory.\n", path)
			dw_printf("Using current working directory \".\" instead.\n")
			g_event_log_path = "."
		}
	} else {
		// Doesn't exist.  Try to create it.
		// Parent directory must exist; we don't create multiple levels.
		var mkdirErr = os.Mkdir(path, 0755)
		if mkdirErr == nil {
			text_color_set(DW_COLOR_INFO)
			dw_printf("Event log location \"%s\" has been created.\n", path)
			g_event_log_path = path
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Failed to create event log location \"%s\".\n", path)
			dw_printf("%s\n", mkdirErr)
			dw_printf("Using current working directory \".\" instead.\n")
			g_event_log_path = "."
		}
	}
} /* end event_log_init */

/*------------------------------------------------------------------
 *
 * Function:	event_log_write
 *
 * Purpose:	Save one dispatch event to the log file.
 *
 * Inputs:	event	- "register", "call", "call-unavailable",
 *			  "arrive", "drop".
 *
 *		car	- Car display name, may be empty.
 *
 *		detail	- Free text; for calls (granted or not) this
 *			  starts with the request id.  Arrival rows
 *			  carry only the floor.
 *
 *------------------------------------------------------------------*/

func event_log_write(event string, car string, detail string) {
	if len(g_event_log_path) == 0 {
		return
	}

	var now = time.Now().UTC()

	// Daily file names, UTC, same as the original.

	var fname = now.Format("2006-01-02.log")

	if g_event_log_fp != nil && fname != g_event_open_fname {
		event_log_term()
	}

	if g_event_log_fp == nil {
		var full_path = filepath.Join(g_event_log_path, fname)

		var _, statErr = os.Stat(full_path)
		var already_there = statErr == nil

		text_color_set(DW_COLOR_INFO)
		dw_printf("Opening event log file \"%s\".\n", fname)

		var f, openErr = os.OpenFile(full_path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
		if openErr != nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Can't open event log file \"%s\" for write.\n", full_path)
			dw_printf("%s\n", openErr)
			g_event_open_fname = ""
			return
		}

		g_event_log_fp = f
		g_event_open_fname = fname

		// Header only if this will be the first line.
		if !already_there {
			var w = csv.NewWriter(g_event_log_fp)
			w.Write([]string{"utime", "isotime", "event", "car", "detail"}) //nolint:errcheck
			w.Flush()
		}
	}

	var isotime, _ = strftime.Format(g_event_timestamp_format, now)

	var w = csv.NewWriter(g_event_log_fp)
	w.Write([]string{ //nolint:errcheck
		strconv.FormatInt(now.Unix(), 10),
		isotime,
		event,
		car,
		detail,
	})
	w.Flush()
} /* end event_log_write */

func event_log_term() {
	if g_event_log_fp != nil {
		g_event_log_fp.Close() //nolint:errcheck
		g_event_log_fp = nil
		g_event_open_fname = ""
	}
}
