package elevator

/*------------------------------------------------------------------
 *
 * Purpose:   	Central dispatcher for the elevator fleet.
 *
 * Description:	Listens on a TCP port (default 3000).  Two kinds of
 *		peer connect, distinguished by their first frame:
 *
 *		Cars:
 *
 *			CAR <name> <lo> <hi>	register, then stay
 *			STATUS <status> <cur> <dst>
 *			INDIVIDUAL SERVICE	ignored
 *			EMERGENCY		ignored
 *
 *		and receive
 *
 *			FLOOR <f>		next stop to service
 *
 *		Callers:
 *
 *			CALL <src> <dst>	one shot
 *
 *		and receive
 *
 *			CAR <name>  or  UNAVAILABLE
 *
 *		Anything else as a first frame closes the connection.
 *
 *		The registry is a fixed table of MAX_CARS entries.  A
 *		single process wide mutex guards the table and every
 *		stop queue.  Socket writes may happen with it held;
 *		on loopback the latency does not justify finer locks.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

type car_entry_t struct {
	in_use bool

	name   string /* Display name, unique across the table. */
	lo, hi int    /* Service floor range, lo <= hi. */

	status  string /* Mirrored from the last STATUS frame. */
	current string
	dest    string

	queue []int /* Stop queue, head is next to service. */

	conn   net.Conn      /* Live connection to the car. */
	region *shm_region_t /* Attached shared region, or nil. */
}

var registry [MAX_CARS]car_entry_t

var registry_mutex sync.Mutex /* Critical section for table and queues. */

/*-------------------------------------------------------------------
 *
 * Name:        ControllerMain
 *
 * Purpose:     Entry point for the "controller" binary.
 *
 * Inputs:	Command line (no positional arguments).
 *		Optional controller.yaml for port, event log
 *		directory, and DNS-SD announcement.
 *
 *--------------------------------------------------------------------*/

func ControllerMain() {
	var versionFlag = pflag.BoolP("version", "V", false, "Print version and exit.")
	var debugFlag = pflag.BoolP("debug", "d", false, "Debug output.")

	pflag.Usage = func() {
		fmt.Printf("Usage: controller\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *versionFlag {
		PrintVersion(false)
		return
	}

	if pflag.NArg() != 0 {
		pflag.Usage()
		exit(1)
	}

	var mc, configErr = config_load()
	if configErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("%s\n", configErr)
		exit(1)
	}

	log_set_debug(*debugFlag || mc.Debug)

	event_log_init(mc.LogDir, mc.TimestampFormat)
	defer event_log_term()

	// Per connection errors never kill the controller; SIGINT is how
	// it goes down, and the only cleanup it owes is the open log file.
	var sigs = make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info("shutting down")
		event_log_term()
		exit(0)
	}()

	if mc.DNSSD {
		dns_sd_announce(mc.DNSSDName, mc.DispatchPort)
	}

	controller_listen(mc.DispatchPort)
}

func controller_listen(port int) {
	var listener, listenErr = net.Listen("tcp", fmt.Sprintf(":%d", port))
	if listenErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("controller: listen failed: %s\n", listenErr)
		exit(1)
	}

	logger.Info("controller ready", "port", port)

	for {
		var conn, acceptErr = listener.Accept()
		if acceptErr != nil {
			logger.Warn("accept failed", "err", acceptErr)
			continue
		}

		go controller_handle_connection(conn)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        controller_handle_connection
 *
 * Purpose:     Classify a new peer by its first frame and hand it
 *		to the right handler.
 *
 * Description:	Runs as its own goroutine per accepted connection.
 *		No error in here is fatal to the controller; the worst
 *		case is this one connection going away.
 *
 *--------------------------------------------------------------------*/

func controller_handle_connection(conn net.Conn) {
	var first, err = frame_receive(conn, MAX_FRAME_PAYLOAD)
	if err != nil {
		conn.Close() //nolint:errcheck
		return
	}

	switch {
	case strings.HasPrefix(first, "CAR "):
		var slot = controller_register_car(conn, first)
		if slot < 0 {
			conn.Close() //nolint:errcheck
			return
		}
		controller_serve_car(slot, conn)

	case strings.HasPrefix(first, "CALL "):
		controller_handle_call(conn, first)

	default:
		logger.Debug("unknown first frame, dropping peer", "payload", first)
		conn.Close() //nolint:errcheck
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        controller_register_car
 *
 * Purpose:     Process "CAR <name> <lo> <hi>".
 *
 * Returns:	Registry slot number, or -1 to drop the connection.
 *
 * Description:	A re-registration under a name already in the table
 *		adopts that slot and the previous connection is cut
 *		loose.  That matches the original behavior; rejecting
 *		the newcomer would arguably be safer, so the adoption
 *		is at least logged loudly.
 *
 *		Registration takes the registry mutex first and the
 *		region lock second, briefly, while seeding the mirror.
 *		That ordering is never reversed anywhere.
 *
 *--------------------------------------------------------------------*/

func controller_register_car(conn net.Conn, payload string) int {
	var fields = strings.Fields(payload)
	if len(fields) != 4 {
		return -1
	}

	var name = fields[1]
	if !region_name_valid(name) {
		return -1
	}

	var lo, loErr = floor_parse(fields[2])
	var hi, hiErr = floor_parse(fields[3])
	if loErr != nil || hiErr != nil {
		return -1
	}

	if lo > hi {
		lo, hi = hi, lo
	}

	registry_mutex.Lock()
	defer registry_mutex.Unlock()

	var slot = -1
	for i := range registry {
		if registry[i].in_use && registry[i].name == name {
			slot = i
			break
		}
	}

	if slot >= 0 {
		// Same name already live: adopt the slot.
		logger.Warn("car re-registered, adopting slot", "car", name, "slot", slot)
		if registry[slot].conn != nil {
			registry[slot].conn.Close() //nolint:errcheck
		}
		if registry[slot].region != nil {
			registry[slot].region.detach()
		}
	} else {
		for i := range registry {
			if !registry[i].in_use {
				slot = i
				break
			}
		}
		if slot < 0 {
			logger.Warn("registry full, turning car away", "car", name)
			return -1
		}
	}

	var entry = &registry[slot]
	entry.in_use = true
	entry.name = name
	entry.lo = lo
	entry.hi = hi
	entry.status = DOOR_CLOSED.String()
	entry.current = floor_format(lo)
	entry.dest = floor_format(lo)
	entry.queue = nil
	entry.conn = conn

	// Mirror initial state into the car's shared region.  A car whose
	// region cannot be attached still gets dispatched; it just has no
	// mirror for the local tools to see.
	var region, attachErr = region_attach(name)
	if attachErr != nil {
		logger.Warn("region attach failed, continuing without mirror", "car", name, "err", attachErr)
		entry.region = nil
	} else {
		entry.region = region
		region.lock()
		region.set_status(entry.status)
		region.set_current_floor(entry.current)
		region.set_destination_floor(entry.dest)
		region.unlock()
		region.broadcast()
	}

	logger.Info("car registered", "car", name, "slot", slot, "lo", floor_format(lo), "hi", floor_format(hi))
	event_log_write("register", name, fmt.Sprintf("%s..%s", floor_format(lo), floor_format(hi)))

	return slot
}

/*-------------------------------------------------------------------
 *
 * Name:        controller_serve_car
 *
 * Purpose:     Frame loop for one registered car.
 *
 * Description:	STATUS frames update the registry and the region
 *		mirror and then run the dispatch step.  INDIVIDUAL
 *		SERVICE and EMERGENCY are courtesy notifications the
 *		car sends before hanging up; nothing to do with them.
 *		Anything else is a protocol violation and terminal.
 *
 *--------------------------------------------------------------------*/

func controller_serve_car(slot int, conn net.Conn) {
	for {
		var payload, err = frame_receive(conn, MAX_FRAME_PAYLOAD)
		if err != nil {
			controller_drop_car(slot, conn, "connection lost")
			return
		}

		switch {
		case strings.HasPrefix(payload, "STATUS "):
			if !controller_handle_status(slot, conn, payload) {
				controller_drop_car(slot, conn, "bad STATUS frame")
				return
			}

		case payload == "INDIVIDUAL SERVICE" || payload == "EMERGENCY":
			logger.Debug("car notification", "slot", slot, "payload", payload)

		default:
			controller_drop_car(slot, conn, "protocol violation")
			return
		}
	}
}

func controller_handle_status(slot int, conn net.Conn, payload string) bool {
	var fields = strings.Fields(payload)
	if len(fields) != 4 {
		return false
	}

	var status = fields[1]
	if _, ok := door_status_parse(status); !ok {
		return false
	}

	var cur = fields[2]
	var dst = fields[3]
	if _, err := floor_parse(cur); err != nil {
		return false
	}
	if _, err := floor_parse(dst); err != nil {
		return false
	}

	registry_mutex.Lock()
	defer registry_mutex.Unlock()

	var entry = &registry[slot]
	if !entry.in_use || entry.conn != conn {
		// Slot was adopted by a newer connection while this frame
		// was in flight.  Nothing here belongs to us any more.
		return false
	}

	entry.status = status
	entry.current = cur
	entry.dest = dst

	if entry.region != nil {
		entry.region.lock()
		entry.region.set_status(status)
		entry.region.set_current_floor(cur)
		entry.region.set_destination_floor(dst)
		entry.region.unlock()
		entry.region.broadcast()
	}

	controller_dispatch_step(entry)

	return true
}

/*-------------------------------------------------------------------
 *
 * Name:        controller_dispatch_step
 *
 * Purpose:     Pop an arrival and keep the car moving.
 *
 * Description:	Called with the registry mutex held, after every
 *		STATUS update.  Opening at the head floor is the
 *		arrival signal; the head comes off and, if more stops
 *		remain, the new head goes out as a FLOOR frame.
 *
 *--------------------------------------------------------------------*/

func controller_dispatch_step(entry *car_entry_t) {
	if head, ok := cq_head(entry.queue); ok {
		if entry.status == DOOR_OPENING.String() && entry.current == floor_format(head) {
			entry.queue = cq_pop_head(entry.queue)
			event_log_write("arrive", entry.name, floor_format(head))
		}
	}

	if head, ok := cq_head(entry.queue); ok {
		if err := frame_send(entry.conn, "FLOOR "+floor_format(head)); err != nil {
			logger.Debug("FLOOR send failed", "car", entry.name, "err", err)
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        controller_handle_call
 *
 * Purpose:     Process "CALL <src> <dst>" from the call utility.
 *
 * Description:	Picks the first registered car whose service range
 *		covers both floors, in slot order.  No cleverness, no
 *		fairness; the original scanned the same way.  Replies
 *		CAR <name> or UNAVAILABLE and closes either way.
 *
 *		The reply goes out first; the stops are then queued
 *		and the FLOOR frame sent with the registry mutex still
 *		held, so no other goroutine sees the car in between.
 *		If the reply cannot be sent nothing is queued.
 *
 *--------------------------------------------------------------------*/

func controller_handle_call(conn net.Conn, payload string) {
	defer conn.Close() //nolint:errcheck

	var fields = strings.Fields(payload)
	if len(fields) != 3 {
		return
	}

	var src, srcErr = floor_parse(fields[1])
	var dst, dstErr = floor_parse(fields[2])
	if srcErr != nil || dstErr != nil || src == dst {
		return
	}

	var request_id = uuid.NewString()

	registry_mutex.Lock()
	defer registry_mutex.Unlock()

	var entry *car_entry_t
	for i := range registry {
		if registry[i].in_use && registry[i].lo <= src && src <= registry[i].hi &&
			registry[i].lo <= dst && dst <= registry[i].hi {
			entry = &registry[i]
			break
		}
	}

	if entry == nil {
		event_log_write("call-unavailable", "", fmt.Sprintf("%s %s %s", request_id, fields[1], fields[2]))
		frame_send(conn, "UNAVAILABLE") //nolint:errcheck
		if tcp, ok := conn.(*net.TCPConn); ok {
			tcp.CloseWrite() //nolint:errcheck
		}
		return
	}

	if err := frame_send(conn, "CAR "+entry.name); err != nil {
		logger.Debug("call reply failed", "err", err)
		return
	}

	entry.queue = cq_enqueue(entry.queue, src, dst)
	event_log_write("call", entry.name, fmt.Sprintf("%s %s %s", request_id, fields[1], fields[2]))

	if head, ok := cq_head(entry.queue); ok {
		if err := frame_send(entry.conn, "FLOOR "+floor_format(head)); err != nil {
			logger.Debug("FLOOR send failed", "car", entry.name, "err", err)
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        controller_drop_car
 *
 * Purpose:     Tear down a car connection and free its slot.
 *
 * Description:	Guarded on the connection identity: if the slot was
 *		adopted by a newer connection in the meantime, the old
 *		serve loop must not free state it no longer owns.
 *
 *--------------------------------------------------------------------*/

func controller_drop_car(slot int, conn net.Conn, reason string) {
	conn.Close() //nolint:errcheck

	registry_mutex.Lock()
	defer registry_mutex.Unlock()

	var entry = &registry[slot]
	if !entry.in_use || entry.conn != conn {
		return
	}

	logger.Info("car dropped", "car", entry.name, "reason", reason)
	event_log_write("drop", entry.name, reason)

	if entry.region != nil {
		entry.region.detach()
	}

	*entry = car_entry_t{}
}
