package elevator

/*------------------------------------------------------------------
 *
 * Purpose:   	Car side of the controller connection.
 *
 * Description:	A connect-forever loop.  Whenever the car is in
 *		normal operation (neither service nor emergency mode)
 *		it dials the controller, registers, and then runs two
 *		tasks over the one socket:
 *
 *		  Receive - FLOOR frames from the controller.
 *
 *		  Transmit - a STATUS frame on every state change
 *		  edge, and a heartbeat STATUS after delay_ms of
 *		  silence.  Each silent interval also bumps the
 *		  safety_system counter, which the safety monitor
 *		  puts back to 1 on every wake; once it reaches
 *		  SAFETY_DISCONNECT_COUNT (3) the monitor is taken
 *		  to be gone and the car goes to emergency mode on
 *		  its own.
 *
 *		Entering service or emergency mode announces itself
 *		with a final INDIVIDUAL SERVICE or EMERGENCY frame and
 *		drops the connection; the outer loop redials when the
 *		car is fit for dispatch again.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

const CAR_RECONNECT_WAIT_MS = 1000

func car_network_worker(ctx *car_context_t, host string, port int) {
	for !ctx.shutdown.Load() {
		ctx.region.lock()
		var service = ctx.region.flag(FLAG_INDIVIDUAL_SERVICE) != 0
		var emergency = ctx.region.flag(FLAG_EMERGENCY_MODE) != 0
		ctx.region.unlock()

		if service || emergency {
			SLEEP_MS(CAR_POLL_MS)
			continue
		}

		var conn, dialErr = net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if dialErr != nil {
			logger.Debug("controller not reachable", "err", dialErr)
			SLEEP_MS(CAR_RECONNECT_WAIT_MS)
			continue
		}

		logger.Info("connected to controller", "addr", conn.RemoteAddr())

		if err := car_register(ctx, conn); err != nil {
			logger.Warn("registration failed", "err", err)
			conn.Close() //nolint:errcheck
			SLEEP_MS(CAR_RECONNECT_WAIT_MS)
			continue
		}

		car_session(ctx, conn)
		conn.Close() //nolint:errcheck

		logger.Info("controller connection closed")
	}
}

func car_register(ctx *car_context_t, conn net.Conn) error {
	var reg = fmt.Sprintf("CAR %s %s %s", ctx.name, floor_format(ctx.lo), floor_format(ctx.hi))
	if err := frame_send(conn, reg); err != nil {
		return err
	}

	return frame_send(conn, car_status_frame(ctx))
}

func car_status_frame(ctx *car_context_t) string {
	ctx.region.lock()
	var status = ctx.region.status()
	var cur = ctx.region.current_floor()
	var dst = ctx.region.destination_floor()
	ctx.region.unlock()

	return fmt.Sprintf("STATUS %s %s %s", status, cur, dst)
}

/*-------------------------------------------------------------------
 *
 * Name:        car_session
 *
 * Purpose:     Run receive and transmit over one live connection.
 *
 * Description:	Receive gets its own goroutine; transmit runs here.
 *		Either side ending takes the socket with it, which
 *		unblocks the other.
 *
 *--------------------------------------------------------------------*/

func car_session(ctx *car_context_t, conn net.Conn) {
	var done = make(chan struct{})

	go func() {
		defer close(done)
		car_receive_loop(ctx, conn)
	}()

	car_transmit_loop(ctx, conn, done)

	// Dropping the socket unblocks the receive loop if it is still up.
	conn.Close() //nolint:errcheck
	<-done
}

func car_receive_loop(ctx *car_context_t, conn net.Conn) {
	for {
		var payload, err = frame_receive(conn, MAX_FRAME_PAYLOAD)
		if err != nil {
			return
		}

		var floor_str string
		if _, scanErr := fmt.Sscanf(payload, "FLOOR %s", &floor_str); scanErr != nil {
			// Unknown content from the controller is ignored,
			// not fatal; the connection stays up.
			logger.Debug("ignoring frame", "payload", payload)
			continue
		}

		var f, parseErr = floor_parse(floor_str)
		if parseErr != nil {
			logger.Debug("ignoring FLOOR frame", "payload", payload)
			continue
		}

		car_receive_floor(ctx, f)
	}
}

func car_transmit_loop(ctx *car_context_t, conn net.Conn, done chan struct{}) {
	for {
		if ctx.shutdown.Load() {
			return
		}

		select {
		case <-done:
			return

		case <-ctx.status_changed:
			if car_transmit_mode_exit(ctx, conn) {
				return
			}
			if err := frame_send(conn, car_status_frame(ctx)); err != nil {
				return
			}

		case <-time.After(ctx.delay()):
			if car_transmit_mode_exit(ctx, conn) {
				return
			}

			// Silence.  Count a missed safety monitor interval.
			ctx.region.lock()
			var count = ctx.region.safety_system() + 1
			ctx.region.set_safety_system(count)
			var disconnected = count >= SAFETY_DISCONNECT_COUNT
			if disconnected {
				ctx.region.set_flag(FLAG_EMERGENCY_MODE, 1)
			}
			ctx.region.unlock()
			ctx.region.broadcast()

			if disconnected {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Safety system disconnected.  Going to emergency mode.\n")
				frame_send(conn, "EMERGENCY") //nolint:errcheck
				return
			}

			if err := frame_send(conn, car_status_frame(ctx)); err != nil {
				return
			}
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        car_transmit_mode_exit
 *
 * Purpose:     Send the terminal frame when a mode was entered.
 *
 * Returns:	true if the connection should be torn down.
 *
 *--------------------------------------------------------------------*/

func car_transmit_mode_exit(ctx *car_context_t, conn net.Conn) bool {
	ctx.region.lock()
	var service = ctx.region.flag(FLAG_INDIVIDUAL_SERVICE) != 0
	var emergency = ctx.region.flag(FLAG_EMERGENCY_MODE) != 0
	ctx.region.unlock()

	if service {
		frame_send(conn, "INDIVIDUAL SERVICE") //nolint:errcheck
		return true
	}

	if emergency {
		frame_send(conn, "EMERGENCY") //nolint:errcheck
		return true
	}

	return false
}
