package elevator

/*------------------------------------------------------------------
 *
 * Purpose:   	Length-prefixed message framing over a stream socket.
 *
 * Description:	Every message between the controller, the cars, and the
 *		call utility is a 2 byte unsigned payload length in
 *		network byte order followed by exactly that many ASCII
 *		bytes of payload.  No trailing NUL goes on the wire.
 *
 *		The codec does not care what is in the payload.  The
 *		protocol on top of it ("CAR ...", "STATUS ...", "CALL
 *		...", "FLOOR ...") is plain text, which makes a session
 *		easy to eyeball in a packet capture.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"io"
)

const MAX_FRAME_PAYLOAD = 65535

/*-------------------------------------------------------------------
 *
 * Name:        frame_send
 *
 * Purpose:     Write one framed message.
 *
 * Inputs:	w	- Connected socket.
 *		payload	- Message text.  Longer than 65535 bytes is
 *			  clamped; the peer sees a truncated message
 *			  rather than a corrupt stream.
 *
 * Returns:	nil, or the write error.  Any error means the
 *		connection is done for.
 *
 * Description:	io.Writer retries short writes for us; a signal
 *		interrupting the syscall is also retried inside the
 *		runtime, so one Write call is the whole job.
 *
 *--------------------------------------------------------------------*/

func frame_send(w io.Writer, payload string) error {
	if len(payload) > MAX_FRAME_PAYLOAD {
		payload = payload[:MAX_FRAME_PAYLOAD]
	}

	var msg = make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(msg[0:2], uint16(len(payload)))
	copy(msg[2:], payload)

	var _, err = w.Write(msg)
	if err != nil {
		return fmt.Errorf("frame send: %w", err)
	}

	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:        frame_receive
 *
 * Purpose:     Read one framed message.
 *
 * Inputs:	r	- Connected socket.
 *		max	- Receive buffer size.  A payload bigger than
 *			  max-1 is truncated to fit, leaving room for
 *			  the terminator the original reserved, and the
 *			  rest of the payload is drained and dropped so
 *			  the next frame starts in the right place.
 *
 * Returns:	The (possibly truncated) payload, or an error.
 *		A zero byte read on the length header is a normal
 *		end of stream and comes back as io.EOF.
 *
 *--------------------------------------------------------------------*/

func frame_receive(r io.Reader, max int) (string, error) {
	var header [2]byte
	var _, headerErr = io.ReadFull(r, header[:])
	if headerErr != nil {
		if headerErr == io.ErrUnexpectedEOF {
			headerErr = io.EOF
		}
		return "", headerErr
	}

	var plen = int(binary.BigEndian.Uint16(header[:]))

	var keep = plen
	if max > 0 && keep > max-1 {
		keep = max - 1
	}

	var payload = make([]byte, keep)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", fmt.Errorf("frame receive: %w", err)
	}

	if plen > keep {
		// Drain the remainder into scratch so framing stays aligned.
		if _, err := io.CopyN(io.Discard, r, int64(plen-keep)); err != nil {
			return "", fmt.Errorf("frame receive: %w", err)
		}
	}

	return string(payload), nil
}
