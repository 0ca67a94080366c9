package elevator

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCarRegisterFrames(t *testing.T) {
	var ctx = test_car(t, -2, 9)

	var car, controller = net.Pipe()
	defer car.Close()        //nolint:errcheck
	defer controller.Close() //nolint:errcheck

	var sent = make(chan error, 1)
	go func() {
		sent <- car_register(ctx, car)
	}()

	var reg, regErr = frame_receive(controller, MAX_FRAME_PAYLOAD)
	require.NoError(t, regErr)
	assert.Equal(t, "CAR "+ctx.name+" B2 9", reg)

	var status, statusErr = frame_receive(controller, MAX_FRAME_PAYLOAD)
	require.NoError(t, statusErr)
	assert.Equal(t, "STATUS Closed B2 B2", status)

	require.NoError(t, <-sent)
}

func TestCarStatusFrame(t *testing.T) {
	var ctx = test_car(t, 1, 10)

	ctx.region.lock()
	ctx.region.set_status("Between")
	ctx.region.set_current_floor("4")
	ctx.region.set_destination_floor("7")
	ctx.region.unlock()

	assert.Equal(t, "STATUS Between 4 7", car_status_frame(ctx))
}

func TestCarReceiveLoopAppliesFloor(t *testing.T) {
	var ctx = test_car(t, 1, 10)

	var car, controller = net.Pipe()
	defer controller.Close() //nolint:errcheck

	var done = make(chan struct{})
	go func() {
		defer close(done)
		car_receive_loop(ctx, car)
	}()

	require.NoError(t, frame_send(controller, "FLOOR 6"))

	// Unknown frames are ignored, not fatal.
	require.NoError(t, frame_send(controller, "WEATHER sunny"))
	require.NoError(t, frame_send(controller, "FLOOR nonsense"))

	controller.Close() //nolint:errcheck
	<-done

	var _, _, dst = ctx.test_snapshot()
	assert.Equal(t, "6", dst)
}
