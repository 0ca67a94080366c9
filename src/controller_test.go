package elevator

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The registry is package state, the same as in the original; tests
// scrub it before and after so they can run in any order.
func reset_registry(t *testing.T) {
	t.Helper()

	var scrub = func() {
		registry_mutex.Lock()
		defer registry_mutex.Unlock()
		for i := range registry {
			if registry[i].region != nil {
				registry[i].region.detach()
			}
			registry[i] = car_entry_t{}
		}
	}

	scrub()
	t.Cleanup(scrub)
}

func TestControllerRegistration(t *testing.T) {
	reset_registry(t)

	var server, client = net.Pipe()
	defer server.Close() //nolint:errcheck
	defer client.Close() //nolint:errcheck

	// Floors arrive inverted; registration swaps them.
	var slot = controller_register_car(server, "CAR TestCar 5 1")
	require.GreaterOrEqual(t, slot, 0)

	registry_mutex.Lock()
	var entry = registry[slot]
	registry_mutex.Unlock()

	assert.True(t, entry.in_use)
	assert.Equal(t, "TestCar", entry.name)
	assert.Equal(t, 1, entry.lo)
	assert.Equal(t, 5, entry.hi)
	assert.Equal(t, "Closed", entry.status)
	assert.Equal(t, "1", entry.current)
	assert.Equal(t, "1", entry.dest)
	assert.Empty(t, entry.queue)

	// No shared region exists for this name; the slot still lives,
	// just without the mirror.
	assert.Nil(t, entry.region)
}

func TestControllerRegistrationMirrorsRegion(t *testing.T) {
	reset_registry(t)

	var region = test_region(t)

	var server, client = net.Pipe()
	defer server.Close() //nolint:errcheck
	defer client.Close() //nolint:errcheck

	var slot = controller_register_car(server, fmt.Sprintf("CAR %s 2 6", region.name))
	require.GreaterOrEqual(t, slot, 0)

	region.lock()
	assert.Equal(t, "Closed", region.status())
	assert.Equal(t, "2", region.current_floor())
	assert.Equal(t, "2", region.destination_floor())
	region.unlock()
}

func TestControllerRegistrationRejects(t *testing.T) {
	reset_registry(t)

	var server, client = net.Pipe()
	defer server.Close() //nolint:errcheck
	defer client.Close() //nolint:errcheck

	assert.Equal(t, -1, controller_register_car(server, "CAR"))
	assert.Equal(t, -1, controller_register_car(server, "CAR OnlyName"))
	assert.Equal(t, -1, controller_register_car(server, "CAR X zero 5"))
	assert.Equal(t, -1, controller_register_car(server, "CAR X 1 0"))
	assert.Equal(t, -1, controller_register_car(server, "CAR bad name 1 5 extra"))
}

func TestControllerAdoption(t *testing.T) {
	reset_registry(t)

	var first, firstPeer = net.Pipe()
	defer firstPeer.Close() //nolint:errcheck
	var second, secondPeer = net.Pipe()
	defer second.Close()     //nolint:errcheck
	defer secondPeer.Close() //nolint:errcheck

	var slot1 = controller_register_car(first, "CAR Twin 1 5")
	require.GreaterOrEqual(t, slot1, 0)

	// Same name again: the newcomer takes over the slot.
	var slot2 = controller_register_car(second, "CAR Twin 2 8")
	assert.Equal(t, slot1, slot2)

	registry_mutex.Lock()
	var entry = registry[slot2]
	registry_mutex.Unlock()

	assert.Equal(t, second, entry.conn)
	assert.Equal(t, 2, entry.lo)
	assert.Equal(t, 8, entry.hi)

	// The first connection was cut loose.
	var buf [1]byte
	var _, err = first.Read(buf[:])
	assert.Error(t, err)
}

func TestControllerRegistryFull(t *testing.T) {
	reset_registry(t)

	registry_mutex.Lock()
	for i := range registry {
		registry[i].in_use = true
		registry[i].name = fmt.Sprintf("Car%d", i)
	}
	registry_mutex.Unlock()

	var server, client = net.Pipe()
	defer server.Close() //nolint:errcheck
	defer client.Close() //nolint:errcheck

	assert.Equal(t, -1, controller_register_car(server, "CAR Overflow 1 5"))
}

// Stuff a fake car straight into the table.
func test_add_car(t *testing.T, name string, lo int, hi int) net.Conn {
	t.Helper()

	registry_mutex.Lock()
	defer registry_mutex.Unlock()

	for i := range registry {
		if !registry[i].in_use {
			var server, client = net.Pipe()
			t.Cleanup(func() {
				server.Close() //nolint:errcheck
				client.Close() //nolint:errcheck
			})
			registry[i] = car_entry_t{
				in_use:  true,
				name:    name,
				lo:      lo,
				hi:      hi,
				status:  "Closed",
				current: floor_format(lo),
				dest:    floor_format(lo),
				conn:    server,
			}
			return client
		}
	}

	t.Fatal("no free slot")
	return nil
}

func test_find_car(t *testing.T, name string) *car_entry_t {
	t.Helper()

	for i := range registry {
		if registry[i].in_use && registry[i].name == name {
			return &registry[i]
		}
	}

	t.Fatalf("car %s not in registry", name)
	return nil
}

func TestControllerCallSelectsFirstCovering(t *testing.T) {
	reset_registry(t)

	test_add_car(t, "Alpha", 1, 5)
	var beta = test_add_car(t, "Beta", 1, 10)
	test_add_car(t, "Gamma", 3, 9)

	var caller, callerPeer = net.Pipe()
	defer callerPeer.Close() //nolint:errcheck

	go controller_handle_call(caller, "CALL 8 9")

	// Beta and Gamma both cover 8..9; Beta registered first.
	var reply, replyErr = frame_receive(callerPeer, MAX_FRAME_PAYLOAD)
	require.NoError(t, replyErr)
	assert.Equal(t, "CAR Beta", reply)

	var floor, floorErr = frame_receive(beta, MAX_FRAME_PAYLOAD)
	require.NoError(t, floorErr)
	assert.Equal(t, "FLOOR 8", floor)

	registry_mutex.Lock()
	assert.Equal(t, []int{8, 9}, test_find_car(t, "Beta").queue)
	assert.Empty(t, test_find_car(t, "Alpha").queue)
	assert.Empty(t, test_find_car(t, "Gamma").queue)
	registry_mutex.Unlock()
}

func TestControllerCallUnavailable(t *testing.T) {
	reset_registry(t)

	test_add_car(t, "Alpha", 1, 5)

	var caller, callerPeer = net.Pipe()
	defer callerPeer.Close() //nolint:errcheck

	go controller_handle_call(caller, "CALL 7 8")

	var reply, replyErr = frame_receive(callerPeer, MAX_FRAME_PAYLOAD)
	require.NoError(t, replyErr)
	assert.Equal(t, "UNAVAILABLE", reply)

	registry_mutex.Lock()
	assert.Empty(t, test_find_car(t, "Alpha").queue)
	registry_mutex.Unlock()
}

func TestControllerCallRejectsGarbage(t *testing.T) {
	reset_registry(t)

	test_add_car(t, "Alpha", 1, 5)

	for _, payload := range []string{"CALL 3", "CALL 3 3", "CALL x y", "CALL 0 4"} {
		var caller, callerPeer = net.Pipe()

		go controller_handle_call(caller, payload)

		// Dropped without a reply.
		var buf [1]byte
		var _, err = callerPeer.Read(buf[:])
		assert.Error(t, err, payload)
		callerPeer.Close() //nolint:errcheck
	}
}

func TestControllerDispatchStepPopsArrival(t *testing.T) {
	reset_registry(t)

	var client = test_add_car(t, "Alpha", 1, 10)

	registry_mutex.Lock()
	var entry = test_find_car(t, "Alpha")
	entry.queue = []int{3, 7}
	entry.status = "Opening"
	entry.current = "3"
	registry_mutex.Unlock()

	go func() {
		registry_mutex.Lock()
		defer registry_mutex.Unlock()
		controller_dispatch_step(test_find_car(t, "Alpha"))
	}()

	// Arrival at 3 pops the head; the next stop goes out.
	var floor, err = frame_receive(client, MAX_FRAME_PAYLOAD)
	require.NoError(t, err)
	assert.Equal(t, "FLOOR 7", floor)

	registry_mutex.Lock()
	assert.Equal(t, []int{7}, test_find_car(t, "Alpha").queue)
	registry_mutex.Unlock()
}

func TestControllerStatusFrame(t *testing.T) {
	reset_registry(t)

	var server, client = net.Pipe()
	defer server.Close() //nolint:errcheck
	defer client.Close() //nolint:errcheck

	var slot = controller_register_car(server, "CAR Echo 1 9")
	require.GreaterOrEqual(t, slot, 0)

	assert.True(t, controller_handle_status(slot, server, "STATUS Between 2 5"))

	registry_mutex.Lock()
	var entry = registry[slot]
	registry_mutex.Unlock()

	assert.Equal(t, "Between", entry.status)
	assert.Equal(t, "2", entry.current)
	assert.Equal(t, "5", entry.dest)

	// Garbage bodies are terminal for the sender.
	assert.False(t, controller_handle_status(slot, server, "STATUS Sideways 2 5"))
	assert.False(t, controller_handle_status(slot, server, "STATUS Closed 0 5"))
	assert.False(t, controller_handle_status(slot, server, "STATUS Closed 2"))
}
