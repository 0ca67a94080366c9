package elevator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalOpValidation(t *testing.T) {
	for _, op := range []string{"open", "close", "stop", "service_on", "service_off", "up", "down"} {
		assert.True(t, internal_op_valid(op), op)
	}

	for _, op := range []string{"", "OPEN", "halt", "up ", "service"} {
		assert.False(t, internal_op_valid(op), op)
	}
}

func TestInternalButtons(t *testing.T) {
	var region = test_region(t)

	region.lock()
	internal_apply(region, "open")
	assert.EqualValues(t, 1, region.flag(FLAG_OPEN_BUTTON))

	internal_apply(region, "close")
	assert.EqualValues(t, 1, region.flag(FLAG_CLOSE_BUTTON))

	internal_apply(region, "stop")
	assert.EqualValues(t, 1, region.flag(FLAG_EMERGENCY_STOP))
	region.unlock()
}

func TestInternalServiceModeTogglesEmergency(t *testing.T) {
	var region = test_region(t)

	region.lock()
	region.set_flag(FLAG_EMERGENCY_MODE, 1)

	// service_on is the one and only thing that clears emergency.
	internal_apply(region, "service_on")
	assert.EqualValues(t, 1, region.flag(FLAG_INDIVIDUAL_SERVICE))
	assert.EqualValues(t, 0, region.flag(FLAG_EMERGENCY_MODE))

	internal_apply(region, "service_off")
	assert.EqualValues(t, 0, region.flag(FLAG_INDIVIDUAL_SERVICE))
	region.unlock()
}

func TestInternalUpDown(t *testing.T) {
	var region = test_region(t)

	region.lock()
	region.set_status("Closed")
	region.set_current_floor("2")
	region.set_destination_floor("2")

	// Not in service mode: ignored.
	internal_apply(region, "up")
	assert.Equal(t, "2", region.destination_floor())

	region.set_flag(FLAG_INDIVIDUAL_SERVICE, 1)

	internal_apply(region, "up")
	assert.Equal(t, "3", region.destination_floor())

	region.set_destination_floor("2")
	internal_apply(region, "down")
	assert.Equal(t, "1", region.destination_floor())

	// Moving: a second press while Between is ignored, so the one
	// floor at a time rule cannot be stacked into a longer trip.
	region.set_status("Between")
	region.set_destination_floor("2")
	internal_apply(region, "up")
	assert.Equal(t, "2", region.destination_floor())

	// Door open is not a moment for motion either.
	region.set_status("Open")
	internal_apply(region, "down")
	assert.Equal(t, "2", region.destination_floor())
	region.unlock()
}

func TestInternalDownSkipsZero(t *testing.T) {
	var region = test_region(t)

	region.lock()
	region.set_status("Closed")
	region.set_current_floor("1")
	region.set_flag(FLAG_INDIVIDUAL_SERVICE, 1)

	internal_apply(region, "down")
	assert.Equal(t, "B1", region.destination_floor())
	region.unlock()
}
