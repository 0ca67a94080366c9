package elevator

// Config from elevator.h - probably belongs elsewhere

/*
 * Maximum number of elevator cars the controller will track at once.
 * The registry is a fixed size table; a car asking for a slot when
 * all are in use is turned away and disconnects.
 */

const MAX_CARS = 16

/*
 * Maximum number of stops a single car will accept.
 * Stops that would go past this are dropped silently; the call
 * itself is still answered with the car's name.
 */

const MAX_QUEUE_STOPS = 32

/*
 * Display name for a car.  31 characters plus the terminator,
 * same limit as the original.
 */

const MAX_CAR_NAME = 31

/*
 * Default TCP port for the controller.
 * Can be changed in controller.yaml.
 */

const DEFAULT_DISPATCH_PORT = 3000

/*
 * Floors.  Zero is not a floor; basements are negative and print
 * with a "B" prefix.  Nobody has built a 1000 storey building yet.
 */

const MIN_FLOOR = -99
const MAX_FLOOR = 999

/*
 * Longest status string is "Closing", 7 characters.
 * Longest floor string is 3 characters ("999" or "B99").
 * Both sizes include the NUL because the region layout is shared
 * with processes that treat the fields as C strings.
 */

const STATUS_FIELD_SIZE = 8
const FLOOR_FIELD_SIZE = 4

/*
 * The car treats a safety system counter of 3 or more as
 * "safety monitor has gone away" and forces emergency mode.
 */

const SAFETY_DISCONNECT_COUNT = 3
