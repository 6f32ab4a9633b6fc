package model

import "fmt"

// ExceptionNames maps SimConnect exception ids to readable names.
var ExceptionNames = [...]string{
	"None",
	"Error",
	"Size mismatch",
	"Unrecognized ID",
	"Unopened",
	"SimConnect version mismatch",
	"Too many groups",
	"Unknown event name",
	"Too many event names",
	"Duplicate event ID",
	"Too many maps",
	"Too many objects",
	"Too many request IDs",
	"Weather: Invalid port",
	"Weather: Invalid METAR",
	"Weather: Unable to get observation",
	"Weather: Unable to create station",
	"Weather: Unable to remove station",
	"Invalid data type",
	"Invalid data size",
	"Data error",
	"Invalid array",
	"Create object failed",
	"Load flightplan failed",
	"Invalid operation for object type",
	"AI: Illegal operation",
	"Already subscribed",
	"Invalid enum",
	"Data definition error",
	"Duplicate ID",
	"Unknown datum ID",
	"Out of bounds",
	"Client data area already created",
	"AI: Outside of reality bubble",
	"AI: Object container error",
	"AI: Creation failed",
	"AI: ATC error",
	"AI: Scheduling error",
}

// ExceptionName returns the catalog name for an exception id.
func ExceptionName(id uint32) string {
	if int(id) < len(ExceptionNames) {
		return ExceptionNames[id]
	}
	return fmt.Sprintf("Unknown exception %d", id)
}

// SystemState names a simulator state that can be requested on demand.
type SystemState int

const (
	StateAircraftLoaded SystemState = iota // Currently loaded aircraft (string)
	StateDialogMode                        // Does the user have a dialog open? (bool)
	StateFlightLoaded                      // Currently loaded flight (string)
	StateFlightPlan                        // Currently loaded flight plan (string)
	StateSim                               // Is the user flying? (bool)
)

var systemStateNames = [...]string{
	"AircraftLoaded",
	"DialogMode",
	"FlightLoaded",
	"FlightPlan",
	"Sim",
}

// String returns the name the simulator uses for the state.
func (s SystemState) String() string {
	if s >= 0 && int(s) < len(systemStateNames) {
		return systemStateNames[s]
	}
	return "unknown"
}

// IsBool reports whether the state carries a boolean in its integer payload.
func (s SystemState) IsBool() bool {
	return s == StateDialogMode || s == StateSim
}

// ParseSystemState looks up a state by its simulator name.
func ParseSystemState(name string) (SystemState, bool) {
	for i, n := range systemStateNames {
		if n == name {
			return SystemState(i), true
		}
	}
	return 0, false
}

// SystemEventNames lists the system events a client can subscribe to.
var SystemEventNames = [...]string{
	"AircraftLoaded",
	"Crashed",
	"CrashReset",
	"CustomMissionActionExecuted",
	"DialogMode",
	"FlightLoaded",
	"FlightSaved",
	"FlightPlan",
	"FlightPlanActivated",
	"FlightPlanDeactivated",
	"1sec",
	"4sec",
	"6Hz",
	"Frame",
	"PauseFrame",
	"ObjectAdded",
	"ObjectRemoved",
	"Pause",
	"Pause_EX1",
	"Paused",
	"PositionChanged",
	"Sim",
	"SimStart",
	"SimStop",
	"Sound",
	"Unpaused",
	"View",
	"WeatherModeChanged",
}

// IsSystemEvent reports whether name is a known system event.
func IsSystemEvent(name string) bool {
	for _, n := range SystemEventNames {
		if n == name {
			return true
		}
	}
	return false
}
