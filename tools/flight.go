package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

const (
	FlightTimesName        = "get_flight_times"
	flightTimesDescription = "Get the flight times between two cities"

	// FlightNotFound is the exact result sent back for unknown routes.
	FlightNotFound = `{"error":"Flight not found"}`
)

// FlightRecord is one row of the static schedule. Field order matters: it is
// the order the record is serialized in.
type FlightRecord struct {
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
	Duration  string `json:"duration"`
}

// flights is keyed by "DEPARTURE-ARRIVAL" in upper case.
var flights = map[string]FlightRecord{
	"LAX-NYC": {Departure: "02:00 PM", Arrival: "10:30 PM", Duration: "8h 30m"},
	"LHR-JFK": {Departure: "10:00 AM", Arrival: "01:00 PM", Duration: "3h 00m"},
	"NYC-LAX": {Departure: "08:00 AM", Arrival: "11:30 AM", Duration: "3h 30m"},
	"JFK-LHR": {Departure: "09:00 PM", Arrival: "09:00 AM", Duration: "12h 00m"},
	"CDG-DXB": {Departure: "11:00 AM", Arrival: "08:00 PM", Duration: "9h 00m"},
	"DXB-CDG": {Departure: "03:00 AM", Arrival: "07:30 AM", Duration: "4h 30m"},
}

// RouteKey builds the lookup key for a route. Both codes are uppercased before
// they are joined.
func RouteKey(departure, arrival string) string {
	return strings.ToUpper(departure) + "-" + strings.ToUpper(arrival)
}

// LookupFlight returns the stored record for the route. Matching is exact
// apart from case.
func LookupFlight(departure, arrival string) (FlightRecord, bool) {
	rec, ok := flights[RouteKey(departure, arrival)]
	return rec, ok
}

// FlightTimesArgs are the arguments of get_flight_times.
type FlightTimesArgs struct {
	Departure string `json:"departure" jsonschema_description:"The departure city (airport code)"`
	Arrival   string `json:"arrival" jsonschema_description:"The arrival city (airport code)"`
}

type FlightTimes struct {
	definition mcptypes.Tool
}

func NewFlightTimes() *FlightTimes {
	return &FlightTimes{
		definition: mcptypes.Tool{
			Name:        FlightTimesName,
			Description: flightTimesDescription,
			InputSchema: GenerateInputSchema[FlightTimesArgs](),
		},
	}
}

func (f *FlightTimes) Name() string {
	return FlightTimesName
}

func (f *FlightTimes) Definition() mcptypes.Tool {
	return f.definition
}

// Call answers with the JSON record for the route, or FlightNotFound. An
// unknown route is a normal result, not an error.
func (f *FlightTimes) Call(ctx context.Context, args map[string]any) (string, error) {
	in, err := decodeArgs[FlightTimesArgs](args)
	if err != nil {
		return "", err
	}
	if in.Departure == "" || in.Arrival == "" {
		return "", fmt.Errorf("%w: departure and arrival are required", ErrInvalidArguments)
	}

	rec, ok := LookupFlight(in.Departure, in.Arrival)
	if !ok {
		return FlightNotFound, nil
	}

	out, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode flight record: %w", err)
	}
	return string(out), nil
}
