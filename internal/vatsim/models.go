// Package vatsim fetches and models the VATSIM v3 network data feed.
package vatsim

import "time"

// Snapshot is one complete network data feed payload
type Snapshot struct {
	General     General      `json:"general"`
	Pilots      []Pilot      `json:"pilots"`
	Controllers []Controller `json:"controllers"`
	ATIS        []Controller `json:"atis"`
}

// General holds feed-level metadata
type General struct {
	Version          int       `json:"version"`
	UpdateTimestamp  time.Time `json:"update_timestamp"`
	ConnectedClients int       `json:"connected_clients"`
	UniqueUsers      int       `json:"unique_users"`
}

// Pilot is one connected pilot in the feed
type Pilot struct {
	CID         int         `json:"cid"`
	Name        string      `json:"name"`
	Callsign    string      `json:"callsign"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Altitude    int         `json:"altitude"`
	Groundspeed int         `json:"groundspeed"`
	Heading     int         `json:"heading"`
	Transponder string      `json:"transponder"`
	FlightPlan  *FlightPlan `json:"flight_plan"`
	LogonTime   time.Time   `json:"logon_time"`
	LastUpdated time.Time   `json:"last_updated"`
}

// FlightPlan is a pilot's filed flight plan, nil when none is filed
type FlightPlan struct {
	FlightRules         string `json:"flight_rules"`
	Aircraft            string `json:"aircraft"`
	AircraftShort       string `json:"aircraft_short"`
	Departure           string `json:"departure"`
	Arrival             string `json:"arrival"`
	Alternate           string `json:"alternate"`
	CruiseTAS           string `json:"cruise_tas"`
	Altitude            string `json:"altitude"`
	Route               string `json:"route"`
	Remarks             string `json:"remarks"`
	AssignedTransponder string `json:"assigned_transponder"`
}

// Controller is one connected controller or ATIS in the feed
type Controller struct {
	CID         int       `json:"cid"`
	Name        string    `json:"name"`
	Callsign    string    `json:"callsign"`
	Frequency   string    `json:"frequency"`
	Facility    int       `json:"facility"`
	Rating      int       `json:"rating"`
	TextATIS    []string  `json:"text_atis"`
	LogonTime   time.Time `json:"logon_time"`
	LastUpdated time.Time `json:"last_updated"`
}
