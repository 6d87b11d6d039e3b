package sweepdb

import "time"

// The composite types used for messages to the ClickHouse database.

// ActivityMessage is the information for the kinegraphactivity table.
type ActivityMessage struct {
	ID        string
	Hostname  string
	Githash   string
	Version   string
	GoVersion string
	CPUs      int
	Start     time.Time
	End       time.Time
}

// SweepMessage is the information required to make an entry in the sweeps table.
type SweepMessage struct {
	ID           string
	Sweep        int
	Clock        int
	Ticks        int
	Radius       int
	DiffMode     string
	Acceleration bool
	Files        []string
	Started      time.Time
	Completed    time.Time
}
