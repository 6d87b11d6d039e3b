package kinegraph

import (
	"log"
	"os"
	"time"
)

// Portnumbers structs can contain all TCP port numbers used by Kinegraph.
type Portnumbers struct {
	RPC    int
	Status int
}

// Ports globally holds all TCP port numbers used by Kinegraph.
var Ports Portnumbers

func setPortnumbers(base int) {
	Ports.RPC = base
	Ports.Status = base + 1
}

// BuildInfo can contain compile-time information about the build
type BuildInfo struct {
	Version string
	Githash string
	Gitdate string
	Date    string
	Host    string
	Summary string
}

// Build is a global holding compile-time information about the build
var Build = BuildInfo{
	Version: "0.1.0",
	Githash: "no git hash computed",
	Gitdate: "no git date computed",
	Date:    "no build date computed",
}

// KinegraphStartTime is a global holding the time init() was run
var KinegraphStartTime time.Time

// ProblemLogger will log warning messages (including configuration diagnostics) to a file
var ProblemLogger *log.Logger

// UpdateLogger will log client updates to a file
var UpdateLogger *log.Logger

func init() {
	setPortnumbers(5600)
	KinegraphStartTime = time.Now()

	// Kinegraph main program will override these, but at least initialize with a sensible value
	ProblemLogger = log.New(os.Stderr, "", log.LstdFlags)
	UpdateLogger = log.New(os.Stdout, "", log.LstdFlags)
}
