package kinegraph

import (
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"
	"github.com/usnistgov/kinegraph/internal/getbytes"
	"github.com/usnistgov/kinegraph/internal/sweepdb"
)

// Errors returned by SourceControl when a request does not fit the acquisition state.
var (
	ErrNoActiveSource = errors.New("no source is active")
	ErrSourceActive   = errors.New("a source is active (you should call Stop)")
)

// SourceControl is the sub-server that handles configuration and operation of
// the engine and its acquisition.
type SourceControl struct {
	cfg     Config
	engine  *Engine
	acq     *Acquisition
	pointer *PointerSampler
	writer  *SweepWriter
	db      *sweepdb.Connection
	seed    int64

	status        ServerStatus
	clientUpdates chan<- ClientUpdate
	forwardDone   sync.WaitGroup
	lock          sync.Mutex // guards every field above
}

// ServerStatus the status that SourceControl reports to clients.
type ServerStatus struct {
	Running      bool
	SourceName   string
	State        string
	Clock        int
	Capacity     int
	Sweeps       int
	Ticks        int
	Radius       int
	DiffMode     string
	Acceleration bool
}

// SweepEndMessage announces a completed sweep to clients.
type SweepEndMessage struct {
	ID    string
	Clock int
	Sweep int
	Files []string
}

// NewSourceControl creates a SourceControl with an engine built from cfg.
// Messages for clients go to clientUpdates; sweeps are exported by writer (if
// non-nil and enabled in cfg) and recorded in db.
func NewSourceControl(cfg Config, clientUpdates chan<- ClientUpdate, writer *SweepWriter,
	db *sweepdb.Connection) (*SourceControl, error) {
	s := &SourceControl{
		pointer:       NewPointerSampler(),
		writer:        writer,
		db:            db,
		seed:          time.Now().UnixNano(),
		clientUpdates: clientUpdates,
	}
	if err := s.buildEngine(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// buildEngine replaces the engine and starts forwarding its events.
// The caller must hold the lock (or own s exclusively) and no source may be active.
func (s *SourceControl) buildEngine(cfg Config) error {
	engine, err := NewEngine(cfg)
	if err != nil {
		return err
	}
	if s.engine != nil {
		s.engine.Close()
		s.forwardDone.Wait()
	}
	s.cfg = engine.Config()
	s.engine = engine
	s.acq = NewAcquisition(engine, nil, 0)
	events := engine.Subscribe()
	s.forwardDone.Add(1)
	go s.forwardEvents(events, s.cfg)
	return nil
}

// ConfigureEngine replaces the engine with one built from args and saves the
// configuration. Invalid fields are replaced by defaults; the returned error
// lists them, but the engine is rebuilt anyway.
func (s *SourceControl) ConfigureEngine(args *Config, reply *bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.acq.GetState() != Inactive {
		return ErrSourceActive
	}
	cfg := *args
	problems := cfg.Validate()
	if err := s.buildEngine(cfg); err != nil {
		*reply = false
		return err
	}
	viper.Set(configSection, s.cfg.Settings())
	if err := viper.WriteConfig(); err != nil {
		ProblemLogger.Printf("could not save configuration: %v", err)
	}
	s.clientUpdates <- ClientUpdate{tag: "CONFIG", state: s.cfg}
	s.updateStatus()
	s.broadcastUpdate()
	*reply = len(problems) == 0
	return errors.Join(problems...)
}

// Start identifies the sample source given by sourceName and starts ticking.
// "POINTER" samples the live pointer; "SYNTHETIC" generates the configured signal.
func (s *SourceControl) Start(sourceName *string, reply *bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.acq.GetState() != Inactive {
		return ErrSourceActive
	}
	var sampler Sampler
	name := strings.ToUpper(*sourceName)
	switch name {
	case "POINTER":
		sampler = s.pointer
		s.status.SourceName = "Pointer"

	case "SYNTHETIC":
		signal := s.cfg.Synthetic
		if signal == "" {
			signal = SignalSine
		}
		ss, err := NewSyntheticSampler(signal, s.cfg.Noise, s.seed)
		if err != nil {
			return err
		}
		sampler = ss
		s.status.SourceName = "Synthetic " + signal

	default:
		return fmt.Errorf("sample source %q is not recognized", *sourceName)
	}

	UpdateLogger.Printf("Starting sample source named %s\n", name)
	s.acq.SetSampler(sampler)
	if err := s.acq.Start(); err != nil {
		return err
	}
	s.updateStatus()
	s.broadcastUpdate()
	*reply = true
	return nil
}

// Stop stops ticking. The engine keeps its clock and buffers.
func (s *SourceControl) Stop(dummy *string, reply *bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.acq.Running() {
		return ErrNoActiveSource
	}
	UpdateLogger.Printf("Stopping sample source\n")
	if err := s.acq.Stop(); err != nil {
		return err
	}
	s.status.SourceName = ""
	s.updateStatus()
	s.broadcastUpdate()
	*reply = true
	return nil
}

// Restart resumes a Paused engine. The reply is false if it was already Running.
func (s *SourceControl) Restart(dummy *string, reply *bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	var restarted bool
	s.acq.Do(func(e *Engine) { restarted = e.Restart() })
	*reply = restarted
	s.updateStatus()
	s.broadcastUpdate()
	return nil
}

// PointerArgs holds a pointer position. If Height is positive, Y is a pixel
// row in a window of that height; otherwise Y is already an ordinate in [-1, 1].
type PointerArgs struct {
	Y      float64
	Height float64
}

// SetPointer records the live pointer position used by the POINTER source.
func (s *SourceControl) SetPointer(args *PointerArgs, reply *bool) error {
	y := args.Y
	if args.Height > 0 {
		y = PointerOrdinate(args.Y, args.Height)
	}
	s.pointer.Set(y)
	*reply = true
	return nil
}

// Snapshot returns a copy of the named channel's displayable state.
func (s *SourceControl) Snapshot(channelName *string, reply *ChannelSnapshot) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	var err error
	s.acq.Do(func(e *Engine) {
		ch := e.Channel(strings.ToLower(*channelName))
		if ch == nil {
			err = fmt.Errorf("channel %q does not exist or is disabled", *channelName)
			return
		}
		*reply = ch.Snapshot()
	})
	return err
}

// GetStatus returns the current ServerStatus.
func (s *SourceControl) GetStatus(dummy *string, reply *ServerStatus) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.updateStatus()
	*reply = s.status
	return nil
}

// updateStatus refreshes the engine fields of s.status. The caller must hold the lock.
func (s *SourceControl) updateStatus() {
	s.status.Running = s.acq.Running()
	if !s.status.Running {
		s.status.SourceName = ""
	}
	s.acq.Do(func(e *Engine) {
		s.status.State = e.State().String()
		s.status.Clock = e.Clock()
		s.status.Capacity = e.Capacity()
		s.status.Sweeps = e.Sweeps()
		s.status.Radius = e.Config().SmoothingRadius
		s.status.DiffMode = e.Differentiator().Mode().String()
		s.status.Acceleration = e.Config().Acceleration
		s.status.Ticks = s.acq.ticks
	})
}

func (s *SourceControl) broadcastUpdate() {
	s.clientUpdates <- ClientUpdate{tag: "STATUS", state: s.status}
}

// SendAllStatus causes a broadcast to clients containing all broadcastable status info
func (s *SourceControl) SendAllStatus(dummy *string, reply *bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.updateStatus()
	s.broadcastUpdate()
	s.clientUpdates <- ClientUpdate{tag: "CONFIG", state: s.cfg}
	*reply = true
	return nil
}

// forwardEvents relays engine events to clients until the engine is closed.
// TICK messages are dropped rather than queued when clients fall behind.
func (s *SourceControl) forwardEvents(events <-chan Event, cfg Config) {
	defer s.forwardDone.Done()
	sweepStart := time.Now()
	for ev := range events {
		switch ev.Kind {
		case EventTick:
			if ev.Clock == 0 {
				sweepStart = time.Now()
			}
			select {
			case s.clientUpdates <- ClientUpdate{tag: "TICK", state: ev.Updates}:
			default:
			}
		case EventSweepEnd:
			s.handleSweepEnd(ev, cfg, sweepStart)
		}
	}
}

// handleSweepEnd names the sweep, publishes it, exports it and logs it to the database.
func (s *SourceControl) handleSweepEnd(ev Event, cfg Config, started time.Time) {
	id := ulid.Make()
	var files []string
	if cfg.SweepExport && s.writer != nil {
		var err error
		files, err = s.writer.WriteSweep(id, ev.Sweep, ev.Clock, ev.Snapshots)
		if err != nil {
			ProblemLogger.Printf("could not export sweep %d: %v", ev.Sweep, err)
		}
	}
	s.clientUpdates <- ClientUpdate{tag: "SWEEPEND",
		state: SweepEndMessage{ID: id.String(), Clock: ev.Clock, Sweep: ev.Sweep, Files: files}}
	for _, snap := range ev.Snapshots {
		s.clientUpdates <- ClientUpdate{tag: "SWEEPDATA", payload: sweepData(snap)}
	}
	s.db.RecordSweep(&sweepdb.SweepMessage{
		ID:           id.String(),
		Sweep:        ev.Sweep,
		Clock:        ev.Clock,
		Ticks:        ev.Clock + 1,
		Radius:       cfg.SmoothingRadius,
		DiffMode:     cfg.Mode().String(),
		Acceleration: cfg.Acceleration,
		Files:        files,
		Started:      started,
		Completed:    ulid.Time(id.Time()),
	})
}

// sweepData encodes a snapshot as a little-endian uint16 name length, the
// name, and the valid prefix of the cooked sequence as float64 values.
func sweepData(snap ChannelSnapshot) []byte {
	payload := getbytes.FromValue(uint16(len(snap.Name)))
	payload = append(payload, []byte(snap.Name)...)
	return append(payload, getbytes.FromSlice(snap.Cooked[:snap.LastValid+1])...)
}

// shutdown stops any active source and ends event forwarding.
func (s *SourceControl) shutdown() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.acq.Running() {
		s.acq.Stop()
	}
	s.engine.Close()
	s.forwardDone.Wait()
	if s.writer != nil {
		s.writer.Close()
	}
}

// RunRPCServer sets up and runs a permanent JSON-RPC server.
// If autostart names a sample source, ticking starts at once.
// If block, it will block until Ctrl-C and gracefully shut down.
func RunRPCServer(portrpc int, autostart string, block bool) {
	UpdateLogger.Printf("Kinegraph is using config file %s\n", viper.ConfigFileUsed())
	cfg, _ := LoadConfig(viper.GetViper())

	abortDB := make(chan struct{})
	hostname, _ := os.Hostname()
	activity := &sweepdb.ActivityMessage{
		ID:        ulid.Make().String(),
		Hostname:  hostname,
		Githash:   Build.Githash,
		Version:   Build.Version,
		GoVersion: runtime.Version(),
		CPUs:      runtime.NumCPU(),
		Start:     KinegraphStartTime,
	}
	db := sweepdb.StartDBConnection(activity, abortDB)
	if !db.IsConnected() {
		UpdateLogger.Printf("Sweep database is not connected: %v\n", db.Err())
	}

	sourceControl, err := NewSourceControl(cfg, clientMessageChan, NewSweepWriter(cfg.ExportPath), db)
	if err != nil {
		ProblemLogger.Fatal("could not create engine: ", err)
	}

	if autostart != "" {
		var okay bool
		if err := sourceControl.Start(&autostart, &okay); err != nil {
			ProblemLogger.Printf("could not start source %s: %v", autostart, err)
		}
	}

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			sourceControl.lock.Lock()
			sourceControl.updateStatus()
			sourceControl.broadcastUpdate()
			sourceControl.lock.Unlock()
		}
	}()

	server := rpc.NewServer()
	if err := server.Register(sourceControl); err != nil {
		ProblemLogger.Fatal(err)
	}
	port := fmt.Sprintf(":%d", portrpc)
	listener, err := net.Listen("tcp", port)
	if err != nil {
		ProblemLogger.Fatal("listen error:", err)
	}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				UpdateLogger.Print("accept error: ", err)
				return
			}
			UpdateLogger.Printf("new connection established\n")
			go server.ServeCodec(jsonrpc.NewServerCodec(conn))
		}
	}()

	if block {
		interruptCatcher := make(chan os.Signal, 1)
		signal.Notify(interruptCatcher, os.Interrupt)
		<-interruptCatcher
		UpdateLogger.Printf("Interrupted; shutting down\n")
		listener.Close()
		sourceControl.shutdown()
		close(abortDB)
		db.Wait()
	}
}
