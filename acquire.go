package kinegraph

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// SourceState is used to indicate the active/inactive/transition state of an Acquisition
type SourceState int

// Names for the possible values of SourceState
const (
	Inactive SourceState = iota // No ticks are running
	Active                      // The core loop is ticking
	Stopping                    // Stop was requested; the core loop is finishing its current step
)

func (s SourceState) String() string {
	switch s {
	case Inactive:
		return "Inactive"
	case Active:
		return "Active"
	case Stopping:
		return "Stopping"
	default:
		return fmt.Sprintf("SourceState(%d)", int(s))
	}
}

// Acquisition drives an Engine from a Sampler at a fixed tick period. All
// engine mutation happens on one goroutine: the core loop while Active, or the
// caller of Do while Inactive. Stopping leaves the engine's clock and buffers
// untouched, so a later Start continues the same circular window.
type Acquisition struct {
	engine          *Engine
	sampler         Sampler
	period          time.Duration
	queuedRequests  chan func()
	abortSelf       chan struct{} // Signal to the core loop to stop
	sourceState     SourceState
	sourceStateLock sync.Mutex // guards sourceState and abortSelf
	runDone         sync.WaitGroup
	ticks           int
}

// NewAcquisition creates an inactive Acquisition. A zero period selects the
// engine's configured tick period.
func NewAcquisition(engine *Engine, sampler Sampler, period time.Duration) *Acquisition {
	if period <= 0 {
		period = engine.Config().TickPeriod
	}
	return &Acquisition{
		engine:         engine,
		sampler:        sampler,
		period:         period,
		queuedRequests: make(chan func()),
	}
}

// Start launches the core loop. It is an error to Start an Acquisition that is not Inactive.
func (a *Acquisition) Start() error {
	a.sourceStateLock.Lock()
	defer a.sourceStateLock.Unlock()
	if a.sourceState != Inactive {
		return fmt.Errorf("cannot Start() an acquisition that's %v, not Inactive", a.sourceState)
	}
	if a.sampler == nil {
		return fmt.Errorf("cannot Start() an acquisition with no sampler")
	}
	a.abortSelf = make(chan struct{})
	a.sourceState = Active
	a.runDone.Add(1)
	go a.CoreLoop(a.abortSelf)
	return nil
}

// CoreLoop has the engine consume one sample per tick until abort is closed.
// This will be a long-running goroutine, as long as the acquisition is active.
func (a *Acquisition) CoreLoop(abort <-chan struct{}) {
	defer func() {
		a.sourceStateLock.Lock()
		a.sourceState = Inactive
		a.sourceStateLock.Unlock()
		a.runDone.Done()
	}()
	ticker := time.NewTicker(a.period)
	defer ticker.Stop()

	for {
		// Use select to interleave activities that must NOT be done concurrently:
		// 1. Handle requests that read or change the engine (RPC calls, pointer input)
		// 2. Run one engine tick
		select {
		case <-abort:
			return

		case request := <-a.queuedRequests:
			request()

		case <-ticker.C:
			a.tick()
		}
	}
}

func (a *Acquisition) tick() {
	a.engine.Tick(a.sampler.Sample(a.engine.Clock()))
	a.ticks++
}

// Stop tells the core loop to finish and waits until it has.
func (a *Acquisition) Stop() error {
	a.sourceStateLock.Lock()
	switch a.sourceState {
	case Inactive:
		a.sourceStateLock.Unlock()
		return fmt.Errorf("acquisition not active, cannot stop")
	case Stopping:
		a.sourceStateLock.Unlock()
		a.runDone.Wait()
		return nil
	}
	a.sourceState = Stopping
	closeIfOpen(a.abortSelf)
	a.sourceStateLock.Unlock()

	a.runDone.Wait()
	return nil
}

func closeIfOpen(c chan struct{}) {
	select {
	case <-c:
		log.Println("warning: you tried to close a channel twice, but Kinegraph outsmarted you")
	default:
		close(c)
	}
}

// Do runs f with exclusive access to the engine and returns when f is done.
// While Active, f runs on the core loop between two ticks. f must not call
// methods of the Acquisition.
func (a *Acquisition) Do(f func(*Engine)) {
	for {
		a.sourceStateLock.Lock()
		switch a.sourceState {
		case Inactive:
			defer a.sourceStateLock.Unlock()
			f(a.engine)
			return

		case Stopping:
			a.sourceStateLock.Unlock()
			a.runDone.Wait()
			continue
		}

		abort := a.abortSelf
		a.sourceStateLock.Unlock()
		done := make(chan struct{})
		request := func() {
			defer close(done)
			f(a.engine)
		}
		select {
		case a.queuedRequests <- request:
			<-done
			return
		case <-abort:
			// The loop is going away; run f once it is gone.
			a.runDone.Wait()
		}
	}
}

// SetSampler replaces the sample source, effective from the next tick.
func (a *Acquisition) SetSampler(s Sampler) {
	a.Do(func(*Engine) { a.sampler = s })
}

// GetState returns the sourceState value in a race-free fashion
func (a *Acquisition) GetState() SourceState {
	a.sourceStateLock.Lock()
	defer a.sourceStateLock.Unlock()
	return a.sourceState
}

// Running tells whether the core loop is active.
func (a *Acquisition) Running() bool {
	return a.GetState() == Active
}

// Ticks returns how many ticks the core loop has run (including ticks that
// the engine ignored while Paused).
func (a *Acquisition) Ticks() int {
	var n int
	a.Do(func(*Engine) { n = a.ticks })
	return n
}

// Period returns the tick period.
func (a *Acquisition) Period() time.Duration {
	return a.period
}
