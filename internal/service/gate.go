package service

import (
	"context"
	"errors"
	"sync"

	"location-api/internal/models"
)

// ErrModalMandatory is returned when the selector is closed while no location is set.
var ErrModalMandatory = errors.New("service: location selection is mandatory")

// GateState is the derived view every UI surface renders from.
type GateState struct {
	State       string           `json:"state"`
	Location    *models.Location `json:"location,omitempty"`
	ModalOpen   bool             `json:"modalOpen"`
	Mandatory   bool             `json:"mandatory"`
	Initialized bool             `json:"initialized"`
	Error       string           `json:"error,omitempty"`
}

// Gate decides whether the location selector is shown and whether it may be dismissed.
type Gate struct {
	engine *LocationService

	mu       sync.Mutex
	open     bool
	watchers map[chan GateState]struct{}
	stop     func()
}

// NewGate attaches a gate to engine. Create it before engine.Init so the
// selector opens when no location was persisted.
func NewGate(engine *LocationService) *Gate {
	g := &Gate{
		engine:   engine,
		watchers: make(map[chan GateState]struct{}),
	}
	g.stop = engine.Subscribe(g.onEvent)
	if snap := engine.Snapshot(); snap.State == Empty {
		g.open = true
	}
	return g
}

// Detach stops following the engine.
func (g *Gate) Detach() {
	g.stop()
}

func (g *Gate) onEvent(ev Event, snap Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch ev {
	case EventInitialized:
		if snap.State == Empty {
			g.open = true
		}
	case EventResolved, EventReset:
		g.open = false
	}
	g.broadcastLocked(g.deriveLocked(snap))
}

func (g *Gate) deriveLocked(snap Snapshot) GateState {
	return GateState{
		State:       snap.State.String(),
		Location:    snap.Location,
		ModalOpen:   g.open,
		Mandatory:   snap.Location == nil && g.open,
		Initialized: snap.Initialized(),
		Error:       snap.LastError,
	}
}

// State returns the current derived state.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deriveLocked(g.engine.Snapshot())
}

// Open shows the selector.
func (g *Gate) Open() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = true
	st := g.deriveLocked(g.engine.Snapshot())
	g.broadcastLocked(st)
	return st
}

// Close hides the selector. It fails with ErrModalMandatory while no
// location is set.
func (g *Gate) Close() (GateState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.deriveLocked(g.engine.Snapshot())
	if st.Mandatory {
		return st, ErrModalMandatory
	}
	g.open = false
	st.ModalOpen = false
	g.broadcastLocked(st)
	return st, nil
}

// ForceClose hides the selector even when it is mandatory.
func (g *Gate) ForceClose() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = false
	st := g.deriveLocked(g.engine.Snapshot())
	g.broadcastLocked(st)
	return st
}

// Watch streams the derived state, starting with the current one. Slow
// readers only see the latest state. The channel closes when ctx is done.
func (g *Gate) Watch(ctx context.Context) <-chan GateState {
	ch := make(chan GateState, 1)

	g.mu.Lock()
	ch <- g.deriveLocked(g.engine.Snapshot())
	g.watchers[ch] = struct{}{}
	g.mu.Unlock()

	go func() {
		<-ctx.Done()
		g.mu.Lock()
		delete(g.watchers, ch)
		close(ch)
		g.mu.Unlock()
	}()
	return ch
}

func (g *Gate) broadcastLocked(st GateState) {
	for ch := range g.watchers {
		select {
		case ch <- st:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}
