package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/types"
	"github.com/flabs/taskmanager/wal"
)

const eventOrchestrate = "orchestrate-event" // logged until the event is orchestrated

// WAL for orchestrator.
type WAL struct {
	wal.WAL
	config       types.Config
	orchestrator *Orchestrator
}

func newWAL(ctx context.Context, config types.Config, o *Orchestrator) (*WAL, error) {
	hydro, err := wal.NewHydro(ctx, config.WALFile, config.WALOpenTimeout)
	if err != nil {
		return nil, err
	}
	return newWALWith(hydro, config, o), nil
}

func newWALWith(w wal.WAL, config types.Config, o *Orchestrator) *WAL {
	ow := &WAL{WAL: w, config: config, orchestrator: o}
	ow.Register(newOrchestrateEventHandler(o))
	return ow
}

func (w *WAL) logEvent(ctx context.Context, ev *types.Event) (wal.Commit, error) {
	return w.Log(ctx, eventOrchestrate, ev)
}

// OrchestrateEventHandler replays the events of a crashed orchestration
type OrchestrateEventHandler struct {
	event        string
	orchestrator *Orchestrator
}

func newOrchestrateEventHandler(o *Orchestrator) *OrchestrateEventHandler {
	return &OrchestrateEventHandler{event: eventOrchestrate, orchestrator: o}
}

// Event .
func (h *OrchestrateEventHandler) Event() string {
	return h.event
}

// Check .
func (h *OrchestrateEventHandler) Check(_ context.Context, raw any) (bool, error) {
	ev, ok := raw.(*types.Event)
	if !ok {
		return false, types.NewDetailedErr(types.ErrBadWALEvent, raw)
	}
	return ev.Type != "", nil
}

// Encode .
func (h *OrchestrateEventHandler) Encode(raw any) ([]byte, error) {
	ev, ok := raw.(*types.Event)
	if !ok {
		return nil, types.NewDetailedErr(types.ErrBadWALEvent, raw)
	}
	return json.Marshal(ev)
}

// Decode .
func (h *OrchestrateEventHandler) Decode(bs []byte) (any, error) {
	ev := &types.Event{}
	err := json.Unmarshal(bs, ev)
	return ev, err
}

// Handle orchestrates the event again
func (h *OrchestrateEventHandler) Handle(ctx context.Context, raw any) error {
	ev, _ := raw.(*types.Event)
	log.WithFunc("orchestrator.WAL.Handle").WithEvent(ev).Infof(ctx, "replay %s event", ev.Type)
	h.orchestrator.orchestrate(ctx, ev)
	return nil
}
