package wal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/types"
	"github.com/flabs/taskmanager/wal/kv"

	"github.com/cockroachdb/errors"
)

const fileMode = 0600

// Hydro is the simplest wal implementation.
type Hydro struct {
	handlers sync.Map
	kv       kv.KV
}

// NewHydro initailizes a new Hydro instance on a bolt file.
func NewHydro(ctx context.Context, path string, timeout time.Duration) (*Hydro, error) {
	store := kv.NewBolt(kv.DefaultBucket)
	if err := store.Open(ctx, path, fileMode, timeout); err != nil {
		return nil, err
	}
	return NewHydroWithKV(store), nil
}

// NewHydroWithKV .
func NewHydroWithKV(store kv.KV) *Hydro {
	return &Hydro{kv: store}
}

// Close disconnects the kvdb.
func (h *Hydro) Close(ctx context.Context) error {
	return h.kv.Close(ctx)
}

// Register registers a new event handler.
func (h *Hydro) Register(handler EventHandler) {
	h.handlers.Store(handler.Event(), handler)
}

// Recover starts a disaster recovery, which will replay all the events.
func (h *Hydro) Recover(ctx context.Context) {
	logger := log.WithFunc("wal.Recover")
	ch, _ := h.kv.Scan(ctx, []byte(EventPrefix))

	events := []HydroEvent{}
	for ent := range ch {
		ev, err := h.decodeEvent(ent)
		if err != nil {
			logger.Error(ctx, err, "decode event error")
			continue
		}
		events = append(events, ev)
	}

	for _, ev := range events {
		handler, ok := h.getEventHandler(ev.Type)
		if !ok {
			logger.Errorf(ctx, types.NewDetailedErr(types.ErrUnregisteredWALEventType, ev.Type), "no such event handler for %s", ev.Type)
			continue
		}

		if err := h.recover(ctx, handler, ev); err != nil {
			logger.Errorf(ctx, err, "handle event %d (%s) failed", ev.ID, ev.Type)
			continue
		}
	}
}

// Log records a log item.
func (h *Hydro) Log(ctx context.Context, eventype string, item any) (Commit, error) {
	handler, ok := h.getEventHandler(eventype)
	if !ok {
		return nil, types.NewDetailedErr(types.ErrUnregisteredWALEventType, eventype)
	}

	bs, err := handler.Encode(item)
	if err != nil {
		return nil, err
	}

	event := NewHydroEvent(h.kv)
	event.Type = eventype
	event.Item = bs

	if err = event.Create(ctx); err != nil {
		return nil, err
	}

	return event.Delete, nil
}

func (h *Hydro) recover(ctx context.Context, handler EventHandler, event HydroEvent) error {
	item, err := handler.Decode(event.Item)
	if err != nil {
		return err
	}

	switch handle, err := handler.Check(ctx, item); {
	case err != nil:
		return err
	case !handle:
		return event.Delete(ctx)
	}

	if err := handler.Handle(ctx, item); err != nil {
		return err
	}

	return event.Delete(ctx)
}

func (h *Hydro) getEventHandler(event string) (handler EventHandler, ok bool) {
	var raw any
	if raw, ok = h.handlers.Load(event); !ok {
		return
	}

	handler, ok = raw.(EventHandler)

	return
}

func (h *Hydro) decodeEvent(ent kv.ScanEntry) (event HydroEvent, err error) {
	if err = ent.Error(); err != nil {
		return
	}

	key, value := ent.Pair()
	if err = json.Unmarshal(value, &event); err != nil {
		return event, errors.Wrapf(types.ErrBadWALEvent, "%s", err)
	}

	event.kv = h.kv
	event.ID, err = parseHydroEventID(key)

	return
}
