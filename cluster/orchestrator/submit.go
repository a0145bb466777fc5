package orchestrator

import (
	"context"
	"os"

	"github.com/flabs/taskmanager/bus"
	"github.com/flabs/taskmanager/cluster"
	"github.com/flabs/taskmanager/codec"
	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const watchBuffer = 64

// SubmitEvent sends ev to the orchestrators
func (o *Orchestrator) SubmitEvent(ctx context.Context, ev *types.Event) error {
	if ev == nil || ev.Type == "" {
		return types.NewDetailedErr(types.ErrBadPayload, "event type is empty")
	}
	if ev.ID == "" {
		ev.ID = ev.Type
	}
	return o.bus.Send(ctx, cluster.OrchestrateEventAddress, ev, bus.WithCodec(codec.Event))
}

// SubmitSourceMessage converts a source system message into an event and submits it
func (o *Orchestrator) SubmitSourceMessage(ctx context.Context, name string, msg map[string]any) (*types.Event, error) {
	src, err := o.sources.Get(name)
	if err != nil {
		return nil, err
	}
	ev, err := src.ToEvent(ctx, msg)
	if err != nil {
		return nil, err
	}
	return ev, o.SubmitEvent(ctx, ev)
}

func (o *Orchestrator) handleSource(name string) bus.Handler {
	return func(ctx context.Context, msg *bus.Message) {
		logger := log.WithFunc("orchestrator.handleSource").WithField("source", name)
		raw, ok := msg.Body.(map[string]any)
		if !ok {
			logger.Warnf(ctx, "unexpected body %T", msg.Body)
			_ = msg.Fail(ctx, 400, types.ErrInvalidSourceMessage.Error())
			return
		}
		ev, err := o.SubmitSourceMessage(ctx, name, raw)
		if err != nil {
			logger.Error(ctx, err, "submit failed")
			_ = msg.Fail(ctx, 400, err.Error())
			return
		}
		_ = msg.Reply(ctx, ev, bus.WithCodec(codec.Event))
	}
}

// Watch observes address, the channel drops messages when the reader is too slow
func (o *Orchestrator) Watch(ctx context.Context, address string) (<-chan *bus.Message, error) {
	logger := log.WithFunc("orchestrator.Watch").WithField("address", address)
	ch := make(chan *bus.Message, watchBuffer)
	c, err := o.bus.Observe(ctx, address, func(ctx context.Context, msg *bus.Message) {
		select {
		case ch <- msg:
		default:
			logger.Warn(ctx, "watcher too slow, drop message")
		}
	})
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		c.Unregister()
	}()
	return ch, nil
}

// LoadSpecFile adds the specs of a YAML (or JSON) file
func (o *Orchestrator) LoadSpecFile(ctx context.Context, path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	specs := []*types.TaskSpec{}
	if err := yaml.Unmarshal(content, &specs); err != nil {
		return 0, errors.Wrapf(err, "parse %s", path)
	}
	if len(specs) == 0 {
		return 0, nil
	}
	return len(specs), o.AddTaskSpecs(ctx, specs...)
}
