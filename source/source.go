package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// DefaultKeyFields build the event id and type when a source doesn't declare its own
var DefaultKeyFields = []string{"publisher", "region", "dataClass"}

// Source converts the messages of a source system into orchestration events
type Source interface {
	Name() string
	ToEvent(ctx context.Context, raw map[string]any) (*types.Event, error)
}

// Message is the common shape of a source system message
type Message struct {
	Publisher    string         `mapstructure:"publisher"`
	Region       string         `mapstructure:"region"`
	DataClass    string         `mapstructure:"dataClass"`
	BusinessDate string         `mapstructure:"businessDate"`
	Timestamp    string         `mapstructure:"timestamp"`
	SourceSystem string         `mapstructure:"sourceSystem"`
	Extra        map[string]any `mapstructure:",remain"`
}

// Decode a raw message, numbers and booleans are accepted for string fields
func Decode(raw map[string]any) (*Message, error) {
	msg := &Message{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           msg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(types.ErrInvalidSourceMessage, err.Error())
	}
	return msg, nil
}

// Keyed identifies events by joining the values of its key fields with "-"
type Keyed struct {
	name      string
	keyFields []string
}

// New .
func New(config types.SourceConfig) *Keyed {
	keyFields := config.KeyFields
	if len(keyFields) == 0 {
		keyFields = DefaultKeyFields
	}
	return &Keyed{name: config.Name, keyFields: keyFields}
}

// Name .
func (s *Keyed) Name() string {
	return s.name
}

// ToEvent validates raw and builds the event, the payload is raw itself
func (s *Keyed) ToEvent(ctx context.Context, raw map[string]any) (*types.Event, error) {
	logger := log.WithFunc("source.ToEvent").WithField("source", s.name)
	if _, err := Decode(raw); err != nil {
		logger.Error(ctx, err, "bad message")
		return nil, err
	}

	values := make([]string, 0, len(s.keyFields))
	for _, field := range s.keyFields {
		v, ok := raw[field]
		if !ok || v == nil || fmt.Sprint(v) == "" {
			return nil, types.NewDetailedErr(types.ErrInvalidSourceMessage, "missing "+field)
		}
		values = append(values, fmt.Sprint(v))
	}
	key := strings.Join(values, "-")
	return &types.Event{ID: key, Type: key, Payload: raw}, nil
}

// Registry holds the configured sources by name
type Registry struct {
	sources map[string]Source
}

// NewRegistry .
func NewRegistry(configs []types.SourceConfig) *Registry {
	r := &Registry{sources: map[string]Source{}}
	for _, config := range configs {
		r.Register(New(config))
	}
	return r
}

// Register replaces a source with the same name
func (r *Registry) Register(s Source) {
	r.sources[s.Name()] = s
}

// Get .
func (r *Registry) Get(name string) (Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, types.NewDetailedErr(types.ErrUnknownSource, name)
	}
	return s, nil
}

// Names of the registered sources
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}
