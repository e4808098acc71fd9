package factory

import (
	"errors"
	"fmt"

	"cic2nf/internal/config"
	"cic2nf/internal/logger"
	"cic2nf/internal/model"
)

// ErrUnknownSink is returned by Create for a sink type nobody registered.
var ErrUnknownSink = errors.New("unknown sink type")

// SinkFactory builds one sink from the global config and its own definition.
type SinkFactory func(cfg *config.Config, def config.SinkConfig) (model.Sink, error)

// registry holds the mapping of sink types to their factory functions.
var registry = make(map[string]SinkFactory)

// RegisterSink registers a new sink type with its factory function.
func RegisterSink(name string, factory SinkFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("sink type '%s' already registered", name))
	}
	registry[name] = factory
}

// Create builds every enabled sink of cfg, in config order. If one fails the
// sinks created so far are closed.
func Create(cfg *config.Config) ([]model.Sink, error) {
	log := logger.Get("factory")
	var sinks []model.Sink

	for _, def := range cfg.EnabledSinks() {
		log.Info().Str("type", def.Type).Msg("Creating sink")

		factory, ok := registry[def.Type]
		if !ok {
			closeAll(sinks)
			return nil, fmt.Errorf("%w: '%s'", ErrUnknownSink, def.Type)
		}

		sink, err := factory(cfg, def)
		if err != nil {
			closeAll(sinks)
			return nil, fmt.Errorf("error creating sink type '%s': %w", def.Type, err)
		}
		sinks = append(sinks, sink)
	}

	return sinks, nil
}

func closeAll(sinks []model.Sink) {
	for _, s := range sinks {
		s.Close()
	}
}
