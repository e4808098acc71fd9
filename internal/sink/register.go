package sink

import (
	"context"
	"time"

	"cic2nf/internal/config"
	"cic2nf/internal/factory"
	"cic2nf/internal/model"
)

const connectTimeout = 10 * time.Second

func init() {
	factory.RegisterSink("text", func(cfg *config.Config, _ config.SinkConfig) (model.Sink, error) {
		s, err := NewTextSink(cfg.OutputDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	factory.RegisterSink("summary", func(cfg *config.Config, _ config.SinkConfig) (model.Sink, error) {
		return NewSummarySink(cfg.OutputDir), nil
	})
	factory.RegisterSink("clickhouse", func(_ *config.Config, def config.SinkConfig) (model.Sink, error) {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		s, err := NewClickHouseSink(ctx, def.ClickHouse)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	factory.RegisterSink("nats", func(_ *config.Config, def config.SinkConfig) (model.Sink, error) {
		s, err := NewNATSSink(def.NATS)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
