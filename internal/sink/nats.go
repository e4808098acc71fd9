package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cic2nf/internal/config"
	"cic2nf/internal/core/model"
	"cic2nf/internal/logger"
	"cic2nf/internal/protocol"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// NATSSink publishes every record as a protobuf-encoded structpb.Struct.
type NATSSink struct {
	nc     *nats.Conn
	prefix string
	log    zerolog.Logger
}

// NewNATSSink connects to the NATS server in cfg.
func NewNATSSink(cfg config.NATSConfig) (*NATSSink, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("cic2nf"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.URL, err)
	}
	log := logger.Get("sink.nats")
	log.Info().Str("url", cfg.URL).Msg("Connected to NATS server")
	return &NATSSink{nc: nc, prefix: cfg.SubjectPrefix, log: log}, nil
}

func (s *NATSSink) Name() string { return "nats" }

// Subject returns the subject a label's records are published on. The label
// becomes a single subject token.
func Subject(prefix, label string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, label)
	if token == "" {
		token = unlabeledFile
	}
	return prefix + "." + token
}

// EncodeFlow converts a record into the published message.
func EncodeFlow(label string, nf *model.NetFlow) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"label":         structpb.NewStringValue(label),
		"label_index":   structpb.NewNumberValue(float64(nf.Label.Index)),
		"timestamp":     structpb.NewStringValue(nf.Timestamp.UTC().Format(time.RFC3339Nano)),
		"duration_ms":   structpb.NewNumberValue(float64(nf.Duration.Milliseconds())),
		"protocol":      structpb.NewNumberValue(float64(nf.Protocol)),
		"protocol_name": structpb.NewStringValue(protocol.Name(nf.Protocol)),
		"src_ip":        structpb.NewStringValue(nf.Src.IP),
		"src_port":      structpb.NewNumberValue(float64(nf.Src.Port)),
		"dst_ip":        structpb.NewStringValue(nf.Dst.IP),
		"dst_port":      structpb.NewNumberValue(float64(nf.Dst.Port)),
		"flags":         structpb.NewStringValue(nf.Flags.String()),
		"qos":           structpb.NewNumberValue(float64(nf.QoS)),
		"packets":       structpb.NewNumberValue(float64(nf.Packets)),
		"bytes":         structpb.NewNumberValue(float64(nf.Bytes)),
		"flows":         structpb.NewNumberValue(float64(nf.Flows)),
	}}
}

// Write publishes flows in order and flushes the connection.
func (s *NATSSink) Write(ctx context.Context, label string, flows []*model.NetFlow) error {
	if len(flows) == 0 {
		return nil
	}
	subject := Subject(s.prefix, label)

	for _, nf := range flows {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := proto.Marshal(EncodeFlow(label, nf))
		if err != nil {
			return fmt.Errorf("failed to marshal flow: %w", err)
		}
		if err := s.nc.Publish(subject, data); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", subject, err)
		}
	}

	if err := s.nc.Flush(); err != nil {
		return fmt.Errorf("failed to flush nats connection: %w", err)
	}
	s.log.Debug().Str("subject", subject).Int("flows", len(flows)).Msg("Published flows")
	return nil
}

// Close drains and closes the NATS connection.
func (s *NATSSink) Close() error {
	if s.nc == nil {
		return nil
	}
	return s.nc.Drain()
}
