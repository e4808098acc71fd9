package sink

import (
	"context"
	"fmt"

	"cic2nf/internal/config"
	"cic2nf/internal/core/model"
	"cic2nf/internal/logger"
	"cic2nf/internal/protocol"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS %s (
    Timestamp    DateTime64(3),
    Label        LowCardinality(String),
    LabelIndex   UInt8,
    DurationMs   UInt64,
    Protocol     UInt8,
    ProtocolName LowCardinality(String),
    SrcIP        String,
    SrcPort      UInt16,
    DstIP        String,
    DstPort      UInt16,
    Flags        String,
    QoS          UInt8,
    Packets      UInt64,
    Bytes        UInt64,
    Flows        UInt32
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Label, Timestamp);
`

// ClickHouseSink inserts NetFlow records into a ClickHouse table.
type ClickHouseSink struct {
	conn  driver.Conn
	table string
	log   zerolog.Logger
}

// NewClickHouseSink connects, pings and makes sure the table exists.
func NewClickHouseSink(ctx context.Context, cfg config.ClickHouseConfig) (*ClickHouseSink, error) {
	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(ctx, fmt.Sprintf(createTableStatement, cfg.Table)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log := logger.Get("sink.clickhouse")
	log.Info().Str("table", cfg.Table).Msg("Connected to ClickHouse and ensured table exists")

	return &ClickHouseSink{conn: conn, table: cfg.Table, log: log}, nil
}

func connect(ctx context.Context, cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

func (s *ClickHouseSink) Name() string { return "clickhouse" }

// Write inserts flows as one batch.
func (s *ClickHouseSink) Write(ctx context.Context, label string, flows []*model.NetFlow) error {
	if len(flows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+s.table)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, nf := range flows {
		if err := batch.Append(clickhouseRow(label, nf)...); err != nil {
			batch.Abort()
			return fmt.Errorf("failed to append flow to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	s.log.Debug().Str("label", label).Int("flows", len(flows)).Msg("Inserted flows")
	return nil
}

// clickhouseRow returns the column values of one record in table order.
func clickhouseRow(label string, nf *model.NetFlow) []any {
	return []any{
		nf.Timestamp,
		label,
		nf.Label.Index,
		uint64(nf.Duration.Milliseconds()),
		nf.Protocol,
		protocol.Name(nf.Protocol),
		nf.Src.IP,
		nf.Src.Port,
		nf.Dst.IP,
		nf.Dst.Port,
		nf.Flags.String(),
		nf.QoS,
		nf.Packets,
		nf.Bytes,
		nf.Flows,
	}
}

func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
