package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"fstours/internal/events"
	"fstours/internal/metrics"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB appends tour and leg change events to an append-only history
// table. It implements events.Publisher.
type ClickHouseDB struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the change history table.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	err := d.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tour_events (
			entity      LowCardinality(String),
			action      LowCardinality(String),
			key         String,
			at          DateTime64(3),
			recorded_at DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(at)
		ORDER BY (entity, key, at)`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Publish implements events.Publisher.
func (d *ClickHouseDB) Publish(ctx context.Context, ev events.Event) error {
	err := d.conn.Exec(ctx, `
		INSERT INTO tour_events (entity, action, key, at) VALUES (?, ?, ?, ?)
	`, ev.Entity, ev.Action, ev.Key, ev.At)
	metrics.RecordEventPublish("clickhouse", err == nil)
	if err != nil {
		return fmt.Errorf("insert tour event: %w", err)
	}
	return nil
}

// History returns the recorded events for one entity key, oldest first.
func (d *ClickHouseDB) History(ctx context.Context, entity, key string) ([]events.Event, error) {
	rows, err := d.conn.Query(ctx, `
		SELECT entity, action, key, at FROM tour_events
		WHERE entity = ? AND key = ?
		ORDER BY at`, entity, key)
	if err != nil {
		return nil, fmt.Errorf("query tour events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []events.Event
	for rows.Next() {
		var ev events.Event
		if err := rows.Scan(&ev.Entity, &ev.Action, &ev.Key, &ev.At); err != nil {
			return nil, fmt.Errorf("scan tour event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
