package storage

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/adeelqureshi/solana-pool-gateway/internal/models"
)

// ClickHouseStore persists pool creation history for analytics queries
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseStore(addr, database, username, password string, logger *logrus.Logger) (*ClickHouseStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.WithField("addr", addr).Info("Connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: logger}, nil
}

func (c *ClickHouseStore) InsertCreation(ctx context.Context, event *models.PoolCreationEvent) error {
	query := `
		INSERT INTO pool_creations (
			signature, timestamp, pool, creator, token_0, token_1,
			config, amount_0, amount_1, status, error_kind
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		event.Signature,
		event.Timestamp,
		event.Pool,
		event.Creator,
		event.Token0,
		event.Token1,
		event.Config,
		event.Amount0,
		event.Amount1,
		event.Status,
		event.ErrorKind,
	)

	if err != nil {
		return fmt.Errorf("failed to insert creation event: %w", err)
	}

	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
