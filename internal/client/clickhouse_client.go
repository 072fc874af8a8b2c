package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"risk-service/internal/config"
	"risk-service/internal/models"
	"risk-service/internal/util"
)

// ClickHouseClient is the analytics sink for composite-score history. Every
// computation appends one row; the history endpoint reads them back in
// chronological order.
type ClickHouseClient struct {
	conn   driver.Conn
	config *config.ClickhouseConfig
	mu     sync.RWMutex
}

const scoreHistoryTable = "score_history"

func NewClickHouseClient(cfg *config.Config, logger *zap.Logger) (*ClickHouseClient, error) {
	chConfig := cfg.Clickhouse

	opts := &ch.Options{
		Addr: []string{chConfig.URL},
		Auth: ch.Auth{
			Username: chConfig.Username,
			Password: chConfig.Password,
			Database: chConfig.Database,
		},
		DialTimeout:      30 * time.Second,
		MaxOpenConns:     50,
		MaxIdleConns:     25,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: ch.ConnOpenInOrder,
	}

	if cfg.IsProduction() || strings.HasPrefix(chConfig.URL, "https://") {
		opts.TLS = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	client := &ClickHouseClient{
		conn:   conn,
		config: &chConfig,
	}

	util.Info("ClickHouse client initialized",
		zap.String("addr", chConfig.URL),
		zap.String("database", chConfig.Database))

	return client, nil
}

// AppendScore records one composite-score computation.
func (c *ClickHouseClient) AppendScore(ctx context.Context, rec *models.ScoreRecord) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	query := fmt.Sprintf(`
        INSERT INTO %s (subject_id, score, ref_score, event_count, device_count, computed_at)
        VALUES (?, ?, ?, ?, ?, ?)`, scoreHistoryTable)

	if err := c.conn.Exec(ctx, query,
		rec.SubjectID, rec.Score, rec.RefScore,
		rec.EventCount, rec.DeviceCount, rec.ComputedAt); err != nil {
		return fmt.Errorf("failed to append score record: %w", err)
	}
	return nil
}

// ScoreHistory returns the most recent score records for a subject, newest
// first.
func (c *ClickHouseClient) ScoreHistory(ctx context.Context, subjectID string, limit int) ([]models.ScoreRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
        SELECT subject_id, score, ref_score, event_count, device_count, computed_at
        FROM %s
        WHERE subject_id = ?
        ORDER BY computed_at DESC
        LIMIT %d`, scoreHistoryTable, limit)

	rows, err := c.conn.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query score history: %w", err)
	}
	defer rows.Close()

	var records []models.ScoreRecord
	for rows.Next() {
		var rec models.ScoreRecord
		var refScore, eventCount, deviceCount int32
		if err := rows.Scan(&rec.SubjectID, &rec.Score, &refScore,
			&eventCount, &deviceCount, &rec.ComputedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score record: %w", err)
		}
		rec.RefScore = int(refScore)
		rec.EventCount = int(eventCount)
		rec.DeviceCount = int(deviceCount)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (c *ClickHouseClient) HealthCheck(ctx context.Context) error {
	if err := c.conn.Ping(ctx); err != nil {
		return fmt.Errorf("clickhouse health check failed: %w", err)
	}
	return nil
}

func (c *ClickHouseClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}
