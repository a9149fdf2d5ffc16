// Package store persists yield samples and aggregate metrics as an
// append-only time series in Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourorg/yield-oracle/internal/model"
)

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// Ping checks database reachability, for the readiness probe.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// InsertSample appends one yield sample. Rows are never updated.
func (s *Store) InsertSample(ctx context.Context, sample model.YieldSample) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO yield_samples (protocol_id, apy, liquidity, tvl, risk_score, collected_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6)`,
		sample.ProtocolID, sample.APY, sample.Liquidity.String(), sample.TVL.String(),
		sample.RiskScore, sample.CollectedAt)
	return err
}

// InsertMetrics appends one aggregate metrics row. Rows are never updated.
func (s *Store) InsertMetrics(ctx context.Context, m model.AggregateMetrics) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO aggregate_metrics (weighted_apy, volatility, sharpe_score, total_tvl, protocol_count, collected_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
		m.WeightedAPY, m.Volatility, m.SharpeScore, m.TotalTVL.String(),
		m.ProtocolCount, m.CollectedAt)
	return err
}

// QueryLatestMetrics returns the most recent aggregate metrics row, or
// (nil, nil) when the store is empty.
func (s *Store) QueryLatestMetrics(ctx context.Context) (*model.AggregateMetrics, error) {
	var (
		m       model.AggregateMetrics
		tvlText string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT weighted_apy, volatility, sharpe_score, total_tvl::text, protocol_count, collected_at
		FROM aggregate_metrics
		ORDER BY id DESC
		LIMIT 1`).
		Scan(&m.WeightedAPY, &m.Volatility, &m.SharpeScore, &tvlText, &m.ProtocolCount, &m.CollectedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m.TotalTVL, err = parseNumeric(tvlText)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// QueryLatestSamples returns the most recent sample per protocol.
func (s *Store) QueryLatestSamples(ctx context.Context) ([]model.YieldSample, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (protocol_id)
			protocol_id, apy, liquidity::text, tvl::text, risk_score, collected_at
		FROM yield_samples
		ORDER BY protocol_id, collected_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSamples(rows)
}

// QuerySamplesSince returns one protocol's samples newer than since, ordered
// by timestamp ascending.
func (s *Store) QuerySamplesSince(ctx context.Context, protocolID string, since time.Time) ([]model.YieldSample, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT protocol_id, apy, liquidity::text, tvl::text, risk_score, collected_at
		FROM yield_samples
		WHERE protocol_id = $1 AND collected_at >= $2
		ORDER BY collected_at ASC`, protocolID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSamples(rows)
}

func scanSamples(rows pgx.Rows) ([]model.YieldSample, error) {
	var samples []model.YieldSample
	for rows.Next() {
		var (
			sample        model.YieldSample
			liquidityText string
			tvlText       string
		)
		if err := rows.Scan(&sample.ProtocolID, &sample.APY, &liquidityText, &tvlText,
			&sample.RiskScore, &sample.CollectedAt); err != nil {
			return nil, err
		}

		var err error
		if sample.Liquidity, err = parseNumeric(liquidityText); err != nil {
			return nil, err
		}
		if sample.TVL, err = parseNumeric(tvlText); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

func parseNumeric(text string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("unparseable numeric value %q", text)
	}
	return v, nil
}
