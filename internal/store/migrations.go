package store

import "context"

const migrationSQL = `
CREATE TABLE IF NOT EXISTS yield_samples (
    id BIGSERIAL PRIMARY KEY,
    protocol_id TEXT NOT NULL,
    apy DOUBLE PRECISION NOT NULL,
    liquidity NUMERIC(78,0) NOT NULL,
    tvl NUMERIC(78,0) NOT NULL,
    risk_score INT NOT NULL,
    collected_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_yield_samples_protocol_time
    ON yield_samples (protocol_id, collected_at);

CREATE TABLE IF NOT EXISTS aggregate_metrics (
    id BIGSERIAL PRIMARY KEY,
    weighted_apy DOUBLE PRECISION NOT NULL,
    volatility DOUBLE PRECISION NOT NULL,
    sharpe_score DOUBLE PRECISION NOT NULL,
    total_tvl NUMERIC(78,0) NOT NULL,
    protocol_count INT NOT NULL,
    collected_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_aggregate_metrics_time
    ON aggregate_metrics (collected_at);
`

// Migrate applies the idempotent schema on boot.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migrationSQL)
	return err
}
