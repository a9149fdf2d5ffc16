// Package api serves the read-only HTTP surface of the oracle.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yourorg/yield-oracle/internal/circuitbreaker"
	"github.com/yourorg/yield-oracle/internal/integrity"
	"github.com/yourorg/yield-oracle/internal/model"
	"github.com/yourorg/yield-oracle/internal/registry"
	"github.com/sirupsen/logrus"
)

// SnapshotCache is the fast path for the latest cycle result.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context) (*model.Snapshot, error)
}

// HistoryStore is the durable fallback and the history query backend.
type HistoryStore interface {
	QueryLatestMetrics(ctx context.Context) (*model.AggregateMetrics, error)
	QueryLatestSamples(ctx context.Context) ([]model.YieldSample, error)
	QuerySamplesSince(ctx context.Context, protocolID string, since time.Time) ([]model.YieldSample, error)
}

// Pinger reports backend reachability for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Latest serves the most recent snapshot, preferring the cache and falling
// back to the durable store when the cache is empty or expired.
func Latest(cache SnapshotCache, db HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := latestSnapshot(r.Context(), cache, db)
		if err != nil {
			logrus.Warnf("latest snapshot lookup failed: %v", err)
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		if snap == nil {
			writeError(w, http.StatusNotFound, "no data yet")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// LatestSigned serves the latest snapshot wrapped in a signed envelope.
func LatestSigned(cache SnapshotCache, db HistoryStore, signer *integrity.Signer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := latestSnapshot(r.Context(), cache, db)
		if err != nil {
			logrus.Warnf("latest snapshot lookup failed: %v", err)
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		if snap == nil {
			writeError(w, http.StatusNotFound, "no data yet")
			return
		}

		env, err := signer.Sign(snap)
		if err != nil {
			logrus.Warnf("snapshot signing failed: %v", err)
			writeError(w, http.StatusInternalServerError, "signing failed")
			return
		}
		writeJSON(w, http.StatusOK, env)
	}
}

// latestSnapshot implements the cache-first, store-fallback read path.
func latestSnapshot(ctx context.Context, cache SnapshotCache, db HistoryStore) (*model.Snapshot, error) {
	snap, err := cache.GetSnapshot(ctx)
	if err != nil {
		// A broken cache degrades to the store, it does not fail the read.
		logrus.Warnf("cache read failed, falling back to store: %v", err)
	}
	if snap != nil {
		return snap, nil
	}

	m, err := db.QueryLatestMetrics(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}

	samples, err := db.QueryLatestSamples(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Snapshot{Metrics: *m, Samples: samples}, nil
}

// ProtocolHistory serves one protocol's samples over a trailing window,
// ordered by timestamp ascending. Always read from the durable store.
func ProtocolHistory(db HistoryStore, reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		protocolID := chi.URLParam(r, "id")
		if _, ok := reg.Get(protocolID); !ok {
			writeError(w, http.StatusNotFound, "unknown protocol")
			return
		}

		hours := 24
		if raw := r.URL.Query().Get("hours"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				writeError(w, http.StatusBadRequest, "invalid hours parameter")
				return
			}
			hours = parsed
		}

		since := time.Now().Add(-time.Duration(hours) * time.Hour)
		samples, err := db.QuerySamplesSince(r.Context(), protocolID, since)
		if err != nil {
			logrus.Warnf("history query failed for %s: %v", protocolID, err)
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		if samples == nil {
			samples = []model.YieldSample{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"protocol_id": protocolID,
			"hours":       hours,
			"samples":     samples,
		})
	}
}

// Status reports uptime, registry size and per-protocol breaker counts.
func Status(reg *registry.Registry, breaker *circuitbreaker.Breaker, startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "operational",
			"uptime":           time.Since(startTime).String(),
			"protocols":        reg.Len(),
			"breaker_failures": breaker.Counts(),
		})
	}
}

// Health is the liveness probe.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Ready is the readiness probe: green only when the store is reachable.
func Ready(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unreachable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
