/*
Package metrics provides Prometheus-backed observability for DirStore store
operations.

Collector implements store.MetricsCollector, so wiring it into an engine is
one option:

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled: true,
		Address: ":8080",
	})
	if err != nil {
		log.Fatal(err)
	}
	st, err := store.New(gw, cfg, store.WithMetrics(collector))

	if err := collector.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer collector.Stop(ctx)

# Exported series

All series live under the configured namespace (default "dirstore"):

	dirstore_operations_total{operation,collection,status}
	dirstore_operation_duration_seconds{operation}
	dirstore_payload_size_bytes{operation,collection}
	dirstore_errors_total{operation,code}

The code label carries the error taxonomy (OBJECT_NOT_FOUND, CORRUPT_JSON,
FILESYSTEM_ERROR, ...), so alerting can separate expected misses from real
trouble. Label values come from the engine's fixed operation names and the
deployment's collection names; both are low-cardinality by construction.

# HTTP endpoints

Start serves three endpoints on the configured address:

	/metrics           Prometheus exposition (OpenMetrics enabled)
	/health            liveness probe
	/debug/operations  plain-text per-operation summary

With SetHealthTracker attached, /health reports the tracker's component
states and answers 503 once the backend is unavailable; the collector feeds
the tracker from operation outcomes, counting only filesystem errors against
it. Without a tracker /health is a static 200.

Embedders that already run an HTTP server can skip Start and mount
promhttp.HandlerFor(collector.Registry(), ...) themselves.

A disabled collector (Config.Enabled false) accepts every call and records
nothing, so callers never need to branch on whether metrics are on. It still
feeds an attached health tracker.
*/
package metrics
