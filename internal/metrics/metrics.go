package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Movements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_movements_total",
		Help: "Stock movements applied, labeled by action type.",
	}, []string{"action"})

	MovementFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockledger_movement_failures_total",
		Help: "Stock movements rejected or rolled back.",
	})

	BatchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockledger_batches_created_total",
		Help: "Batches registered.",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockledger_quantity_cache_hits_total",
		Help: "Quantity reads served from the cache.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockledger_quantity_cache_misses_total",
		Help: "Quantity reads that fell through to the database.",
	})
)
