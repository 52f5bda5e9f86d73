package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolStats is the subset of pgxpool.Stat exported as metrics.
type poolStats struct {
	acquired, idle, total, max, constructing  float64
	acquires, emptyAcquires, canceledAcquires float64
	acquireSeconds                            float64
}

func statsOf(s *pgxpool.Stat) poolStats {
	return poolStats{
		acquired:         float64(s.AcquiredConns()),
		idle:             float64(s.IdleConns()),
		total:            float64(s.TotalConns()),
		max:              float64(s.MaxConns()),
		constructing:     float64(s.ConstructingConns()),
		acquires:         float64(s.AcquireCount()),
		emptyAcquires:    float64(s.EmptyAcquireCount()),
		canceledAcquires: float64(s.CanceledAcquireCount()),
		acquireSeconds:   s.AcquireDuration().Seconds(),
	}
}

type poolMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(poolStats) float64
}

// PoolStatsCollector exports pgxpool connection statistics under db_pool_*.
type PoolStatsCollector struct {
	stats   func() poolStats
	service string
	metrics []poolMetric
}

// NewPoolStatsCollector creates a collector for the given pool.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	return newPoolStatsCollector(func() poolStats { return statsOf(pool.Stat()) }, service)
}

func newPoolStatsCollector(stats func() poolStats, service string) *PoolStatsCollector {
	gauge := func(name, help string, v func(poolStats) float64) poolMetric {
		return poolMetric{prometheus.NewDesc("db_pool_"+name, help, []string{"service"}, nil), prometheus.GaugeValue, v}
	}
	counter := func(name, help string, v func(poolStats) float64) poolMetric {
		return poolMetric{prometheus.NewDesc("db_pool_"+name, help, []string{"service"}, nil), prometheus.CounterValue, v}
	}

	return &PoolStatsCollector{
		stats:   stats,
		service: service,
		metrics: []poolMetric{
			gauge("acquired_connections", "Connections currently checked out of the pool.", func(s poolStats) float64 { return s.acquired }),
			gauge("idle_connections", "Connections currently idle in the pool.", func(s poolStats) float64 { return s.idle }),
			gauge("total_connections", "Connections currently open, in any state.", func(s poolStats) float64 { return s.total }),
			gauge("max_connections", "Configured pool size.", func(s poolStats) float64 { return s.max }),
			gauge("constructing_connections", "Connections being dialled.", func(s poolStats) float64 { return s.constructing }),
			counter("acquire_count_total", "Successful connection acquires.", func(s poolStats) float64 { return s.acquires }),
			counter("empty_acquire_count_total", "Acquires that had to wait for a connection.", func(s poolStats) float64 { return s.emptyAcquires }),
			counter("canceled_acquire_count_total", "Acquires abandoned because their context ended.", func(s poolStats) float64 { return s.canceledAcquires }),
			counter("acquire_duration_seconds_total", "Time spent waiting for connections.", func(s poolStats) float64 { return s.acquireSeconds }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector. The pool is sampled once per scrape.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(s), c.service)
	}
}

// RegisterPoolMetrics registers a collector for pool with reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool, service string) error {
	return reg.Register(NewPoolStatsCollector(pool, service))
}
