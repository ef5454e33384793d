package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// SubscriberStats is the subset of *pubsub.Bus the collector reads at
// scrape time.
type SubscriberStats interface {
	TotalSubscribers() int
	ActiveChannels() int
}

// BroadcasterStats is the subset of *broadcaster.Broadcaster the collector
// reads at scrape time.
type BroadcasterStats interface {
	ActiveMeetingCount() int
}

// Collector implements prometheus.Collector to read live gauges at scrape
// time: connected WebSocket subscribers, channels with at least one
// subscriber, active meetings as last seen by the broadcaster, and the
// database pool's connection counts.
type Collector struct {
	pool  *pgxpool.Pool
	bus   SubscriberStats
	bcast BroadcasterStats

	subscribersActive *prometheus.Desc
	channelsActive    *prometheus.Desc
	activeMeetings    *prometheus.Desc
	dbTotalConns      *prometheus.Desc
	dbAcquiredConns   *prometheus.Desc
	dbIdleConns       *prometheus.Desc
}

// MustRegisterCollector builds a Collector over pool/bus/bcast and registers
// it with the default Prometheus registry, the way the composition root
// registers every other collector.
func MustRegisterCollector(pool *pgxpool.Pool, bus SubscriberStats, bcast BroadcasterStats) {
	prometheus.MustRegister(NewCollector(pool, bus, bcast))
}

// NewCollector creates a collector that reads live state at scrape time.
// pool, bus, and bcast may each be nil (their metrics then report 0).
func NewCollector(pool *pgxpool.Pool, bus SubscriberStats, bcast BroadcasterStats) *Collector {
	return &Collector{
		pool:  pool,
		bus:   bus,
		bcast: bcast,
		subscribersActive: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "ws_subscribers_active"),
			"Current number of WebSocket connections subscribed to a meeting channel.",
			nil, nil,
		),
		channelsActive: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "meeting_channels_active"),
			"Current number of meeting channels with at least one subscriber.",
			nil, nil,
		),
		activeMeetings: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "active_meetings"),
			"Number of meetings the periodic broadcaster last saw as active.",
			nil, nil,
		),
		dbTotalConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "total_conns"),
			"Total database pool connections.",
			nil, nil,
		),
		dbAcquiredConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "acquired_conns"),
			"Database pool connections currently in use.",
			nil, nil,
		),
		dbIdleConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "idle_conns"),
			"Database pool idle connections.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.subscribersActive
	ch <- c.channelsActive
	ch <- c.activeMeetings
	ch <- c.dbTotalConns
	ch <- c.dbAcquiredConns
	ch <- c.dbIdleConns
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.bus != nil {
		ch <- prometheus.MustNewConstMetric(c.subscribersActive, prometheus.GaugeValue, float64(c.bus.TotalSubscribers()))
		ch <- prometheus.MustNewConstMetric(c.channelsActive, prometheus.GaugeValue, float64(c.bus.ActiveChannels()))
	} else {
		ch <- prometheus.MustNewConstMetric(c.subscribersActive, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(c.channelsActive, prometheus.GaugeValue, 0)
	}

	if c.bcast != nil {
		ch <- prometheus.MustNewConstMetric(c.activeMeetings, prometheus.GaugeValue, float64(c.bcast.ActiveMeetingCount()))
	} else {
		ch <- prometheus.MustNewConstMetric(c.activeMeetings, prometheus.GaugeValue, 0)
	}

	if c.pool != nil {
		stat := c.pool.Stat()
		ch <- prometheus.MustNewConstMetric(c.dbTotalConns, prometheus.GaugeValue, float64(stat.TotalConns()))
		ch <- prometheus.MustNewConstMetric(c.dbAcquiredConns, prometheus.GaugeValue, float64(stat.AcquiredConns()))
		ch <- prometheus.MustNewConstMetric(c.dbIdleConns, prometheus.GaugeValue, float64(stat.IdleConns()))
	} else {
		ch <- prometheus.MustNewConstMetric(c.dbTotalConns, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(c.dbAcquiredConns, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(c.dbIdleConns, prometheus.GaugeValue, 0)
	}
}
