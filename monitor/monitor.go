// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers     prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	MessagesReceived  prometheus.Counter
	MessageLatency    prometheus.Histogram
	GamesCompleted    prometheus.Counter
	BroadcastFailures prometheus.Counter
}

func NewMetrics(namespace string, registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of open player connections",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of live room coordinators",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		GamesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_completed_total",
			Help:      "Races that reached the finished phase and were recorded",
		}),
		BroadcastFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_send_failures_total",
			Help:      "Per-connection sends dropped during a broadcast",
		}),
	}

	registry.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.MessagesReceived,
		m.MessageLatency,
		m.GamesCompleted,
		m.BroadcastFailures,
	)

	return m
}

// Monitor wraps the metrics. A nil *Monitor is valid and records nothing.
type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
	server       *http.Server
}

func NewMonitor(namespace string) *Monitor {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Monitor{
		metrics:   NewMetrics(namespace, registry),
		registry:  registry,
		startTime: time.Now(),
	}
}

var publishOnce sync.Once

// Handler serves /metrics and /debug/vars.
func (m *Monitor) Handler() http.Handler {
	// expvar names are process-global
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))

		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

func (m *Monitor) StartServer(addr string) {
	m.server = &http.Server{Addr: addr, Handler: m.Handler()}
	go m.server.ListenAndServe()
}

func (m *Monitor) Close() error {
	if m == nil || m.server == nil {
		return nil
	}
	return m.server.Close()
}

func (m *Monitor) IncOnlinePlayers() {
	if m == nil {
		return
	}
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	if m == nil {
		return
	}
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	if m == nil {
		return
	}
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	if m == nil {
		return
	}
	m.metrics.MessagesReceived.Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

func (m *Monitor) IncGamesCompleted() {
	if m == nil {
		return
	}
	m.metrics.GamesCompleted.Inc()
}

func (m *Monitor) AddBroadcastFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.metrics.BroadcastFailures.Add(float64(n))
}
