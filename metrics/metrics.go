package metrics

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/types"

	statsdlib "github.com/CMGS/statsd"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/maps"
)

const (
	eventCountKey      = "taskmanager.%s.events.%s"
	eventCountName     = "taskmanager_events"
	actionCountKey     = "taskmanager.%s.actions.%s"
	actionCountName    = "taskmanager_task_actions"
	deliveryCountKey   = "taskmanager.%s.bus.%s"
	deliveryCountName  = "taskmanager_bus_deliveries"
	hierarchyGaugeKey  = "taskmanager.%s.hierarchies"
	hierarchyGaugeName = "taskmanager_hierarchies"

	replyAddress = "__reply"
)

// Metric is a single sample sent to both prometheus and statsd
type Metric struct {
	Name   string
	Labels []string
	Key    string
	Value  string
}

// Metrics define metrics
type Metrics struct {
	StatsdAddr   string
	Hostname     string
	statsdClient *statsdlib.Client
	mu           sync.Mutex

	Collectors map[string]prometheus.Collector
}

// SendEvent counts an orchestration event by result
func (m *Metrics) SendEvent(ctx context.Context, result string) {
	m.SendMetrics(ctx, &Metric{
		Name:   eventCountName,
		Labels: []string{result},
		Key:    fmt.Sprintf(eventCountKey, m.Hostname, result),
		Value:  "1",
	})
}

// SendTaskAction counts applied task actions by kind
func (m *Metrics) SendTaskAction(ctx context.Context, kind types.ActionKind) {
	m.SendMetrics(ctx, &Metric{
		Name:   actionCountName,
		Labels: []string{string(kind)},
		Key:    fmt.Sprintf(actionCountKey, m.Hostname, kind),
		Value:  "1",
	})
}

// SendDelivery counts bus deliveries
func (m *Metrics) SendDelivery(address, result string) {
	if strings.HasPrefix(address, replyAddress) {
		address = replyAddress
	}
	m.SendMetrics(context.TODO(), &Metric{
		Name:   deliveryCountName,
		Labels: []string{address, result},
		Key:    fmt.Sprintf(deliveryCountKey, m.Hostname, cleanStatsdMetrics(address+"."+result)),
		Value:  "1",
	})
}

// SendHierarchyCount updates the number of stored hierarchies
func (m *Metrics) SendHierarchyCount(ctx context.Context, n int) {
	m.SendMetrics(ctx, &Metric{
		Name:   hierarchyGaugeName,
		Labels: []string{m.Hostname},
		Key:    fmt.Sprintf(hierarchyGaugeKey, m.Hostname),
		Value:  strconv.Itoa(n),
	})
}

// SendMetrics update metrics
func (m *Metrics) SendMetrics(ctx context.Context, metrics ...*Metric) {
	logger := log.WithFunc("metrics.SendMetrics")
	for _, metric := range metrics {
		collector, ok := m.Collectors[metric.Name]
		if !ok {
			logger.Debugf(ctx, "Collector not found: %s", metric.Name)
			continue
		}
		switch c := collector.(type) {
		case *prometheus.GaugeVec:
			value, err := strconv.ParseFloat(metric.Value, 64)
			if err != nil {
				logger.Errorf(ctx, err, "Error occurred while parsing %+v value %+v", metric.Name, metric.Value)
			}
			c.WithLabelValues(metric.Labels...).Set(value)
			if err := m.gauge(ctx, metric.Key, value); err != nil {
				logger.Errorf(ctx, err, "Error occurred while sending %+v data to statsd", metric.Name)
			}
		case *prometheus.CounterVec:
			value, err := strconv.ParseInt(metric.Value, 10, 32) //nolint
			if err != nil {
				logger.Errorf(ctx, err, "Error occurred while parsing %+v value %+v", metric.Name, metric.Value)
			}
			c.WithLabelValues(metric.Labels...).Add(float64(value))
			if err := m.count(ctx, metric.Key, int(value), 1.0); err != nil {
				logger.Errorf(ctx, err, "Error occurred while sending %+v data to statsd", metric.Name)
			}
		default:
			logger.Errorf(ctx, types.ErrMetricsTypeNotSupport, "Unknown collector type: %T", collector)
		}
	}
}

// Lazy connect
func (m *Metrics) checkConn(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statsdClient != nil {
		return nil
	}
	logger := log.WithFunc("metrics.checkConn")
	var err error
	// udp only, nothing to reconnect
	if m.statsdClient, err = statsdlib.New(m.StatsdAddr, statsdlib.WithErrorHandler(func(err error) {
		logger.Error(ctx, err, "Sending statsd failed")
	})); err != nil {
		logger.Error(ctx, err, "Connect statsd failed")
		return err
	}
	return nil
}

func (m *Metrics) gauge(ctx context.Context, key string, value float64) error {
	if m.StatsdAddr == "" {
		return nil
	}
	if err := m.checkConn(ctx); err != nil {
		return err
	}
	m.statsdClient.Gauge(key, value)
	return nil
}

func (m *Metrics) count(ctx context.Context, key string, n int, rate float32) error {
	if m.StatsdAddr == "" {
		return nil
	}
	if err := m.checkConn(ctx); err != nil {
		return err
	}
	m.statsdClient.Count(key, n, rate)
	return nil
}

func newCollectors() map[string]prometheus.Collector {
	return map[string]prometheus.Collector{
		eventCountName: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: eventCountName,
			Help: "orchestration events by result",
		}, []string{"result"}),
		actionCountName: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: actionCountName,
			Help: "applied task actions by kind",
		}, []string{"kind"}),
		deliveryCountName: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: deliveryCountName,
			Help: "bus deliveries by address and result",
		}, []string{"address", "result"}),
		hierarchyGaugeName: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: hierarchyGaugeName,
			Help: "stored task hierarchies",
		}, []string{"hostname"}),
	}
}

func cleanStatsdMetrics(s string) string {
	return strings.NewReplacer(".", "-", ":", "-", "/", "-").Replace(s)
}

// Client is a metrics obj, unregistered until InitMetrics
var Client = &Metrics{Hostname: "localhost", Collectors: newCollectors()}
var once sync.Once

// InitMetrics new a metrics obj
func InitMetrics(config types.Config) error {
	hostname, err := os.Hostname()
	if err != nil {
		return err
	}
	once.Do(func() {
		Client = &Metrics{
			StatsdAddr: config.Statsd,
			Hostname:   cleanStatsdMetrics(hostname),
			Collectors: newCollectors(),
		}
		prometheus.MustRegister(maps.Values(Client.Collectors)...)
	})
	return nil
}
