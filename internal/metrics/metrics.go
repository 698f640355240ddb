// Package metrics counts what happens to the model: transactions, operations, commands and backups
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"umlforge/local-app/internal/repository"
)

const namespace = "umlforge"

// Command statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector holds all Prometheus metrics of one application instance
type Collector struct {
	registry *prometheus.Registry

	Transactions    *prometheus.CounterVec
	Operations      *prometheus.CounterVec
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	Backups         *prometheus.CounterVec
	Elements        prometheus.Gauge
}

// NewCollector creates a collector on its own registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	transactions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Transactions applied to the repository",
		},
		[]string{"source"},
	)

	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Operations applied to the repository",
		},
		[]string{"kind"},
	)

	commands := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands executed",
		},
		[]string{"command", "status"},
	)

	commandDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution time in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	backups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Backup attempts by result",
		},
		[]string{"result"},
	)

	elements := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "elements",
			Help:      "Elements in the repository",
		},
	)

	registry.MustRegister(
		transactions,
		operations,
		commands,
		commandDuration,
		backups,
		elements,
	)

	return &Collector{
		registry:        registry,
		Transactions:    transactions,
		Operations:      operations,
		Commands:        commands,
		CommandDuration: commandDuration,
		Backups:         backups,
		Elements:        elements,
	}
}

// Registry returns the registry the metrics are registered with
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRepository counts every transaction the repository applies and returns a function
// that stops observing
func (c *Collector) ObserveRepository(repo *repository.Repository) func() {
	c.Elements.Set(float64(repo.Len()))
	return repo.On(repository.EventOperationExecuted, func(e repository.Event) {
		executed, ok := e.(repository.OperationExecutedEvent)
		if !ok {
			return
		}
		c.Transactions.WithLabelValues(executed.Source.String()).Inc()
		for _, op := range executed.Transaction.Operations {
			c.Operations.WithLabelValues(op.Kind.String()).Inc()
		}
		c.Elements.Set(float64(repo.Len()))
	})
}

// SetElements records the element count after changes made outside transactions
func (c *Collector) SetElements(n int) {
	c.Elements.Set(float64(n))
}

// RecordCommand counts one command execution
func (c *Collector) RecordCommand(id string, err error, took time.Duration) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	c.Commands.WithLabelValues(id, status).Inc()
	c.CommandDuration.WithLabelValues(id).Observe(took.Seconds())
}

// RecordBackup counts one backup attempt
func (c *Collector) RecordBackup(result string) {
	c.Backups.WithLabelValues(result).Inc()
}

// Summary renders non-zero counters and gauges as "name{labels} value" lines, sorted
func (c *Collector) Summary() ([]string, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var lines []string
	for _, family := range families {
		for _, m := range family.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			}
			if value == 0 {
				continue
			}

			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			name := family.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, value))
		}
	}
	sort.Strings(lines)
	return lines, nil
}
