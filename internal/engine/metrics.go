package engine

// metrics.go — Prometheus metrics updated by the reconciliation loop:
//   dcabot_ticks_total                  reconciliation cycles run
//   dcabot_orders_submitted_total{kind} orders placed (kind: entry|level)
//   dcabot_fills_applied_total          fills folded into positions
//   dcabot_cancels_total                cancels confirmed
//   dcabot_gateway_errors_total{class}  broker failures (transient|fatal)
//   dcabot_active_equities              equities currently toggled on
//
// Served at /metrics when a metrics address is configured in main.

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dcabot_ticks_total",
			Help: "Reconciliation ticks executed",
		},
	)

	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcabot_orders_submitted_total",
			Help: "Orders submitted to the broker",
		},
		[]string{"kind"},
	)

	mtxFills = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dcabot_fills_applied_total",
			Help: "Fills applied to positions",
		},
	)

	mtxCancels = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dcabot_cancels_total",
			Help: "Order cancellations confirmed",
		},
	)

	mtxGatewayErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcabot_gateway_errors_total",
			Help: "Broker gateway failures by class",
		},
		[]string{"class"},
	)

	mtxActiveEquities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dcabot_active_equities",
			Help: "Equities currently toggled on",
		},
	)
)

func init() {
	prometheus.MustRegister(
		mtxTicks,
		mtxOrders,
		mtxFills,
		mtxCancels,
		mtxGatewayErrors,
		mtxActiveEquities,
	)
}
