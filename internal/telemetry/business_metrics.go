package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability
// of the cart and checkout engine.
type BusinessMetrics struct {
	// Stock ledger
	StockReserved *prometheus.CounterVec
	StockReleased *prometheus.CounterVec
	StockRejected *prometheus.CounterVec
	StockAdjusted prometheus.Counter

	// Cart activity
	CartsCreated     prometheus.Counter
	CartItemsAdded   prometheus.Counter
	CartItemsRemoved prometheus.Counter
	CartsCleared     prometheus.Counter

	// Checkout
	CheckoutCompleted prometheus.Counter
	CheckoutFailed    *prometheus.CounterVec
	OrderValue        prometheus.Histogram
	OrderLineCount    prometheus.Histogram
}

// NewBusinessMetrics creates and registers all business metrics on reg.
// A nil reg uses the default registerer.
func NewBusinessMetrics(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "njord"
	}

	subsystem := "business"
	factory := promauto.With(reg)

	return &BusinessMetrics{
		StockReserved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_reservations_total",
				Help:      "Total successful stock reservation operations",
			},
			[]string{"source"}, // source: add_item, set_quantity
		),
		StockReleased: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_releases_total",
				Help:      "Total stock release operations",
			},
			[]string{"source"}, // source: remove_item, set_quantity, clear
		),
		StockRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_rejected_total",
				Help:      "Total reservations rejected for insufficient stock",
			},
			[]string{"source"},
		),
		StockAdjusted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_adjustments_total",
				Help:      "Total catalog stock adjustments (restocks and corrections)",
			},
		),
		CartsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "carts_created_total",
				Help:      "Total carts created",
			},
		),
		CartItemsAdded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_added_total",
				Help:      "Total add-to-cart operations",
			},
		),
		CartItemsRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_removed_total",
				Help:      "Total remove-from-cart operations",
			},
		),
		CartsCleared: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "carts_cleared_total",
				Help:      "Total bulk cart-clear operations",
			},
		),
		CheckoutCompleted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_completed_total",
				Help:      "Total successful checkouts",
			},
		),
		CheckoutFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_failed_total",
				Help:      "Total failed checkouts",
			},
			[]string{"reason"}, // reason: empty_cart, storage, other
		),
		OrderValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value",
				Help:      "Order total amount distribution",
				Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
		OrderLineCount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_line_count",
				Help:      "Number of distinct lines per order",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),
	}
}
