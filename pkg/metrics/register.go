package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegisterMetrics tracks cashier session activity across all tills served
// by this process.
type RegisterMetrics struct {
	checkouts       *prometheus.CounterVec
	stockRejections prometheus.Counter
	catalogPages    prometheus.Counter
	catalogFailures prometheus.Counter
	parkedCarts     *prometheus.GaugeVec
	sessions        prometheus.Gauge
}

// NewRegisterMetrics registers the register metrics on the provided registerer.
func NewRegisterMetrics(reg prometheus.Registerer) *RegisterMetrics {
	if reg == nil {
		return &RegisterMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tilldesk",
		Subsystem: "register",
		Name:      "checkouts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	stockRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tilldesk",
		Subsystem: "register",
		Name:      "stock_rejections_total",
		Help:      "Cart mutations rejected for insufficient stock.",
	})
	catalogPages := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tilldesk",
		Subsystem: "register",
		Name:      "catalog_pages_total",
		Help:      "Stock catalog pages fetched from the warehouse API.",
	})
	catalogFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tilldesk",
		Subsystem: "register",
		Name:      "catalog_fetch_failures_total",
		Help:      "Stock catalog page fetches that failed.",
	})
	parkedCarts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tilldesk",
		Subsystem: "register",
		Name:      "parked_carts",
		Help:      "Saved carts currently parked per register.",
	}, []string{"register"})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tilldesk",
		Subsystem: "register",
		Name:      "sessions",
		Help:      "Ledger sessions currently held in memory.",
	})
	reg.MustRegister(checkouts, stockRejections, catalogPages, catalogFailures, parkedCarts, sessions)
	return &RegisterMetrics{
		checkouts:       checkouts,
		stockRejections: stockRejections,
		catalogPages:    catalogPages,
		catalogFailures: catalogFailures,
		parkedCarts:     parkedCarts,
		sessions:        sessions,
	}
}

// IncCheckout records a checkout attempt outcome ("ok" or "failed").
func (m *RegisterMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncStockRejection records a cart mutation rejected for insufficient stock.
func (m *RegisterMetrics) IncStockRejection() {
	if m == nil || m.stockRejections == nil {
		return
	}
	m.stockRejections.Inc()
}

// IncCatalogPage records a fetched stock page.
func (m *RegisterMetrics) IncCatalogPage() {
	if m == nil || m.catalogPages == nil {
		return
	}
	m.catalogPages.Inc()
}

// IncCatalogFailure records a failed stock page fetch.
func (m *RegisterMetrics) IncCatalogFailure() {
	if m == nil || m.catalogFailures == nil {
		return
	}
	m.catalogFailures.Inc()
}

// SetParkedCarts reports the parked cart count for one register.
func (m *RegisterMetrics) SetParkedCarts(registerID string, count int) {
	if m == nil || m.parkedCarts == nil {
		return
	}
	m.parkedCarts.WithLabelValues(normalizeLabel(registerID)).Set(float64(count))
}

// SetSessions reports how many ledger sessions are live.
func (m *RegisterMetrics) SetSessions(count int) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Set(float64(count))
}
