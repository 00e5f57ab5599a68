package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		paymentOrdersTotal,
		paymentsTotal,
		paymentsRevenueTotal,
	)
}

var (
	paymentOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_orders_total",
			Help: "Order creation attempts by result (ok/gateway_error/invalid/store_error).",
		},
		[]string{"result"},
	)

	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment records by status transition (pending/completed).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of completed payments in major units, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncOrder(result string) {
	paymentOrdersTotal.WithLabelValues(norm(result)).Inc()
}

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount decimal.Decimal) {
	f, _ := amount.Float64()
	paymentsRevenueTotal.WithLabelValues(strings.ToUpper(norm(currency))).Add(f)
}
