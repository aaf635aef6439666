package receipt

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var receiptEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "receipt_events_total",
		Help: "Total number of delivery receipt events processed",
	},
	[]string{"event", "applied"}, // applied: true|false
)

// RecordReceipt records one processed receipt event.
func RecordReceipt(event string, applied bool) {
	receiptEventsTotal.WithLabelValues(event, strconv.FormatBool(applied)).Inc()
}
