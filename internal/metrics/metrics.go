package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WebhookEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus", Name: "webhook_events_total",
		Help: "Stripe webhook deliveries by outcome",
	}, []string{"outcome"}) // recorded|duplicate|ignored|no_student|bad_signature|error

	PaymentsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus", Name: "payments_recorded_total",
		Help: "Payment records created, by method",
	}, []string{"method"})

	TokenValidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus", Name: "token_validations_total",
		Help: "Parent token validations",
	}, []string{"result"}) // ok|invalid|error

	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "campus", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(WebhookEvents, PaymentsRecorded, TokenValidations, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
