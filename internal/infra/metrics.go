package infra

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
	ResultOK        = "ok"
	ResultError     = "error"
)

var (
	PublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "userstream_published_total",
		Help: "Records handed to the broadcast hub",
	})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userstream_deliveries_total",
		Help: "Per-subscriber delivery attempts by result",
	}, []string{"result"})

	EvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "userstream_evictions_total",
		Help: "Subscribers evicted after failed sends",
	})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "userstream_subscribers",
		Help: "Currently connected subscribers",
	})

	SourceFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "userstream_source_failures_total",
		Help: "Failed fetches from the record source",
	})

	MirrorFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "userstream_mirror_failures_total",
		Help: "Envelopes the kafka mirror failed to write",
	})

	ConsumerUpsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userstream_consumer_upserts_total",
		Help: "Store upserts performed by the consumer by result",
	}, []string{"result"})

	ConsumerReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "userstream_consumer_reconnects_total",
		Help: "Consumer reconnect attempts after a transport failure",
	})

	ConsumerDecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "userstream_consumer_decode_errors_total",
		Help: "Frames the consumer skipped as malformed",
	})
)

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
