package metrics

import (
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "medisched"

func registerer(reg prometheus.Registerer) prometheus.Registerer {
	if reg == nil {
		return prometheus.DefaultRegisterer
	}
	return reg
}

// HTTPMetrics records request counts and latency per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer, service string) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "HTTP requests by route and status",
			ConstLabels: prometheus.Labels{"service": service},
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request latency",
			ConstLabels: prometheus.Labels{"service": service},
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	registerer(reg).MustRegister(m.requests, m.latency)
	return m
}

func (m *HTTPMetrics) Observe(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	route := RouteLabel(path)
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

var objectIDSegment = regexp.MustCompile(`/[0-9a-fA-F]{24}(/|$)`)

// RouteLabel collapses ObjectID path segments so labels stay bounded.
func RouteLabel(path string) string {
	for objectIDSegment.MatchString(path) {
		path = objectIDSegment.ReplaceAllString(path, "/:id$1")
	}
	return path
}

// SchedulingMetrics records booking and template review outcomes.
type SchedulingMetrics struct {
	bookings    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	slotReviews *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "booking_requests_total",
			Help:      "Booking requests by outcome code",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions",
		}, []string{"from", "to"}),
		slotReviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "slot_reviews_total",
			Help:      "Availability template reviews by action and outcome",
		}, []string{"action", "outcome"}),
	}
	registerer(reg).MustRegister(m.bookings, m.transitions, m.slotReviews)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *SchedulingMetrics) ObserveSlotReview(action, outcome string) {
	if m == nil {
		return
	}
	m.slotReviews.WithLabelValues(action, outcome).Inc()
}

// KafkaMetrics records produce and consume results per topic.
type KafkaMetrics struct {
	published *prometheus.CounterVec
	consumed  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

func NewKafkaMetrics(reg prometheus.Registerer) *KafkaMetrics {
	m := &KafkaMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Messages published by topic and result",
		}, []string{"topic", "result"}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Messages consumed by topic and result",
		}, []string{"topic", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "operation_duration_seconds",
			Help:      "Kafka produce and consume latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"topic", "operation"}),
	}
	registerer(reg).MustRegister(m.published, m.consumed, m.latency)
	return m
}

func (m *KafkaMetrics) ObservePublish(topic string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(topic, result(err)).Inc()
	m.latency.WithLabelValues(topic, "publish").Observe(d.Seconds())
}

func (m *KafkaMetrics) ObserveConsume(topic string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.consumed.WithLabelValues(topic, result(err)).Inc()
	m.latency.WithLabelValues(topic, "consume").Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
