// metrics - прикладные метрики accounts-service (Prometheus).
// Все методы безопасны для nil-получателя: компоненты без метрик
// (например, в unit-тестах) просто ничего не пишут.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций для label "result".
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics - набор коллекторов сервиса.
type Metrics struct {
	authEvents   *prometheus.CounterVec
	mediaPublish *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_auth_events_total",
			Help: "Authentication lifecycle events by outcome.",
		}, []string{"event", "result"}),
		mediaPublish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_media_publish_total",
			Help: "Media publish attempts by role and outcome.",
		}, []string{"role", "result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "accounts_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.authEvents, m.mediaPublish, m.httpDuration)

	return m
}

// AuthEvent учитывает событие жизненного цикла сессии (register, login, refresh...).
func (m *Metrics) AuthEvent(event string, err error) {
	if m == nil {
		return
	}

	m.authEvents.WithLabelValues(event, result(err)).Inc()
}

// MediaPublish учитывает попытку публикации файла.
func (m *Metrics) MediaPublish(role string, err error) {
	if m == nil {
		return
	}

	m.mediaPublish.WithLabelValues(role, result(err)).Inc()
}

// ObserveHTTP записывает длительность обработанного запроса.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}

	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return ResultError
	}

	return ResultOK
}
