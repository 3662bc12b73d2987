package monitoring

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpdateCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of handled Telegram updates",
		},
		[]string{"intent", "outcome"},
	)

	UpdateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_update_duration_seconds",
			Help:    "Duration of update handling",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"intent"},
	)

	QuizSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_sessions_total",
			Help: "Quiz sessions by terminal state",
		},
		[]string{"state"}, // started, completed, cancelled, abandoned
	)

	AnswerCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_answers_total",
			Help: "Submitted answers by outcome",
		},
		[]string{"outcome"}, // correct, wrong, skipped
	)

	BroadcastCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_messages_total",
			Help: "Broadcast deliveries by outcome",
		},
		[]string{"outcome"}, // sent, failed
	)
)

func Init() {
	prometheus.MustRegister(UpdateCounter)
	prometheus.MustRegister(UpdateDuration)
	prometheus.MustRegister(QuizSessions)
	prometheus.MustRegister(AnswerCounter)
	prometheus.MustRegister(BroadcastCounter)
}

// ObserveUpdate records one handled update.
func ObserveUpdate(intent, outcome string, start time.Time) {
	UpdateCounter.WithLabelValues(intent, outcome).Inc()
	UpdateDuration.WithLabelValues(intent).Observe(time.Since(start).Seconds())
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
