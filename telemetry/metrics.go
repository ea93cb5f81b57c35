// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CheckinsRecorded   prometheus.Counter
	DuplicateActions   prometheus.Counter
	PointsAwarded      prometheus.Counter
	SubscriptionsSeen  prometheus.Counter
	GiveawaysResolved  prometheus.Counter
	GiveawaysExpired   prometheus.Counter
	EventSubDeliveries prometheus.Counter
	ResolverCycles     prometheus.Counter

	// Histograms (seconds)
	ScoringDuration prometheus.Observer

	// Gauges
	OpenGiveawaysGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CheckinsRecorded = promauto.NewCounter(prometheus.CounterOpts{Name: "midgard_checkins_recorded_total", Help: "Number of checkin-style actions recorded"})
		DuplicateActions = promauto.NewCounter(prometheus.CounterOpts{Name: "midgard_duplicate_actions_total", Help: "Number of checkin-style actions rejected as duplicates"})
		PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{Name: "midgard_points_awarded_total", Help: "Total points credited across all awards"})
		SubscriptionsSeen = promauto.NewCounter(prometheus.CounterOpts{Name: "midgard_subscriptions_total", Help: "Number of subscription events scored"})
		GiveawaysResolved = promauto.NewCounter(prometheus.CounterOpts{Name: "midgard_giveaways_resolved_total", Help: "Number of follower giveaways resolved with a winner"})
		GiveawaysExpired = promauto.NewCounter(prometheus.CounterOpts{Name: "midgard_giveaways_expired_total", Help: "Number of follower giveaways expired with no entrants"})
		EventSubDeliveries = promauto.NewCounter(prometheus.CounterOpts{Name: "midgard_eventsub_deliveries_total", Help: "Number of EventSub notifications received"})
		ResolverCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "midgard_resolver_cycles_total", Help: "Number of giveaway resolver cycles"})
		ScoringDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "midgard_scoring_duration_seconds", Help: "Scoring operation duration seconds", Buckets: prometheus.DefBuckets})
		OpenGiveawaysGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "midgard_open_giveaways", Help: "Current number of unresolved follower giveaways"})
	})
}

// Inc bumps a counter if metrics are initialized.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// AddPoints records a point award in the counter if metrics are initialized.
func AddPoints(n int) {
	if PointsAwarded != nil && n > 0 {
		PointsAwarded.Add(float64(n))
	}
}

// SetOpenGiveaways records the current unresolved giveaway count.
func SetOpenGiveaways(n int) {
	if OpenGiveawaysGauge != nil {
		OpenGiveawaysGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
