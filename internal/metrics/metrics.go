// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchTotal counts fetch attempts by outcome: ok, duplicate, transient,
	// rate_limited.
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "injury_alert_fetch_total",
		Help: "Snapshot fetch attempts by outcome.",
	}, []string{"outcome"})

	// SnapshotsNew counts snapshots that passed the fingerprint dedup gate.
	SnapshotsNew = promauto.NewCounter(prometheus.CounterOpts{
		Name: "injury_alert_snapshots_new_total",
		Help: "Snapshots with previously unseen content.",
	})

	// ChangesDetected counts detected status changes by kind: added, removed,
	// changed.
	ChangesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "injury_alert_changes_detected_total",
		Help: "Detected player status changes by kind.",
	}, []string{"kind"})

	// NotificationsSent counts channel sends by channel and result.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "injury_alert_notifications_total",
		Help: "Notification send attempts by channel and result.",
	}, []string{"channel", "result"})

	// CycleDuration observes end-to-end processing time of a poll cycle that
	// saw a new snapshot.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "injury_alert_cycle_duration_seconds",
		Help:    "Processing duration of poll cycles with a new snapshot.",
		Buckets: prometheus.DefBuckets,
	})
)
