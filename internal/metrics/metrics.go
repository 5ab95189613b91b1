package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "marks_total",
		Help:      "Attendance mark attempts by method and outcome.",
	}, []string{"method", "outcome"})

	SessionMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "session_mutations_total",
		Help:      "Session create/update/delete operations by outcome.",
	}, []string{"op", "outcome"})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "status_transitions_total",
		Help:      "Stored session status transitions persisted by the status sync.",
	}, []string{"to"})

	FaceChecks = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "face_confidence",
		Help:      "Confidence scores returned by the face service.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})
)

// Outcome maps an error to a label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
